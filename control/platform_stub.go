//go:build !linux && !windows
// +build !linux,!windows

// control/platform_stub.go
// Author: momentics <momentics@gmail.com>
//
// Minimal probes for platforms without topology introspection.

package control

import "runtime"

// RegisterPlatformProbes registers the portable probe set.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
}
