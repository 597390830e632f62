//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux platform probes: the facts a carrier-placement decision reads.

package control

import (
	"runtime"

	"github.com/helyim/demikernel/internal/concurrency"
)

// RegisterPlatformProbes registers Linux-specific debug probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.numa_nodes", func() any {
		return concurrency.NUMANodes()
	})
}
