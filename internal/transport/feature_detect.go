// File: internal/transport/feature_detect.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Capability reporting for launcher decisions: which backend to open
// and whether the host's CPU supports the wide checksum path.

package transport

import (
	"runtime"

	"golang.org/x/sys/cpu"

	"github.com/helyim/demikernel/api"
)

// DetectTransportFeatures reports what the current platform can offer
// before any backend is opened.
func DetectTransportFeatures() api.TransportFeatures {
	return api.TransportFeatures{
		Batch:     true,
		NUMAAware: runtime.GOOS == "linux",
		OS:        []string{runtime.GOOS},
	}
}

// HasWideChecksum reports whether the CPU has SIMD wide enough for the
// codec's unrolled checksum accumulation.
func HasWideChecksum() bool {
	return cpu.X86.HasSSE2 || cpu.ARM64.HasASIMD
}

// RuntimeTransportSelector names the backend NewTransport would open.
func RuntimeTransportSelector() string {
	if runtime.GOOS == "linux" {
		return "af_packet"
	}
	return "none"
}
