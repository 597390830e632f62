// File: internal/concurrency/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Portable dispatch over the platform affinity backends. The launcher
// asks these questions when placing carriers: which core should serve a
// NUMA node, where is the current thread running, how many nodes exist.

package concurrency

import (
	"runtime"
)

// PreferredCPUID returns the preferred CPU for the given NUMA node.
func PreferredCPUID(numaNode int) int {
	if numaNode < 0 {
		return 0
	}
	return platformPreferredCPUID(numaNode)
}

// CurrentNUMANodeID returns the NUMA node of the current thread, or -1
// when the platform cannot tell.
func CurrentNUMANodeID() int {
	return platformCurrentNUMANodeID()
}

// UnpinCurrentThread removes CPU and node constraints from the current
// thread, releasing the OS-thread lock taken by PinCurrentThread.
func UnpinCurrentThread() {
	platformUnpinCurrentThread()
}

// NumCPUs returns the number of logical CPUs.
func NumCPUs() int {
	return runtime.NumCPU()
}

// NUMANodes returns the number of NUMA nodes.
func NUMANodes() int {
	return platformNUMANodes()
}
