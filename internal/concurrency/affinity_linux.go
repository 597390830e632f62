//go:build linux && cgo
// +build linux,cgo

// File: internal/concurrency/affinity_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux topology queries backing carrier placement: which NUMA node the
// current thread runs on, how many nodes exist, and releasing a node
// binding when a carrier unpins.

package concurrency

// #cgo LDFLAGS: -lnuma
// #define _GNU_SOURCE
// #include <numa.h>
// #include <sched.h>
// #include <errno.h>
//
// int check_numa_avail() {
//     return numa_available();
// }
import "C"

import (
	"runtime"
	"sync"
)

var (
	numaAvailOnce sync.Once
	numaAvailable bool
)

func isNumaAvailable() bool {
	numaAvailOnce.Do(func() {
		if C.check_numa_avail() != -1 {
			numaAvailable = true
		}
	})
	return numaAvailable
}

// platformPreferredCPUID suggests a CPU core for a NUMA node. Node
// binding via numa_run_on_node is what actually places the carrier, so
// a fixed core suggestion suffices here.
func platformPreferredCPUID(numaNode int) int {
	return 0
}

// platformCurrentNUMANodeID returns the NUMA node of the CPU the
// calling thread currently runs on.
func platformCurrentNUMANodeID() int {
	if !isNumaAvailable() {
		return 0
	}
	cpu := C.sched_getcpu()
	if cpu < 0 {
		return -1
	}
	return int(C.numa_node_of_cpu(cpu))
}

// platformNUMANodes returns the total number of configured NUMA nodes.
func platformNUMANodes() int {
	if !isNumaAvailable() {
		return 1
	}
	return int(C.numa_num_configured_nodes())
}

// platformUnpinCurrentThread releases the node binding and the OS
// thread lock taken at pin time.
func platformUnpinCurrentThread() {
	runtime.UnlockOSThread()
	if !isNumaAvailable() {
		return
	}
	C.numa_run_on_node(-1)
}
