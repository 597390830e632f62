//go:build linux && cgo
// +build linux,cgo

// File: internal/concurrency/pin_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux carrier-thread pinning: pthread_setaffinity_np for the CPU
// core, numa_run_on_node for memory locality. Each carrier thread pins
// itself once before entering its runtime's progress loop.
//
// Note: requires CGO and libnuma-dev at build time.

package concurrency

/*
#cgo LDFLAGS: -lnuma
#define _GNU_SOURCE
#include <sched.h>
#include <pthread.h>
#include <string.h>
#include <numa.h>
#include <errno.h>
*/
import "C"
import (
	"log"
	"runtime"
)

// PinCurrentThread pins the calling native thread to a CPU core and,
// when valid, binds execution to a NUMA node. The goroutine is locked
// to its OS thread first so the affinity outlives this call.
func PinCurrentThread(numaNode int, cpuID int) {
	runtime.LockOSThread()
	mask := C.cpu_set_t{}
	C.CPU_ZERO(&mask)
	C.CPU_SET(C.int(cpuID), &mask)
	ret, err := C.pthread_setaffinity_np(C.pthread_self(), C.size_t(C.sizeof_cpu_set_t), &mask)
	if ret != 0 {
		log.Printf("pin: failed to set thread affinity: %v", err)
	}
	if numaNode >= 0 {
		C.numa_run_on_node(C.int(numaNode))
	}
}
