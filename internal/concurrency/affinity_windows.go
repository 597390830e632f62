// File: internal/concurrency/affinity_windows.go
//go:build windows
// +build windows

//
// Package concurrency implements Windows-specific carrier affinity.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// CPU pinning only; NUMA topology is reported flat on this platform.

package concurrency

import (
	"log"
	"runtime"

	"golang.org/x/sys/windows"
)

var (
	modkernel32               = windows.NewLazySystemDLL("kernel32.dll")
	procSetThreadAffinityMask = modkernel32.NewProc("SetThreadAffinityMask")
	procGetCurrentThread      = modkernel32.NewProc("GetCurrentThread")
)

// platformPreferredCPUID spreads carriers across CPUs by node index,
// since real node→core maps are not queried on Windows here.
func platformPreferredCPUID(numaNode int) int {
	total := runtime.NumCPU()
	if total <= 0 || numaNode < 0 {
		return 0
	}
	return numaNode % total
}

// platformCurrentNUMANodeID returns -1 to indicate unsupported.
func platformCurrentNUMANodeID() int {
	return -1
}

// platformNUMANodes reports no NUMA diversity.
func platformNUMANodes() int {
	return 1
}

// platformUnpinCurrentThread resets affinity to all CPUs.
func platformUnpinCurrentThread() {
	runtime.UnlockOSThread()
	handle, _, _ := procGetCurrentThread.Call()
	total := runtime.NumCPU()
	if total <= 0 {
		total = 1
	}
	mask := (uintptr(1) << uint(total)) - 1
	old, _, err := procSetThreadAffinityMask.Call(handle, mask)
	if old == 0 {
		log.Printf("affinity: SetThreadAffinityMask(unpin) failed: %v", err)
	}
}
