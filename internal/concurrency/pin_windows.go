//go:build windows
// +build windows

// File: internal/concurrency/pin_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows carrier-thread pinning via SetThreadAffinityMask. NUMA node
// binding is not implemented on this platform; the node argument is
// accepted for signature parity with the Linux implementation.
//
// Reference: https://learn.microsoft.com/en-us/windows/win32/api/winbase/nf-winbase-setthreadaffinitymask

package concurrency

import (
	"log"
	"runtime"
	"syscall"
)

// PinCurrentThread binds the current thread to a logical CPU core.
// Failure degrades gracefully: the carrier keeps running unpinned.
func PinCurrentThread(numaNode int, cpuID int) {
	runtime.LockOSThread()

	procSetAffinity := syscall.NewLazyDLL("kernel32.dll").NewProc("SetThreadAffinityMask")
	currentThread := syscall.Handle(^uintptr(1)) // GetCurrentThread pseudo-handle

	if cpuID < 0 || cpuID >= 64 {
		log.Printf("pin: invalid CPU index %d (valid: 0..63)", cpuID)
		return
	}
	mask := uintptr(1) << uint(cpuID)
	oldMask, _, callErr := procSetAffinity.Call(uintptr(currentThread), mask)
	if oldMask == 0 {
		log.Printf("pin: failed to set thread affinity: %v", callErr)
	}
}
