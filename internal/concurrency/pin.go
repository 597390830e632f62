//go:build !windows && (!linux || !cgo)
// +build !windows
// +build !linux !cgo

// File: internal/concurrency/pin.go
// Author: momentics <momentics@gmail.com>
//
// Fallback pinning for platforms without an affinity syscall surface
// (or Linux built without cgo): the carrier thread is still locked to
// an OS thread so the runtime's thread-local assumptions hold, but the
// OS remains free to migrate it.

package concurrency

import "runtime"

// PinCurrentThread locks the calling goroutine to its OS thread; core
// placement is left to the scheduler on this platform.
func PinCurrentThread(numaNode int, cpuID int) {
	runtime.LockOSThread()
}
