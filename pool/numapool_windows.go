//go:build windows
// +build windows

// File: pool/numapool_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows allocator selection for the buffer pool.

package pool

// createNUMAAllocator returns the VirtualAllocExNuma-backed allocator.
func createNUMAAllocator() NUMAAllocator {
	return newWindowsNUMAAllocator()
}
