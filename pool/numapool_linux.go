//go:build linux
// +build linux

// File: pool/numapool_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux allocator selection for the buffer pool.

package pool

// createNUMAAllocator returns the libnuma-backed allocator.
func createNUMAAllocator() NUMAAllocator {
	return newLinuxNUMAAllocator()
}
