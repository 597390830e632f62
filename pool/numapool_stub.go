//go:build !linux && !windows
// +build !linux,!windows

// File: pool/numapool_stub.go
// Author: momentics <momentics@gmail.com>
//
// Allocator selection on platforms with no NUMA surface.

package pool

// createNUMAAllocator returns nil; the pool allocates from the Go heap.
func createNUMAAllocator() NUMAAllocator {
	return nil
}
