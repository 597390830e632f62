// Package pool
// Author: momentics <momentics@gmail.com>
//
// NUMA-aware pooled memory for the queue library's two buffer
// populations: pop-side SGA segment buffers (small, short-lived,
// ownership handed to the application) and device receive buffers
// (MTU-to-64k frames pulled from the NIC or the stream socket).
//
// Size-class pooling front-ends a platform NUMA allocator (libnuma on
// Linux, VirtualAllocExNuma on Windows, plain make elsewhere); see
// numa_*.go for the allocators and bufferpool_impl.go for the pool.
package pool
