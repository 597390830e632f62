// File: pool/bufferpool_impl.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Size-class buffer pool. Classes are tuned to this library's traffic:
// 256 B covers typical pop segments, 2 KiB covers a full Ethernet MTU
// frame, 16 KiB and 64 KiB cover stream payload scratch and device
// receive bursts. Oversize requests are served one-shot and never
// pooled.

package pool

import (
	"sync"
	"sync/atomic"

	"github.com/helyim/demikernel/api"
)

var sizeClasses = [...]int{256, 2048, 16384, 65536}

// NUMAAllocator is the platform backend class storage is drawn from
// when the pool's node is explicit; see numa_*.go for implementations.
type NUMAAllocator interface {
	Alloc(size int, node int) ([]byte, error)
	Free([]byte)
	Nodes() (int, error)
}

// pooledBuffer is the api.Buffer handed out by every pool in this
// package. A buffer created by Slice is a view: it shares data with its
// parent and its Release is a no-op — only the original returns storage.
type pooledBuffer struct {
	data  []byte
	pool  *bufferPool // nil for views and oversize one-shots
	class int
	node  int
	numa  bool // backed by the platform NUMA allocator
}

func (b *pooledBuffer) Bytes() []byte { return b.data }

func (b *pooledBuffer) Slice(from, to int) api.Buffer {
	if from < 0 || to > len(b.data) || from > to {
		panic("pool: slice bounds out of range")
	}
	return &pooledBuffer{data: b.data[from:to], class: b.class, node: b.node}
}

func (b *pooledBuffer) Release() {
	if b.pool != nil {
		b.pool.Put(b)
	}
}

func (b *pooledBuffer) Copy() []byte {
	dst := make([]byte, len(b.data))
	copy(dst, b.data)
	return dst
}

func (b *pooledBuffer) NUMANode() int { return b.node }

// bufferPool serves one NUMA node. Class storage comes from the
// platform NUMA allocator when the node is explicit and the allocator
// exists; otherwise from the Go heap.
type bufferPool struct {
	node    int
	alloc   NUMAAllocator
	classes [len(sizeClasses)]sync.Pool

	totalAlloc int64
	totalFree  int64
	inUse      int64
}

func newBufferPool(numaNode int) api.BufferPool {
	return &bufferPool{
		node:  numaNode,
		alloc: createNUMAAllocator(),
	}
}

func classFor(size int) int {
	for i, c := range sizeClasses {
		if size <= c {
			return i
		}
	}
	return -1
}

func (bp *bufferPool) newStorage(size int) ([]byte, bool) {
	if bp.node >= 0 && bp.alloc != nil {
		if data, err := bp.alloc.Alloc(size, bp.node); err == nil && data != nil {
			return data, true
		}
	}
	return make([]byte, size), false
}

// Get returns a buffer of at least size bytes. numaPreferred is
// accepted for interface parity; the pool's own node wins, since the
// manager already segments pools by node.
func (bp *bufferPool) Get(size int, numaPreferred int) api.Buffer {
	atomic.AddInt64(&bp.inUse, 1)
	class := classFor(size)
	if class < 0 {
		// Oversize: one-shot allocation, not pooled but still
		// accounted, so Release routes back through Put.
		atomic.AddInt64(&bp.totalAlloc, 1)
		data, numa := bp.newStorage(size)
		return &pooledBuffer{data: data, pool: bp, class: -1, node: bp.node, numa: numa}
	}
	if v := bp.classes[class].Get(); v != nil {
		buf := v.(*pooledBuffer)
		buf.data = buf.data[:cap(buf.data)][:size]
		buf.pool = bp
		return buf
	}
	atomic.AddInt64(&bp.totalAlloc, 1)
	data, numa := bp.newStorage(sizeClasses[class])
	return &pooledBuffer{data: data[:size], pool: bp, class: class, node: bp.node, numa: numa}
}

// Put returns a buffer to its class pool. NUMA-backed storage stays
// pooled for reuse; it is only handed back to the allocator for
// oversize one-shots, which never re-enter a class.
func (bp *bufferPool) Put(b api.Buffer) {
	buf, ok := b.(*pooledBuffer)
	if !ok {
		return
	}
	atomic.AddInt64(&bp.inUse, -1)
	if buf.class < 0 {
		buf.pool = nil // a second Release must not double-free
		atomic.AddInt64(&bp.totalFree, 1)
		if buf.numa && bp.alloc != nil {
			bp.alloc.Free(buf.data)
		}
		return
	}
	buf.pool = nil // guards against double-Release while pooled
	bp.classes[buf.class].Put(buf)
}

func (bp *bufferPool) Stats() api.BufferPoolStats {
	return api.BufferPoolStats{
		TotalAlloc: atomic.LoadInt64(&bp.totalAlloc),
		TotalFree:  atomic.LoadInt64(&bp.totalFree),
		InUse:      atomic.LoadInt64(&bp.inUse),
		NUMAStats:  map[int]int64{bp.node: atomic.LoadInt64(&bp.inUse)},
	}
}
