// File: core/concurrency/ring.go
// Package concurrency implements lock-free ring buffers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RingBuffer is the bounded MPMC ring behind each datagram queue's
// receive backlog: NIC bursts enqueue raw frames, pop progress dequeues
// them one at a time. Head and tail are padded apart to keep producer
// and consumer cache lines from bouncing.

package concurrency

import (
	"sync/atomic"

	"github.com/helyim/demikernel/api"
)

// Ensure compile-time interface compliance.
var _ api.Ring[any] = (*RingBuffer[any])(nil)

// cell is one slot of the ring. The sequence number encodes whether the
// slot currently belongs to a producer or a consumer, in the classic
// bounded-MPMC scheme.
type cell[T any] struct {
	sequence atomic.Uint64
	data     T
}

// RingBuffer is a lock-free bounded ring buffer (MPMC).
type RingBuffer[T any] struct {
	head  uint64
	_     [64]byte // keep producer and consumer indices on separate lines
	tail  uint64
	_     [64]byte
	mask  uint64
	cells []cell[T]
}

// NewRingBuffer allocates a ring buffer, rounding the size up to the
// next power of two so index masking replaces modulo on the hot path.
func NewRingBuffer[T any](size uint64) *RingBuffer[T] {
	if size < 2 {
		size = 2
	}
	if size&(size-1) != 0 {
		n := size - 1
		n |= n >> 1
		n |= n >> 2
		n |= n >> 4
		n |= n >> 8
		n |= n >> 16
		n |= n >> 32
		size = n + 1
	}
	r := &RingBuffer[T]{
		mask:  size - 1,
		cells: make([]cell[T], size),
	}
	for i := range r.cells {
		r.cells[i].sequence.Store(uint64(i))
	}
	return r
}

// Enqueue adds item; returns false if full. A full backlog makes the
// datagram transport drop the tail of the NIC burst, which is the
// backpressure behavior the receive path wants.
func (r *RingBuffer[T]) Enqueue(item T) bool {
	for {
		tail := atomic.LoadUint64(&r.tail)
		index := tail & r.mask
		c := &r.cells[index]
		seq := c.sequence.Load()
		dif := int64(seq) - int64(tail)

		if dif == 0 {
			if atomic.CompareAndSwapUint64(&r.tail, tail, tail+1) {
				c.data = item
				c.sequence.Store(tail + 1)
				return true
			}
		} else if dif < 0 {
			return false // full
		}
		// otherwise the tail moved under us; retry
	}
}

// Dequeue removes and returns the oldest item; ok is false if empty.
func (r *RingBuffer[T]) Dequeue() (T, bool) {
	for {
		head := atomic.LoadUint64(&r.head)
		index := head & r.mask
		c := &r.cells[index]
		seq := c.sequence.Load()
		dif := int64(seq) - int64(head+1)

		if dif == 0 {
			if atomic.CompareAndSwapUint64(&r.head, head, head+1) {
				item := c.data
				c.sequence.Store(head + r.mask + 1)
				return item, true
			}
		} else if dif < 0 {
			var zero T
			return zero, false // empty
		}
		// otherwise the head moved under us; retry
	}
}

// Len returns number of items currently in buffer.
func (r *RingBuffer[T]) Len() int {
	head := atomic.LoadUint64(&r.head)
	tail := atomic.LoadUint64(&r.tail)
	return int(tail - head)
}

// Cap returns fixed buffer capacity.
func (r *RingBuffer[T]) Cap() int {
	return len(r.cells)
}
