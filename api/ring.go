// Package api
// Author: momentics@gmail.com
//
// Bounded ring buffer contract backing per-queue receive backlogs.

package api

// Ring is a bounded FIFO ring buffer contract. The datagram transport
// parks NIC burst overflow in one between progress cycles.
type Ring[T any] interface {
	// Enqueue adds an item, returns false if full.
	Enqueue(item T) bool
	// Dequeue removes oldest item, returns false if empty.
	Dequeue() (T, bool)
	// Len returns current number of items.
	Len() int
	// Cap returns buffer capacity.
	Cap() int
}
