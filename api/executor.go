// Package api
// Author: momentics
//
// Executor contract for dispatching work onto carrier-owned worker
// goroutines.

package api

// Executor abstracts parallel task dispatch. Each carrier thread owns
// its executor; workers never cross carrier boundaries.
type Executor interface {
	// Submit schedules fn for execution.
	Submit(fn func()) error

	// NumWorkers returns current number of active worker routines.
	NumWorkers() int

	// Resize adjusts the concurrency at runtime.
	Resize(newCount int)

	// Close stops all workers; work still queued may be discarded.
	Close()
}
