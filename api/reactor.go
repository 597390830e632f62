// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Edge-triggered readiness poller contract backing the stream
// transport: sockets are registered with read and/or write interest and
// readiness is consumed one edge at a time, regardless of the polling
// mechanism underneath (epoll, IOCP).

package api

// Interest selects which readiness edges a registration listens for.
type Interest uint8

const (
	InterestRead  Interest = 1 << 0
	InterestWrite Interest = 1 << 1
)

// Event is one readiness notification carrying the opaque value supplied
// at registration (usually a queue back-index). The epoll and IOCP
// backends set Fd to that same value, not to the registered handle.
type Event struct {
	Fd       uintptr
	UserData uintptr
	Ready    Interest
}

// Reactor multiplexes socket readiness for one carrier thread. A freshly
// accepted child is registered with InterestRead only; write interest is
// never added for it, so its pushes are attempted without waiting for a
// write edge.
type Reactor interface {
	// Register associates a socket handle with the poller under the
	// given interest set.
	Register(fd uintptr, userData uintptr, interest Interest) error

	// Deregister removes a handle from the poller.
	Deregister(fd uintptr) error

	// Poll fills events with whatever readiness is pending and returns
	// the count without blocking; 0 means nothing is ready.
	Poll(events []Event) (int, error)

	// Close releases the poller backend.
	Close() error
}
