// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral factory for the readiness poller. The queue runtime
// creates one per carrier thread; stream queues register their socket
// with read (and, once connected, write) interest and the runtime
// drains readiness edges at each progress cycle.

package reactor

import "github.com/helyim/demikernel/api"

// New constructs the platform's api.Reactor. Platforms without a
// readiness backend return an error; the runtime then falls back to
// optimistic non-blocking I/O attempts with no poller at all.
func New() (api.Reactor, error) {
	return newPlatformReactor()
}
