// Package device models the external collaborators this library treats
// as out of scope to implement: NIC hardware initialization, link-status
// probing, and memory-pool allocation live behind the NIC poll-mode
// driver (api.Transport, wired from internal/transport); the user-space
// TCP stack is represented by net.Conn/net.Listener. This package only
// holds the thin, process-wide configuration a carrier thread needs to
// talk to those collaborators: the device's own MAC/IP and its transport
// handle.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package device

import (
	"sync"

	"github.com/helyim/demikernel/addressbook"
	"github.com/helyim/demikernel/api"
)

// NIC describes the poll-mode driver collaborator the datagram
// transport drives directly: a burst-oriented, non-blocking send/recv
// surface with no kernel network stack underneath it.
type NIC = api.Transport

// Context is the per-process device configuration: the NIC's own
// hardware address and IPv4 address, and the NIC driver handle itself.
// Initialized once under a one-shot guard; read-only thereafter.
type Context struct {
	MAC   addressbook.MAC
	IP    [4]byte
	NIC   NIC
	Books *addressbook.Book
}

var (
	once    sync.Once
	current *Context
)

// Init installs the process-wide device context. Safe to call multiple
// times; only the first call takes effect.
func Init(ctx *Context) {
	once.Do(func() {
		current = ctx
	})
}

// Current returns the process-wide device context, or nil if Init was
// never called.
func Current() *Context {
	return current
}

// Reset clears the one-shot guard. Exists only for tests, which need a
// fresh device context per test case; production callers never call it.
func Reset() {
	once = sync.Once{}
	current = nil
}
