// Package addressbook implements the static MAC-to-IPv4 table consulted
// by the datagram codec and transport when synthesizing Ethernet frames.
// Entries are configured at build/startup; a missing entry for a
// destination IP falls back to the broadcast MAC.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package addressbook

import (
	"fmt"
	"sync"
)

// MAC is a 6-byte Ethernet hardware address.
type MAC [6]byte

func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// Broadcast is the all-ones fallback MAC returned when no entry matches.
var Broadcast = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// Book is a static, thread-safe MAC<->IPv4 table.
type Book struct {
	mu      sync.RWMutex
	byIPv4  map[[4]byte]MAC
}

// New returns an empty address book.
func New() *Book {
	return &Book{byIPv4: make(map[[4]byte]MAC)}
}

// Register records a MAC for a given IPv4 address, overwriting any
// existing entry.
func (b *Book) Register(ip [4]byte, mac MAC) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byIPv4[ip] = mac
}

// Lookup resolves the MAC for an IPv4 destination. A missing entry
// yields the broadcast MAC rather than an error, per the specified
// fallback.
func (b *Book) Lookup(ip [4]byte) MAC {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if mac, ok := b.byIPv4[ip]; ok {
		return mac
	}
	return Broadcast
}

// Default is the process-wide address book instance used when no
// explicit book is supplied to a datagram queue's device context.
var Default = New()
