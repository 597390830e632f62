// Package fake provides controllable test doubles for the external
// collaborators this library treats as out of scope: a loopback NIC
// poll-mode driver standing in for hardware TX/RX bursts.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package fake

import (
	"sync"

	"github.com/helyim/demikernel/api"
)

// LoopbackNIC is an api.Transport implementation that hands every frame
// passed to Send directly to its peer's Recv queue, with no actual
// network or hardware involved. A pair models two hosts on the same
// wire for datagram transport tests.
type LoopbackNIC struct {
	mu     sync.Mutex
	peer   *LoopbackNIC
	rx     [][]byte
	closed bool
}

// NewLoopbackPair returns two NICs, each other's peer.
func NewLoopbackPair() (a, b *LoopbackNIC) {
	a, b = &LoopbackNIC{}, &LoopbackNIC{}
	a.peer, b.peer = b, a
	return a, b
}

// Send hands every buffer to the peer's receive queue. A single-packet
// burst is always fully accepted; partial accept is not possible for a
// single-packet burst.
func (n *LoopbackNIC) Send(buffers [][]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return api.ErrTransportClosed
	}
	peer := n.peer
	cp := make([][]byte, len(buffers))
	for i, b := range buffers {
		cp[i] = append([]byte(nil), b...)
	}
	peer.mu.Lock()
	peer.rx = append(peer.rx, cp...)
	peer.mu.Unlock()
	return nil
}

// Recv drains and returns whatever frames are currently queued. An
// empty, error-free result means "nothing available yet" — the
// datagram transport's progress routine leaves the task pending.
func (n *LoopbackNIC) Recv() ([][]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, api.ErrTransportClosed
	}
	out := n.rx
	n.rx = nil
	return out, nil
}

func (n *LoopbackNIC) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}

func (n *LoopbackNIC) Features() api.TransportFeatures {
	return api.TransportFeatures{ZeroCopy: true, Batch: true, OS: []string{"fake"}}
}
