// Package datagram implements the datagram transport adapter:
// Ethernet/IPv4/UDP frames built and parsed directly over a NIC
// poll-mode driver (device.NIC), with a per-queue receive backlog and
// no kernel network stack underneath it.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package datagram

import (
	"errors"
	"sync"

	"github.com/helyim/demikernel/addressbook"
	"github.com/helyim/demikernel/api"
	"github.com/helyim/demikernel/codec"
	"github.com/helyim/demikernel/core/concurrency"
	"github.com/helyim/demikernel/device"
	"github.com/helyim/demikernel/sga"
	"github.com/helyim/demikernel/task"
)

// backlogCapacity bounds the lock-free ring buffer holding frames pulled
// from the NIC but not yet claimed by a filter-matching pop; it is a
// generous multiple of a typical single NIC burst.
const backlogCapacity = 256

// ErrZeroAccepted signals a burst that accepted no packets; the caller
// must treat this as transient back-pressure (task stays pending), not
// a failure.
var ErrZeroAccepted = errors.New("datagram: nic accepted zero packets")

// Queue is the datagram-kind transport state backing one qio queue.
type Queue struct {
	mu sync.Mutex

	bound     bool
	boundIP   [4]byte
	boundPort uint16

	peer *sga.Addr // default destination set by Connect

	backlog *concurrency.RingBuffer[[]byte] // raw frames pulled from the NIC
}

// New returns an unbound datagram queue.
func New() *Queue {
	return &Queue{backlog: concurrency.NewRingBuffer[[]byte](backlogCapacity)}
}

// Bind records a local address. The wildcard IPv4 address (0.0.0.0) is
// substituted with the NIC's own configured address.
func (q *Queue) Bind(ip [4]byte, port uint16, deviceIP [4]byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if ip == ([4]byte{}) {
		ip = deviceIP
	}
	q.bound, q.boundIP, q.boundPort = true, ip, port
	return nil
}

// Connect records a default peer address; no handshake occurs.
func (q *Queue) Connect(peer sga.Addr) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	p := peer
	q.peer = &p
	return nil
}

// Close clears bound and peer state and drops any backlog.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.bound, q.peer = false, nil
	q.backlog = concurrency.NewRingBuffer[[]byte](backlogCapacity)
	return nil
}

// Filter builds the destination-check chain for this queue's current
// bound state.
func (q *Queue) Filter(deviceMAC addressbook.MAC) codec.DatagramFilter {
	q.mu.Lock()
	defer q.mu.Unlock()
	f := codec.DatagramFilter{DeviceMAC: deviceMAC}
	if q.bound {
		ip := q.boundIP
		port := q.boundPort
		f.BoundIP = &ip
		f.BoundPort = &port
	}
	return f
}

// ProgressSend synthesizes and transmits one Ethernet/IPv4/UDP frame
// carrying t.SGA's payload. A zero-accepted burst leaves the task
// pending for retry; a positive accept completes it with the payload
// byte count. Partial accept is impossible for a one-packet burst.
func ProgressSend(t *task.Task, q *Queue, ctx *device.Context) {
	q.mu.Lock()
	bound, boundIP, boundPort, peer := q.bound, q.boundIP, q.boundPort, q.peer
	q.mu.Unlock()

	dst := t.SGA.PeerAddr
	if dst == nil {
		dst = peer
	}
	if dst == nil {
		t.Done, t.Err = true, codec.ErrNoPeer
		return
	}

	srcIP := ctx.IP
	srcPort := dst.Port // mirrored destination port when unbound
	if bound {
		srcIP = boundIP
		srcPort = boundPort
	}

	params := codec.DatagramFrameParams{
		SrcMAC:  ctx.MAC,
		DstMAC:  ctx.Books.Lookup(dst.IP),
		SrcIP:   srcIP,
		SrcPort: srcPort,
		DstIP:   dst.IP,
		DstPort: dst.Port,
	}
	frame, err := codec.EncodeDatagramFrame(t.SGA, params)
	if err != nil {
		t.Done, t.Err = true, err
		return
	}

	if err := ctx.NIC.Send([][]byte{frame}); err != nil {
		if errors.Is(err, api.ErrResourceExhausted) {
			return // zero accepted this burst: stays pending
		}
		t.Done, t.Err = true, err
		return
	}
	t.Done = true
	t.Result = t.SGA.TotalLen()
}

// ProgressRecv pulls a burst into the backlog if empty, then dequeues
// and filters exactly one packet per call. A filter failure silently
// frees the packet and leaves the task pending.
func ProgressRecv(t *task.Task, q *Queue, ctx *device.Context, pool api.BufferPool) {
	frame, ok := q.backlog.Dequeue()
	if !ok {
		frames, err := ctx.NIC.Recv()
		if err != nil {
			t.Done, t.Err = true, err
			return
		}
		for _, f := range frames {
			if !q.backlog.Enqueue(f) {
				break // backlog full: drop the tail of this burst
			}
		}
		frame, ok = q.backlog.Dequeue()
		if !ok {
			return // nothing available yet: stays pending
		}
	}

	if !q.Filter(ctx.MAC).Accept(frame) {
		return // dropped silently; task stays pending
	}
	out, err := codec.DecodeDatagramFrame(frame, pool)
	if err != nil {
		// Malformed network input is dropped, never surfaced: the frame
		// is freed and the pop stays pending for the next one.
		return
	}
	t.SGA = out
	t.Done = true
	t.Result = out.TotalLen()
}
