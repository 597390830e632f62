// Package sga implements the scatter-gather array: the unit of
// application-visible payload exchanged across push and pop.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package sga

import "github.com/helyim/demikernel/api"

// Addr is a peer network address (IPv4 + port) attached to a datagram SGA.
type Addr struct {
	IP   [4]byte
	Port uint16
}

// Segment is one (length, pointer) entry of an SGA.
type Segment struct {
	Buf []byte
}

func (s Segment) Len() int { return len(s.Buf) }

// SGA is an ordered list of segments plus an optional peer address.
//
// Segment buffers are caller-owned on push and callee-allocated on pop;
// after a successful pop, ownership transfers to the caller, which must
// call Release to return the pool-backed storage.
type SGA struct {
	Segs     []Segment
	PeerAddr *Addr

	pool  api.BufferPool
	bufs  []api.Buffer // non-nil only for pop-allocated SGAs, parallel to Segs
}

// New wraps caller-owned segments for a push. No pool is attached since
// the caller, not the library, owns the backing storage.
func New(segs ...[]byte) *SGA {
	out := &SGA{Segs: make([]Segment, len(segs))}
	for i, b := range segs {
		out.Segs[i] = Segment{Buf: b}
	}
	return out
}

// NumSegs returns the number of segments.
func (s *SGA) NumSegs() int { return len(s.Segs) }

// TotalLen returns the sum of all segment lengths.
func (s *SGA) TotalLen() int {
	n := 0
	for _, seg := range s.Segs {
		n += len(seg.Buf)
	}
	return n
}

// allocSegment pulls a buffer of the given size from pool p (NUMA node -1
// for no preference), appends it as a new segment, and keeps the
// underlying api.Buffer alive for later Release.
func allocSegment(s *SGA, p api.BufferPool, size int) []byte {
	buf := p.Get(size, -1)
	data := buf.Bytes()[:size]
	s.pool = p
	s.bufs = append(s.bufs, buf)
	s.Segs = append(s.Segs, Segment{Buf: data})
	return data
}

// AllocSegment appends a fresh pool-backed segment of the given size and
// returns its backing slice for the caller (normally a codec) to fill.
func AllocSegment(s *SGA, p api.BufferPool, size int) []byte {
	return allocSegment(s, p, size)
}

// Release returns every pool-backed segment buffer in this SGA to its
// pool and clears Segs. Caller-owned (push) SGAs have no pool-backed
// buffers, so for them Release only clears Segs and leaves the caller's
// storage untouched.
func (s *SGA) Release() {
	for _, b := range s.bufs {
		s.pool.Put(b)
	}
	s.bufs = nil
	s.Segs = nil
}

// Equal compares two SGAs segment-for-segment and by peer address. Used
// by the round-trip tests.
func Equal(a, b *SGA) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.Segs) != len(b.Segs) {
		return false
	}
	for i := range a.Segs {
		if !bytesEqual(a.Segs[i].Buf, b.Segs[i].Buf) {
			return false
		}
	}
	if (a.PeerAddr == nil) != (b.PeerAddr == nil) {
		return false
	}
	if a.PeerAddr != nil && *a.PeerAddr != *b.PeerAddr {
		return false
	}
	return true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
