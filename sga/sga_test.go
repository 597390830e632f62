package sga

import (
	"testing"

	"github.com/helyim/demikernel/pool"
)

func TestNewWrapsCallerSegments(t *testing.T) {
	s := New([]byte("ab"), []byte("cdef"))
	if s.NumSegs() != 2 || s.TotalLen() != 6 {
		t.Fatalf("unexpected shape: segs=%d total=%d", s.NumSegs(), s.TotalLen())
	}
	// Release on a caller-owned SGA must not touch the segments' storage.
	s.Release()
}

func TestAllocSegmentAndRelease(t *testing.T) {
	p := pool.NewBufferPoolManager().GetPool(-1)
	s := &SGA{}
	buf := AllocSegment(s, p, 5)
	copy(buf, "hello")
	if s.NumSegs() != 1 || string(s.Segs[0].Buf) != "hello" {
		t.Fatalf("allocated segment not visible: %+v", s)
	}
	before := p.Stats().InUse
	s.Release()
	if after := p.Stats().InUse; after != before-1 {
		t.Fatalf("release did not return the buffer: before=%d after=%d", before, after)
	}
}

func TestEqualComparesSegmentsAndPeer(t *testing.T) {
	a := New([]byte("ab"), []byte("cd"))
	b := New([]byte("ab"), []byte("cd"))
	if !Equal(a, b) {
		t.Fatal("identical SGAs must compare equal")
	}
	b.Segs[1].Buf = []byte("ce")
	if Equal(a, b) {
		t.Fatal("differing bytes must compare unequal")
	}
	b.Segs[1].Buf = []byte("cd")
	b.PeerAddr = &Addr{IP: [4]byte{10, 0, 0, 1}, Port: 9}
	if Equal(a, b) {
		t.Fatal("peer address mismatch must compare unequal")
	}
	a.PeerAddr = &Addr{IP: [4]byte{10, 0, 0, 1}, Port: 9}
	if !Equal(a, b) {
		t.Fatal("matching peer addresses must compare equal")
	}
}
