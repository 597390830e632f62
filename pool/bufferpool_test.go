package pool

import "testing"

func TestGetPutReusesClassStorage(t *testing.T) {
	p := NewBufferPoolManager().GetPool(-1)
	b := p.Get(100, -1)
	if len(b.Bytes()) != 100 {
		t.Fatalf("len = %d, want 100", len(b.Bytes()))
	}
	p.Put(b)

	b2 := p.Get(200, -1)
	if len(b2.Bytes()) != 200 {
		t.Fatalf("len = %d, want 200", len(b2.Bytes()))
	}
	stats := p.Stats()
	if stats.TotalAlloc != 1 {
		t.Fatalf("second Get in the same class should reuse storage, allocs=%d", stats.TotalAlloc)
	}
	if stats.InUse != 1 {
		t.Fatalf("in-use accounting off: %d", stats.InUse)
	}
}

func TestOversizeIsOneShot(t *testing.T) {
	p := NewBufferPoolManager().GetPool(-1)
	big := sizeClasses[len(sizeClasses)-1] + 1
	b := p.Get(big, -1)
	if len(b.Bytes()) != big {
		t.Fatalf("oversize len = %d, want %d", len(b.Bytes()), big)
	}
	p.Put(b)
	stats := p.Stats()
	if stats.TotalFree != 1 {
		t.Fatalf("oversize Put should free, stats=%+v", stats)
	}
}

func TestSliceViewReleaseIsNoOp(t *testing.T) {
	p := NewBufferPoolManager().GetPool(-1)
	b := p.Get(64, -1)
	view := b.Slice(8, 16)
	if len(view.Bytes()) != 8 {
		t.Fatalf("view len = %d, want 8", len(view.Bytes()))
	}
	view.Release() // must not return the parent's storage
	if got := p.Stats().InUse; got != 1 {
		t.Fatalf("view release changed accounting: in-use=%d", got)
	}
	b.Release()
	if got := p.Stats().InUse; got != 0 {
		t.Fatalf("parent release not accounted: in-use=%d", got)
	}
}

func TestManagerSegmentsPoolsByNode(t *testing.T) {
	m := NewBufferPoolManager()
	if m.GetPool(-1) != m.GetPool(-1) {
		t.Fatal("same node must return the same pool")
	}
	if m.GetPool(-1) == m.GetPool(0) {
		t.Fatal("distinct nodes must get distinct pools")
	}
}
