//go:build linux
// +build linux

package reactor

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/helyim/demikernel/api"
)

// A pipe write produces exactly one edge for the registered read end.
func TestEpollEdgeDelivery(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("reactor: %v", err)
	}
	defer r.Close()

	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	const cookie = uintptr(7)
	if err := r.Register(uintptr(fds[0]), cookie, api.InterestRead); err != nil {
		t.Fatalf("register: %v", err)
	}

	var events [4]api.Event
	if n, err := r.Poll(events[:]); err != nil || n != 0 {
		t.Fatalf("expected no readiness before the write: n=%d err=%v", n, err)
	}

	if _, err := unix.Write(fds[1], []byte{1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	n, err := r.Poll(events[:])
	if err != nil || n != 1 {
		t.Fatalf("expected one edge: n=%d err=%v", n, err)
	}
	ev := events[0]
	if ev.UserData != cookie || ev.Ready&api.InterestRead == 0 {
		t.Fatalf("edge mismatch: %+v", ev)
	}

	// Edge-triggered: no second event until new data arrives.
	if n, err := r.Poll(events[:]); err != nil || n != 0 {
		t.Fatalf("expected the edge to be consumed: n=%d err=%v", n, err)
	}

	if err := r.Deregister(uintptr(fds[0])); err != nil {
		t.Fatalf("deregister: %v", err)
	}
}
