package datagram

import (
	"testing"

	"github.com/helyim/demikernel/addressbook"
	"github.com/helyim/demikernel/api"
	"github.com/helyim/demikernel/device"
	"github.com/helyim/demikernel/fake"
	"github.com/helyim/demikernel/pool"
	"github.com/helyim/demikernel/sga"
	"github.com/helyim/demikernel/task"
)

func testBook() (*addressbook.Book, addressbook.MAC, addressbook.MAC) {
	book := addressbook.New()
	macA := addressbook.MAC{2, 0, 0, 0, 0, 1}
	macB := addressbook.MAC{2, 0, 0, 0, 0, 2}
	book.Register([4]byte{10, 0, 0, 5}, macA)
	book.Register([4]byte{10, 0, 0, 7}, macB)
	return book, macA, macB
}

// A zero-accepted transmit burst leaves the push pending; the retry on
// the next progress cycle completes it.
func TestSendRetriesAfterZeroAcceptedBurst(t *testing.T) {
	book, macA, _ := testBook()
	var sent [][]byte
	calls := 0
	nic := &api.MockTransport{
		SendFunc: func(frames [][]byte) error {
			calls++
			if calls == 1 {
				return api.ErrResourceExhausted
			}
			sent = append(sent, frames...)
			return nil
		},
		RecvFunc: func() ([][]byte, error) { return nil, nil },
	}
	ctx := &device.Context{MAC: macA, IP: [4]byte{10, 0, 0, 5}, NIC: nic, Books: book}

	q := New()
	if err := q.Bind([4]byte{10, 0, 0, 5}, 4000, ctx.IP); err != nil {
		t.Fatalf("bind: %v", err)
	}
	in := sga.New([]byte("ping"))
	in.PeerAddr = &sga.Addr{IP: [4]byte{10, 0, 0, 7}, Port: 5000}
	tk := &task.Task{Token: task.NewToken(1, task.KindPush), Kind: task.KindPush, SGA: in}

	ProgressSend(tk, q, ctx)
	if tk.Done {
		t.Fatalf("push must stay pending after a zero-accepted burst (err=%v)", tk.Err)
	}
	ProgressSend(tk, q, ctx)
	if !tk.Done || tk.Err != nil {
		t.Fatalf("push should complete on retry: done=%v err=%v", tk.Done, tk.Err)
	}
	if tk.Result != in.TotalLen() {
		t.Fatalf("result = %d, want payload byte count %d", tk.Result, in.TotalLen())
	}
	if len(sent) != 1 {
		t.Fatalf("device accepted %d frames, want 1", len(sent))
	}
}

// Unicast over a loopback NIC pair delivers the payload and the
// sender's bound address.
func TestUnicastRoundTrip(t *testing.T) {
	book, macA, macB := testBook()
	nicA, nicB := fake.NewLoopbackPair()
	ctxA := &device.Context{MAC: macA, IP: [4]byte{10, 0, 0, 5}, NIC: nicA, Books: book}
	ctxB := &device.Context{MAC: macB, IP: [4]byte{10, 0, 0, 7}, NIC: nicB, Books: book}
	p := pool.NewBufferPoolManager().GetPool(-1)

	qA := New()
	if err := qA.Bind([4]byte{10, 0, 0, 5}, 4000, ctxA.IP); err != nil {
		t.Fatalf("bind A: %v", err)
	}
	qB := New()
	if err := qB.Bind([4]byte{10, 0, 0, 7}, 5000, ctxB.IP); err != nil {
		t.Fatalf("bind B: %v", err)
	}

	in := sga.New([]byte("ping"))
	in.PeerAddr = &sga.Addr{IP: [4]byte{10, 0, 0, 7}, Port: 5000}
	push := &task.Task{Token: task.NewToken(1, task.KindPush), Kind: task.KindPush, SGA: in}
	ProgressSend(push, qA, ctxA)
	if !push.Done || push.Err != nil {
		t.Fatalf("send: done=%v err=%v", push.Done, push.Err)
	}

	pop := &task.Task{Token: task.NewToken(2, task.KindPop), Kind: task.KindPop}
	ProgressRecv(pop, qB, ctxB, p)
	if !pop.Done || pop.Err != nil {
		t.Fatalf("recv: done=%v err=%v", pop.Done, pop.Err)
	}
	if pop.Result != in.TotalLen() {
		t.Fatalf("result = %d, want %d", pop.Result, in.TotalLen())
	}
	out := pop.SGA
	if out.NumSegs() != 1 || string(out.Segs[0].Buf) != "ping" {
		t.Fatalf("payload mismatch: %+v", out)
	}
	if out.PeerAddr == nil || out.PeerAddr.IP != ctxA.IP || out.PeerAddr.Port != 4000 {
		t.Fatalf("peer address mismatch: %+v", out.PeerAddr)
	}
	out.Release()
}

// A frame addressed to another port is silently freed and the pop
// stays pending.
func TestFilteredFrameLeavesPopPending(t *testing.T) {
	book, macA, macB := testBook()
	nicA, nicB := fake.NewLoopbackPair()
	ctxA := &device.Context{MAC: macA, IP: [4]byte{10, 0, 0, 5}, NIC: nicA, Books: book}
	ctxB := &device.Context{MAC: macB, IP: [4]byte{10, 0, 0, 7}, NIC: nicB, Books: book}
	p := pool.NewBufferPoolManager().GetPool(-1)

	qA := New()
	if err := qA.Bind([4]byte{10, 0, 0, 5}, 4000, ctxA.IP); err != nil {
		t.Fatalf("bind A: %v", err)
	}
	qB := New()
	if err := qB.Bind([4]byte{10, 0, 0, 7}, 5000, ctxB.IP); err != nil {
		t.Fatalf("bind B: %v", err)
	}

	in := sga.New([]byte("stray"))
	in.PeerAddr = &sga.Addr{IP: [4]byte{10, 0, 0, 7}, Port: 5001} // not B's bound port
	push := &task.Task{Token: task.NewToken(1, task.KindPush), Kind: task.KindPush, SGA: in}
	ProgressSend(push, qA, ctxA)
	if !push.Done || push.Err != nil {
		t.Fatalf("send: done=%v err=%v", push.Done, push.Err)
	}

	pop := &task.Task{Token: task.NewToken(2, task.KindPop), Kind: task.KindPop}
	for i := 0; i < 3; i++ {
		ProgressRecv(pop, qB, ctxB, p)
	}
	if pop.Done {
		t.Fatalf("filtered frame must leave the pop pending: %+v", pop)
	}
	if qB.backlog.Len() != 0 {
		t.Fatalf("filtered frame should have been freed, backlog len=%d", qB.backlog.Len())
	}
}

// A send with neither an SGA peer nor a connected default fails
// synchronously.
func TestSendWithoutPeerFails(t *testing.T) {
	book, macA, _ := testBook()
	nic := &api.MockTransport{
		SendFunc: func([][]byte) error { return nil },
		RecvFunc: func() ([][]byte, error) { return nil, nil },
	}
	ctx := &device.Context{MAC: macA, IP: [4]byte{10, 0, 0, 5}, NIC: nic, Books: book}

	q := New()
	push := &task.Task{Token: task.NewToken(1, task.KindPush), Kind: task.KindPush, SGA: sga.New([]byte("x"))}
	ProgressSend(push, q, ctx)
	if !push.Done || push.Err == nil {
		t.Fatalf("expected a synchronous failure, got done=%v err=%v", push.Done, push.Err)
	}

	// After Connect records a default peer, the same push shape works.
	if err := q.Connect(sga.Addr{IP: [4]byte{10, 0, 0, 7}, Port: 5000}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	push2 := &task.Task{Token: task.NewToken(2, task.KindPush), Kind: task.KindPush, SGA: sga.New([]byte("x"))}
	ProgressSend(push2, q, ctx)
	if !push2.Done || push2.Err != nil {
		t.Fatalf("connected send: done=%v err=%v", push2.Done, push2.Err)
	}
}
