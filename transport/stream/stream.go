// Package stream implements the stream transport adapter: it wraps a
// user-space TCP endpoint (here, the standard net package's TCP
// implementation standing in for the external user-space TCP stack)
// and executes the framed I/O described in codec against it using
// non-blocking reads/writes.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package stream

import (
	"errors"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/helyim/demikernel/api"
	"github.com/helyim/demikernel/codec"
	"github.com/helyim/demikernel/task"
)

// ErrPoisoned is returned for any operation attempted on a connection
// that has already failed a protocol check (magic mismatch); stream
// protocol errors poison the connection.
var ErrPoisoned = errors.New("stream: connection is poisoned by a prior protocol error")

// deadlineNow makes the next read/write on conn return immediately with
// os.ErrDeadlineExceeded if it would otherwise block, emulating
// non-blocking sockets on top of net.Conn's blocking API.
var deadlineNow = time.Unix(1, 0)

// wouldBlock reports whether err is the "no data/space available yet"
// signal from a deadline-based non-blocking attempt.
func wouldBlock(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded)
}

// Queue is the stream-kind transport state backing one qio queue: either
// a single connected/connecting socket, or — after Listen — a listener
// plus a FIFO of accepted child connections awaiting adoption.
type Queue struct {
	mu sync.Mutex

	conn     net.Conn
	listener net.Listener
	bindAddr string
	accepted []net.Conn // FIFO of kernel-accepted, not-yet-adopted children

	// writer/reader pin the socket's write and read side to the task
	// currently mid-frame, so the work queue cannot interleave a second
	// frame's bytes into a partially transferred one. A partial write
	// therefore blocks every push submitted behind it.
	writer *task.Task
	reader *task.Task

	// Edge-triggered readiness state fed by the carrier thread's
	// poller: an EAGAIN sets the blocked flag, the next readiness edge
	// clears it, and progress skips the syscall in between. With no
	// poller attached every attempt is speculative.
	poller       api.Reactor
	fd           uintptr
	interest     api.Interest
	readBlocked  bool
	writeBlocked bool

	poisoned bool
	closed   bool
}

// New returns an unconnected, unbound stream queue.
func New() *Queue {
	return &Queue{}
}

// Bind records the local address a subsequent Listen call will use.
// net.Listen performs the actual bind, so Bind here is bookkeeping only
// — consistent with the control plane being separable from Listen.
func (q *Queue) Bind(addr string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.conn != nil || q.listener != nil {
		return errors.New("stream: queue already connected or listening")
	}
	q.bindAddr = addr
	return nil
}

// Listen starts listening on the bound address. backlog is advisory —
// the Go runtime's listen backlog is not directly tunable per-call, so
// it is accepted for API compatibility and otherwise ignored, same as
// most net.Listen wrappers in the corpus.
func (q *Queue) Listen(backlog int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.bindAddr == "" {
		return errors.New("stream: Listen called before Bind")
	}
	l, err := net.Listen("tcp", q.bindAddr)
	if err != nil {
		return err
	}
	q.listener = l
	return nil
}

// Addr returns the listener's bound address (useful when Bind used an
// ephemeral port), or nil if this queue isn't listening.
func (q *Queue) Addr() net.Addr {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.listener == nil {
		return nil
	}
	return q.listener.Addr()
}

// IsListening reports whether this queue is in the listening state.
func (q *Queue) IsListening() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.listener != nil
}

// Connect dials the user-space TCP stack synchronously and applies
// TCP_NODELAY plus non-blocking framing semantics on success.
func (q *Queue) Connect(addr string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.conn != nil || q.listener != nil {
		return errors.New("stream: queue already connected or listening")
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	q.conn = conn
	return nil
}

// Adopt wraps an already-accepted connection as a freshly created child
// queue, applying TCP_NODELAY. The caller registers the child with read
// interest only.
func Adopt(conn net.Conn) *Queue {
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return &Queue{conn: conn}
}

// Close shuts down the underlying socket(s). Idempotent.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	if q.poller != nil {
		_ = q.poller.Deregister(q.fd)
		q.poller = nil
	}
	var err error
	if q.conn != nil {
		err = q.conn.Close()
	}
	if q.listener != nil {
		if lerr := q.listener.Close(); err == nil {
			err = lerr
		}
	}
	for _, c := range q.accepted {
		_ = c.Close()
	}
	q.accepted = nil
	return err
}

// rawFD extracts the OS handle behind a net.Conn or net.Listener.
func rawFD(v any) (uintptr, bool) {
	sc, ok := v.(syscall.Conn)
	if !ok {
		return 0, false
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return 0, false
	}
	var fd uintptr
	if err := rc.Control(func(f uintptr) { fd = f }); err != nil {
		return 0, false
	}
	return fd, true
}

// AttachPoller enrolls this queue's socket (or listener) with the
// carrier thread's readiness poller under the given interest set.
// Registration failure leaves the queue pollerless, which only costs
// extra speculative syscalls.
func (q *Queue) AttachPoller(r api.Reactor, userData uintptr, interest api.Interest) {
	if r == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	var fd uintptr
	var ok bool
	switch {
	case q.conn != nil:
		fd, ok = rawFD(q.conn)
	case q.listener != nil:
		fd, ok = rawFD(q.listener)
	}
	if !ok {
		return
	}
	if err := r.Register(fd, userData, interest); err != nil {
		return
	}
	q.poller = r
	q.fd = fd
	q.interest = interest
}

// MarkReady consumes a readiness edge delivered by the poller.
func (q *Queue) MarkReady(ready api.Interest) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if ready&api.InterestRead != 0 {
		q.readBlocked = false
	}
	if ready&api.InterestWrite != 0 {
		q.writeBlocked = false
	}
}

// setReadBlocked/setWriteBlocked park a direction until the next edge.
// A direction the poller was never asked to watch stays unblocked, or
// no edge would ever release it.
func (q *Queue) setReadBlocked() {
	q.mu.Lock()
	if q.poller != nil && q.interest&api.InterestRead != 0 {
		q.readBlocked = true
	}
	q.mu.Unlock()
}

func (q *Queue) setWriteBlocked() {
	q.mu.Lock()
	if q.poller != nil && q.interest&api.InterestWrite != 0 {
		q.writeBlocked = true
	}
	q.mu.Unlock()
}

// AbortPush releases the write side held by a dropped push task. A push
// dropped mid-frame leaves the on-wire byte stream unparseable from the
// peer's point of view, so the endpoint is closed and the queue poisoned
// rather than letting a later frame splice onto the partial one.
func AbortPush(t *task.Task, q *Queue) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.writer == t {
		q.writer = nil
	}
	if !t.Done && t.BytesTransferred > 0 && t.BytesTransferred < len(t.Scratch) {
		q.poisoned = true
		if q.conn != nil {
			_ = q.conn.Close()
		}
	}
}

// AbortPop releases the read side held by a dropped pop task, poisoning
// the connection when the drop lands mid-frame for the same reason as
// AbortPush: the remaining bytes of the partial frame cannot be
// re-synchronized.
func AbortPop(t *task.Task, q *Queue) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.reader == t {
		q.reader = nil
	}
	if !t.Done && (t.BytesTransferred > 0 || t.Phase == 1) {
		q.poisoned = true
		if q.conn != nil {
			_ = q.conn.Close()
		}
	}
}

// RemoteAddr returns the peer address of a connected queue, or nil when
// the queue has no established connection. For an accepted child this is
// the address the accept recorded.
func (q *Queue) RemoteAddr() net.Addr {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.conn == nil {
		return nil
	}
	return q.conn.RemoteAddr()
}

// ProgressAccept drains every connection the kernel has ready into the
// per-queue accept FIFO, then hands out the oldest one. ok is false
// (with a nil error) when the FIFO is empty and nothing new is ready —
// the caller leaves the task pending and retries on the next progress
// cycle.
func ProgressAccept(q *Queue) (conn net.Conn, ok bool, err error) {
	q.mu.Lock()
	l := q.listener
	drain := !(q.poller != nil && q.readBlocked)
	q.mu.Unlock()
	if l == nil {
		return nil, false, errors.New("stream: accept on a non-listening queue")
	}
	for drain {
		if tl, isTCP := l.(*net.TCPListener); isTCP {
			_ = tl.SetDeadline(deadlineNow)
		}
		c, aerr := l.Accept()
		if aerr != nil {
			if wouldBlock(aerr) {
				q.setReadBlocked()
				break
			}
			return nil, false, aerr
		}
		if tc, isTCP := c.(*net.TCPConn); isTCP {
			_ = tc.SetNoDelay(true)
		}
		q.mu.Lock()
		q.accepted = append(q.accepted, c)
		q.mu.Unlock()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.accepted) == 0 {
		return nil, false, nil
	}
	conn = q.accepted[0]
	q.accepted = q.accepted[1:]
	return conn, true, nil
}

// ProgressPush advances a pending push task by attempting a non-blocking
// write of the framed SGA. On first call it flattens the frame into
// t.Scratch; subsequent calls resume from t.BytesTransferred.
func ProgressPush(t *task.Task, q *Queue) {
	q.mu.Lock()
	conn, poisoned := q.conn, q.poisoned
	if !poisoned {
		if q.writer != nil && q.writer != t {
			q.mu.Unlock()
			return // another push is mid-frame; stay pending behind it
		}
		if q.poller != nil && q.writeBlocked {
			q.mu.Unlock()
			return // no writability edge since the last EAGAIN
		}
		q.writer = t
	}
	q.mu.Unlock()
	if poisoned {
		t.Done, t.Err = true, ErrPoisoned
		return
	}
	defer func() {
		if t.Done {
			q.mu.Lock()
			q.writer = nil
			q.mu.Unlock()
		}
	}()
	if conn == nil {
		t.Done, t.Err = true, errors.New("stream: push on an unconnected queue")
		return
	}
	if t.Scratch == nil {
		t.Scratch = codec.EncodeStreamFrameBytes(t.SGA)
	}
	if tc, ok := conn.(interface{ SetWriteDeadline(time.Time) error }); ok {
		_ = tc.SetWriteDeadline(deadlineNow)
	}
	n, err := conn.Write(t.Scratch[t.BytesTransferred:])
	t.BytesTransferred += n
	if err != nil {
		if !wouldBlock(err) {
			t.Done, t.Err = true, err
			return
		}
		q.setWriteBlocked()
	}
	if t.BytesTransferred >= len(t.Scratch) {
		t.Done = true
		t.Result = t.SGA.TotalLen()
	}
	// Otherwise: would-block or partial write — task remains pending.
}

// ProgressPop advances a pending pop task through the two-phase
// header-then-payload read described in codec, allocating the final
// SGA's segment buffers from pool.
func ProgressPop(t *task.Task, q *Queue, pool api.BufferPool) {
	q.mu.Lock()
	conn, poisoned := q.conn, q.poisoned
	if !poisoned {
		if q.reader != nil && q.reader != t {
			q.mu.Unlock()
			return // another pop is mid-frame; stay pending behind it
		}
		if q.poller != nil && q.readBlocked {
			q.mu.Unlock()
			return // no readability edge since the last EAGAIN
		}
		q.reader = t
	}
	q.mu.Unlock()
	if poisoned {
		t.Done, t.Err = true, ErrPoisoned
		return
	}
	defer func() {
		if t.Done {
			q.mu.Lock()
			q.reader = nil
			q.mu.Unlock()
		}
	}()
	if conn == nil {
		t.Done, t.Err = true, errors.New("stream: pop on an unconnected queue")
		return
	}
	if tc, ok := conn.(interface{ SetReadDeadline(time.Time) error }); ok {
		_ = tc.SetReadDeadline(deadlineNow)
	}

	if t.Phase == 0 {
		if t.Scratch == nil {
			t.Scratch = make([]byte, codec.HeaderLen)
		}
		n, err := conn.Read(t.Scratch[t.BytesTransferred:])
		t.BytesTransferred += n
		if err != nil {
			if !wouldBlock(err) {
				t.Done, t.Err = true, err
				return
			}
			q.setReadBlocked()
		}
		if t.BytesTransferred < codec.HeaderLen {
			return // pending: partial or would-block header read
		}
		var hdr [codec.HeaderLen]byte
		copy(hdr[:], t.Scratch)
		payloadLen, numSegs, err := codec.DecodeStreamHeader(hdr)
		if err != nil {
			q.mu.Lock()
			q.poisoned = true
			q.mu.Unlock()
			t.Done, t.Err = true, err
			return
		}
		t.Header = [3]uint64{codec.Magic, payloadLen, numSegs}
		t.Phase = 1
		t.Scratch = make([]byte, payloadLen)
		t.BytesTransferred = 0
		// Fall through: attempt to read payload bytes already available
		// on the same progress step.
	}

	n, err := conn.Read(t.Scratch[t.BytesTransferred:])
	t.BytesTransferred += n
	if err != nil {
		if !wouldBlock(err) {
			t.Done, t.Err = true, err
			return
		}
		q.setReadBlocked()
	}
	if t.BytesTransferred < len(t.Scratch) {
		return // pending
	}
	out, err := codec.DecodeStreamPayload(t.Scratch, t.Header[2], pool)
	if err != nil {
		t.Done, t.Err = true, err
		return
	}
	t.SGA = out
	t.Done = true
	t.Result = out.TotalLen()
}
