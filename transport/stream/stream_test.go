package stream

import (
	"net"
	"os"
	"time"

	"testing"

	"github.com/helyim/demikernel/codec"
	"github.com/helyim/demikernel/sga"
	"github.com/helyim/demikernel/task"
)

// partialConn is a net.Conn stub whose Write accepts at most chunk bytes
// per call, returning os.ErrDeadlineExceeded for the remainder — the same
// signal a real deadline-truncated write produces — so ProgressPush must
// resume from t.BytesTransferred across several calls.
type partialConn struct {
	chunk int
	out   []byte
	eof   bool
}

func (c *partialConn) Write(p []byte) (int, error) {
	n := len(p)
	if n > c.chunk {
		n = c.chunk
	}
	c.out = append(c.out, p[:n]...)
	if n < len(p) {
		return n, os.ErrDeadlineExceeded
	}
	return n, nil
}

func (c *partialConn) Read(p []byte) (int, error) {
	if c.eof {
		return 0, os.ErrDeadlineExceeded
	}
	c.eof = true
	return 0, os.ErrDeadlineExceeded
}
func (c *partialConn) Close() error                       { return nil }
func (c *partialConn) LocalAddr() net.Addr                { return nil }
func (c *partialConn) RemoteAddr() net.Addr               { return nil }
func (c *partialConn) SetDeadline(time.Time) error        { return nil }
func (c *partialConn) SetReadDeadline(time.Time) error    { return nil }
func (c *partialConn) SetWriteDeadline(time.Time) error   { return nil }

// A writer that only accepts a handful of bytes per syscall still
// delivers the full frame across repeated progress steps.
func TestStreamPartialWriteResumes(t *testing.T) {
	conn := &partialConn{chunk: 7}
	q := Adopt(conn)

	in := sga.New([]byte("hello world, this is more than seven bytes"))
	tk := &task.Task{Token: task.NewToken(1, task.KindPush), Kind: task.KindPush, SGA: in}

	want := codec.EncodeStreamFrameBytes(in)
	steps := 0
	for !tk.Done {
		ProgressPush(tk, q)
		steps++
		if steps > len(want)+10 {
			t.Fatalf("push did not converge after %d steps", steps)
		}
	}
	if tk.Err != nil {
		t.Fatalf("unexpected error: %v", tk.Err)
	}
	if tk.Result != in.TotalLen() {
		t.Fatalf("result = %d, want %d", tk.Result, in.TotalLen())
	}
	if steps <= 1 {
		t.Fatalf("expected more than one progress step with chunk size 7, got %d", steps)
	}
	if string(conn.out) != string(want) {
		t.Fatalf("bytes written mismatch:\ngot  %q\nwant %q", conn.out, want)
	}
}
