// Package task implements the pending-request record (Task) and the
// per-queue registry that tracks outstanding push/pop operations: a
// map keyed by token for O(1) lookup plus a FIFO of references that
// orders progress, per the pending-map-plus-tombstoned-FIFO design.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package task

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/eapache/queue"
	"github.com/helyim/demikernel/sga"
)

// Kind distinguishes a push (outgoing) task from a pop (incoming) one.
// The low-order bit of every Token encodes this, so the runtime can
// recover the kind from the token alone.
type Kind uint8

const (
	KindPush Kind = 0
	KindPop  Kind = 1
)

// Token is the opaque, application-supplied operation identifier.
// Bit 0 encodes Kind; the remaining 63 bits are caller-issued and need
// only be unique within a queue among concurrently outstanding operations.
type Token uint64

// Kind extracts the operation kind encoded in the token's low bit.
func (t Token) Kind() Kind {
	if t&1 != 0 {
		return KindPop
	}
	return KindPush
}

// NewToken builds a token from a caller-issued sequence number and a kind.
func NewToken(seq uint64, k Kind) Token {
	seq <<= 1
	if k == KindPop {
		seq |= 1
	}
	return Token(seq)
}

const maxTokenRetries = 500

// RandomToken generates a collision-free token for the given registry,
// retrying a bounded number of times on collision before giving up —
// mirroring the original scheduler's bounded random-id retry loop.
func RandomToken(r *Registry, k Kind) (Token, error) {
	var buf [8]byte
	for i := 0; i < maxTokenRetries; i++ {
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("task: random token read: %w", err)
		}
		seq := binary.BigEndian.Uint64(buf[:]) >> 1
		tok := NewToken(seq, k)
		if !r.Exists(tok) {
			return tok, nil
		}
	}
	return 0, fmt.Errorf("task: could not allocate a unique token after %d attempts", maxTokenRetries)
}

// Task is the per-operation state backing an outstanding push or pop.
type Task struct {
	Token            Token
	Kind             Kind
	SGA              *sga.SGA
	Header           [3]uint64 // magic, payload_len, num_segs
	BytesTransferred int
	Done             bool
	Result           int
	Err              error

	// Scratch and Phase are transport-owned resumable I/O state: the
	// stream adapter uses Scratch to hold the flattened frame (push) or
	// the in-flight header/payload bytes (pop, switching at Phase 1),
	// so progress can resume from BytesTransferred on a partial syscall
	// without reconstructing earlier work.
	Scratch []byte
	Phase   int

	dropped bool
}

// Registry owns the pending map and work FIFO for a single queue.
// Deletion via the map leaves the FIFO entry as a tombstone, which
// Progress skips as it walks the queue.
type Registry struct {
	mu      sync.Mutex
	pending map[Token]*Task
	fifo    *queue.Queue
}

// NewRegistry creates an empty per-queue task registry.
func NewRegistry() *Registry {
	return &Registry{
		pending: make(map[Token]*Task),
		fifo:    queue.New(),
	}
}

// Exists reports whether a task for this token is currently registered.
func (r *Registry) Exists(tok Token) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[tok]
	return ok
}

// Submit enrolls a new task. It fails if a task for this token already
// exists: at most one Task per (QD, token) at a time.
func (r *Registry) Submit(t *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pending[t.Token]; exists {
		return fmt.Errorf("task: token %d already has an outstanding operation", t.Token)
	}
	r.pending[t.Token] = t
	r.fifo.Add(t)
	return nil
}

// Lookup returns the task for a token, or (nil, false) if unknown or
// already observed/dropped.
func (r *Registry) Lookup(tok Token) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.pending[tok]
	return t, ok
}

// Remove deletes a task from the pending map and tombstones its FIFO
// entry; used both when the application observes completion and when
// it calls drop.
func (r *Registry) Remove(tok Token) *Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.pending[tok]
	if !ok {
		return nil
	}
	delete(r.pending, tok)
	t.dropped = true
	return t
}

// Len reports the number of tasks currently pending (tombstones excluded).
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Progress walks at most maxSteps live entries from the head of the
// FIFO, invoking step for each. A task completed by step (Done==true)
// leaves the FIFO but stays in the pending map until the application
// observes it via poll/wait; a still-pending task is re-enqueued at the
// tail, preserving submission order among outstanding tasks. Tombstoned
// entries (dropped or already observed) are discarded without counting
// against maxSteps.
func (r *Registry) Progress(maxSteps int, step func(*Task)) {
	for i := 0; i < maxSteps; i++ {
		r.mu.Lock()
		var front *Task
		for r.fifo.Length() > 0 {
			head := r.fifo.Remove().(*Task)
			if head.dropped || head.Done {
				continue // tombstone, or completed and awaiting observation
			}
			front = head
			break
		}
		r.mu.Unlock()
		if front == nil {
			return
		}

		step(front)

		r.mu.Lock()
		if !front.Done && !front.dropped {
			r.fifo.Add(front)
		}
		r.mu.Unlock()
	}
}
