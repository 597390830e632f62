package qio

import (
	"sync"
	"sync/atomic"

	"github.com/helyim/demikernel/api"
	"github.com/helyim/demikernel/task"
)

// qdCounter is process-wide so concurrently created queues across
// multiple carrier threads never collide, even though each Runtime's
// own queue map is thread-local.
var qdCounter int64

func allocQD() QD {
	return QD(atomic.AddInt64(&qdCounter, 1))
}

// Queue is the tagged record backing one descriptor: a sum type over
// the stream and datagram transport states, discriminated at the
// runtime boundary so the hot path never pays virtual dispatch.
type Queue struct {
	QD       QD
	Kind     Kind
	Stream   *streamQueue
	Datagram *datagramQueue
	Registry *task.Registry
	State    api.QueueState
}

// table is the thread-local descriptor table a single Runtime owns:
// create, lookup and destroy, plus count, totalPending and drain.
type table struct {
	mu      sync.Mutex
	queues  map[QD]*Queue
}

func newTable() *table {
	return &table{queues: make(map[QD]*Queue)}
}

func (t *table) create(k Kind) *Queue {
	q := &Queue{QD: allocQD(), Kind: k, Registry: task.NewRegistry()}
	t.mu.Lock()
	t.queues[q.QD] = q
	t.mu.Unlock()
	return q
}

func (t *table) lookup(qd QD) (*Queue, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	q, ok := t.queues[qd]
	return q, ok
}

// count reports how many queues are currently open, for debug probes.
func (t *table) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queues)
}

// totalPending sums outstanding tasks across every queue this runtime
// owns, backing the runtime-wide task bound.
func (t *table) totalPending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, q := range t.queues {
		n += q.Registry.Len()
	}
	return n
}

// drain removes and returns every queue at once, for shutdown.
func (t *table) drain() []*Queue {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Queue, 0, len(t.queues))
	for _, q := range t.queues {
		out = append(out, q)
	}
	t.queues = make(map[QD]*Queue)
	return out
}

// destroy removes qd from the table. It fails with ErrBusy if the
// queue still has outstanding tasks: a QD is never reused while any
// Task references it.
func (t *table) destroy(qd QD) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	q, ok := t.queues[qd]
	if !ok {
		return newError(ErrUnknownDescriptor, "qio: unknown queue descriptor")
	}
	if q.Registry.Len() > 0 {
		return newError(ErrBusy, "qio: queue has outstanding tasks")
	}
	delete(t.queues, qd)
	return nil
}
