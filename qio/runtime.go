package qio

import (
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/helyim/demikernel/api"
	"github.com/helyim/demikernel/control"
	"github.com/helyim/demikernel/device"
	"github.com/helyim/demikernel/reactor"
	"github.com/helyim/demikernel/sga"
	"github.com/helyim/demikernel/task"
	"github.com/helyim/demikernel/transport/datagram"
	"github.com/helyim/demikernel/transport/stream"
)

type streamQueue = stream.Queue
type datagramQueue = datagram.Queue

// Runtime is the per-carrier-thread queue runtime: it owns a
// thread-local descriptor table and drives progress on every queue's
// work queue. Nothing here is safe to share across goroutines running
// on different carrier threads — each Runtime is meant to be used by
// exactly one thread (pinned via adapters.AffinityAdapter).
type Runtime struct {
	table  *table
	pool   api.BufferPool
	device *device.Context
	poller api.Reactor
	cfg    Config

	Metrics *control.MetricsRegistry
	Debug   *control.DebugProbes

	startedAt time.Time
	bytesSent int64
	bytesRecv int64
}

// NewRuntime constructs a Runtime. device may be nil for stream-only
// use; it is required for any datagram queue. A MetricsRegistry and
// DebugProbes are always attached (per the ambient observability
// stack) even though nothing outside this package registers listeners
// on them yet.
func NewRuntime(cfg Config, pool api.BufferPool, dev *device.Context) *Runtime {
	if cfg.MaxProgressSteps <= 0 {
		cfg.MaxProgressSteps = DefaultConfig().MaxProgressSteps
	}
	rt := &Runtime{
		table:     newTable(),
		pool:      pool,
		device:    dev,
		cfg:       cfg,
		Metrics:   control.NewMetricsRegistry(),
		Debug:     control.NewDebugProbes(),
		startedAt: time.Now(),
	}
	// A missing readiness backend is not an error: stream progress then
	// attempts I/O speculatively instead of waiting for edges.
	if p, err := reactor.New(); err == nil {
		rt.poller = p
	}
	rt.Debug.RegisterProbe("qio.queues", func() any { return rt.table.count() })
	rt.Debug.RegisterProbe("qio.pool", func() any {
		if rt.pool == nil {
			return nil
		}
		return rt.pool.Stats()
	})
	return rt
}

// recordObserved folds a completed task's byte count into the running
// send/receive counters and mirrors them into Metrics. Counting here
// (rather than at progressOne) means a task observed twice — synchronous
// completion followed by a stray Poll — can never double count, since
// callers only reach this once per completed token. An accepted child
// QD is not a byte count and is excluded.
func (rt *Runtime) recordObserved(t *task.Task) {
	switch t.Kind {
	case task.KindPush:
		n := atomic.AddInt64(&rt.bytesSent, int64(t.Result))
		rt.Metrics.Set("qio.bytes_sent", n)
	case task.KindPop:
		if t.SGA == nil {
			return // an accept's Result is a child QD, not a byte count
		}
		n := atomic.AddInt64(&rt.bytesRecv, int64(t.Result))
		rt.Metrics.Set("qio.bytes_recv", n)
	}
}

// Queue creates a new queue of the given kind. KindFile is a reserved
// stub and always fails unsupported; only network queues are backed.
func (rt *Runtime) Queue(kind Kind) (QD, error) {
	switch kind {
	case KindStream:
		q := rt.table.create(KindStream)
		q.Stream = stream.New()
		return q.QD, nil
	case KindDatagram:
		q := rt.table.create(KindDatagram)
		q.Datagram = datagram.New()
		return q.QD, nil
	default:
		return 0, newError(ErrUnsupported, fmt.Sprintf("qio: unsupported queue kind %v", kind))
	}
}

func (rt *Runtime) lookup(qd QD) (*Queue, *Error) {
	q, ok := rt.table.lookup(qd)
	if !ok {
		return nil, newError(ErrUnknownDescriptor, "qio: unknown queue descriptor")
	}
	return q, nil
}

func parseIPPort(addr string) (ip [4]byte, port uint16, err error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return ip, 0, err
	}
	p, err := strconv.Atoi(portStr)
	if err != nil {
		return ip, 0, fmt.Errorf("qio: invalid port %q", portStr)
	}
	if host == "" || host == "0.0.0.0" {
		return ip, uint16(p), nil
	}
	parsed := net.ParseIP(host).To4()
	if parsed == nil {
		return ip, 0, fmt.Errorf("qio: invalid IPv4 address %q", host)
	}
	copy(ip[:], parsed)
	return ip, uint16(p), nil
}

// Bind performs the bind control-plane call for either queue kind.
func (rt *Runtime) Bind(qd QD, addr string) error {
	q, e := rt.lookup(qd)
	if e != nil {
		return e
	}
	switch q.Kind {
	case KindStream:
		if err := q.Stream.Bind(addr); err != nil {
			return wrapError(ErrInvalidArgument, err)
		}
	case KindDatagram:
		ip, port, err := parseIPPort(addr)
		if err != nil {
			return wrapError(ErrInvalidArgument, err)
		}
		if rt.device == nil {
			return newError(ErrInvalidArgument, "qio: datagram bind requires a device context")
		}
		if err := q.Datagram.Bind(ip, port, rt.device.IP); err != nil {
			return wrapError(ErrInvalidArgument, err)
		}
	default:
		return newError(ErrUnsupported, "qio: bind not supported for this queue kind")
	}
	q.State = api.QueueBound
	return nil
}

// Listen transitions a stream queue to the listening state.
func (rt *Runtime) Listen(qd QD, backlog int) error {
	q, e := rt.lookup(qd)
	if e != nil {
		return e
	}
	if q.Kind != KindStream {
		return newError(ErrUnsupported, "qio: listen is stream-only")
	}
	if err := q.Stream.Listen(backlog); err != nil {
		return wrapError(ErrTransportIO, err)
	}
	q.Stream.AttachPoller(rt.poller, uintptr(q.QD), api.InterestRead)
	q.State = api.QueueListening
	return nil
}

// Connect performs the connect control-plane call. On stream queues
// this dials synchronously; on datagram queues it only records a
// default peer.
func (rt *Runtime) Connect(qd QD, addr string) error {
	q, e := rt.lookup(qd)
	if e != nil {
		return e
	}
	switch q.Kind {
	case KindStream:
		if err := q.Stream.Connect(addr); err != nil {
			return wrapError(ErrTransportIO, err)
		}
		q.Stream.AttachPoller(rt.poller, uintptr(q.QD), api.InterestRead|api.InterestWrite)
	case KindDatagram:
		ip, port, err := parseIPPort(addr)
		if err != nil {
			return wrapError(ErrInvalidArgument, err)
		}
		if err := q.Datagram.Connect(sga.Addr{IP: ip, Port: port}); err != nil {
			return wrapError(ErrInvalidArgument, err)
		}
	default:
		return newError(ErrUnsupported, "qio: connect not supported for this queue kind")
	}
	q.State = api.QueueConnected
	return nil
}

// Close shuts down the queue's transport and removes it from the
// descriptor table. It fails with ErrBusy if tasks are still
// outstanding, consistent with the table's destroy contract.
func (rt *Runtime) Close(qd QD) error {
	q, e := rt.lookup(qd)
	if e != nil {
		return e
	}
	if err := rt.table.destroy(qd); err != nil {
		return err
	}
	q.State = api.QueueClosed
	switch q.Kind {
	case KindStream:
		return q.Stream.Close()
	case KindDatagram:
		return q.Datagram.Close()
	}
	return nil
}

// State reports a queue's current lifecycle state.
func (rt *Runtime) State(qd QD) (api.QueueState, error) {
	q, e := rt.lookup(qd)
	if e != nil {
		return 0, e
	}
	return q.State, nil
}

// pollReadiness drains the carrier thread's readiness poller and routes
// each edge to its queue by the QD carried as the registration's user
// data. Unknown descriptors (queue closed since registration) are
// ignored.
func (rt *Runtime) pollReadiness() {
	if rt.poller == nil {
		return
	}
	var events [16]api.Event
	for {
		n, err := rt.poller.Poll(events[:])
		if err != nil || n == 0 {
			return
		}
		for _, ev := range events[:n] {
			if q, ok := rt.table.lookup(QD(ev.UserData)); ok && q.Kind == KindStream {
				q.Stream.MarkReady(ev.Ready)
			}
		}
		if n < len(events) {
			return
		}
	}
}

// progressOne dispatches one progress step for a single task, routed by
// queue kind, task kind, and (for stream) listening state.
func (rt *Runtime) progressOne(q *Queue, t *task.Task) {
	switch q.Kind {
	case KindStream:
		if t.Kind == task.KindPush {
			stream.ProgressPush(t, q.Stream)
			return
		}
		if q.Stream.IsListening() {
			rt.progressAccept(q, t)
			return
		}
		stream.ProgressPop(t, q.Stream, rt.pool)
	case KindDatagram:
		if rt.device == nil {
			t.Done, t.Err = true, newError(ErrInvalidArgument, "qio: datagram queue requires a device context")
			return
		}
		if t.Kind == task.KindPush {
			datagram.ProgressSend(t, q.Datagram, rt.device)
		} else {
			datagram.ProgressRecv(t, q.Datagram, rt.device, rt.pool)
		}
	}
}

// progressAccept is pop-progress for a listening queue: it calls
// accept instead of reading, and on success a freshly registered child
// queue is created and its QD becomes the task's Result.
func (rt *Runtime) progressAccept(q *Queue, t *task.Task) {
	conn, ok, err := stream.ProgressAccept(q.Stream)
	if err != nil {
		t.Done, t.Err = true, wrapError(ErrTransportIO, err)
		return
	}
	if !ok {
		return // pending: no connection ready yet
	}
	child := rt.table.create(KindStream)
	child.Stream = stream.Adopt(conn)
	// The child enrolls with read interest only; write interest would
	// claim a spurious first edge it has not asked for.
	child.Stream.AttachPoller(rt.poller, uintptr(child.QD), api.InterestRead)
	t.Done = true
	t.Result = int(child.QD)
}

// Push validates and submits a push task. On synchronous
// completion it returns the positive byte count; a pending=true return
// means the task is now pending and the caller should Wait/Poll it.
func (rt *Runtime) Push(qd QD, tok task.Token, s *sga.SGA) (result int, pending bool, err error) {
	if s == nil {
		return 0, false, newError(ErrInvalidArgument, "qio: push requires a non-nil sga")
	}
	q, e := rt.lookup(qd)
	if e != nil {
		return 0, false, e
	}
	t := &task.Task{Token: tok, Kind: task.KindPush, SGA: s}
	rt.progressOne(q, t)
	if t.Done {
		if t.Err != nil {
			return 0, false, wrapError(classify(t.Err), t.Err)
		}
		rt.recordObserved(t)
		return t.Result, false, nil
	}
	if err := rt.submit(q, t); err != nil {
		return 0, false, err
	}
	return 0, true, nil
}

// submit enrolls a not-yet-complete task, enforcing both token
// uniqueness and the runtime-wide outstanding-task bound.
func (rt *Runtime) submit(q *Queue, t *task.Task) *Error {
	if rt.cfg.MaxTasks > 0 && rt.table.totalPending() >= rt.cfg.MaxTasks {
		return newError(ErrOutOfMemory, "qio: outstanding task limit reached")
	}
	if err := q.Registry.Submit(t); err != nil {
		return newError(ErrInvalidArgument, err.Error())
	}
	return nil
}

// Pop validates and submits a pop task. On a listening stream
// queue the completed task's Result is a child QD rather than an SGA.
func (rt *Runtime) Pop(qd QD, tok task.Token) (s *sga.SGA, result int, pending bool, err error) {
	q, e := rt.lookup(qd)
	if e != nil {
		return nil, 0, false, e
	}
	t := &task.Task{Token: tok, Kind: task.KindPop}
	rt.progressOne(q, t)
	if t.Done {
		if t.Err != nil {
			return nil, 0, false, wrapError(classify(t.Err), t.Err)
		}
		rt.recordObserved(t)
		return t.SGA, t.Result, false, nil
	}
	if err := rt.submit(q, t); err != nil {
		return nil, 0, false, err
	}
	return nil, 0, true, nil
}

// Accept is Pop's public alias for a listening stream queue: the
// completed task's Result is the newly accepted child QD. The child's
// peer address (accept's out_addr) is available via PeerAddr.
func (rt *Runtime) Accept(qd QD, tok task.Token) (child QD, pending bool, err error) {
	_, result, pending, err := rt.Pop(qd, tok)
	return QD(result), pending, err
}

// PeerAddr reports the remote address of a connected or accepted stream
// queue, filling the out_addr role of the accept control-plane call.
func (rt *Runtime) PeerAddr(qd QD) (string, error) {
	q, e := rt.lookup(qd)
	if e != nil {
		return "", e
	}
	if q.Kind != KindStream {
		return "", newError(ErrUnsupported, "qio: peer address is stream-only")
	}
	addr := q.Stream.RemoteAddr()
	if addr == nil {
		return "", newError(ErrInvalidArgument, "qio: queue has no established peer")
	}
	return addr.String(), nil
}

// Poll is the non-blocking observation call. Once it reports
// a task done, the task is removed; a later Poll of the same token
// returns ErrUnknownToken.
func (rt *Runtime) Poll(qd QD, tok task.Token) (s *sga.SGA, result int, done bool, err error) {
	q, e := rt.lookup(qd)
	if e != nil {
		return nil, 0, false, e
	}
	t, ok := q.Registry.Lookup(tok)
	if !ok {
		return nil, 0, false, newError(ErrUnknownToken, "qio: unknown token")
	}
	if !t.Done {
		return nil, 0, false, nil
	}
	q.Registry.Remove(tok)
	if t.Err != nil {
		return nil, 0, true, wrapError(classify(t.Err), t.Err)
	}
	rt.recordObserved(t)
	return t.SGA, t.Result, true, nil
}

// Wait blocks until tok's task completes, driving progress with a
// step bound of one per iteration and no sleeping primitive.
func (rt *Runtime) Wait(qd QD, tok task.Token) (s *sga.SGA, result int, err error) {
	q, e := rt.lookup(qd)
	if e != nil {
		return nil, 0, e
	}
	for {
		t, ok := q.Registry.Lookup(tok)
		if !ok {
			return nil, 0, newError(ErrUnknownToken, "qio: unknown token")
		}
		if t.Done {
			q.Registry.Remove(tok)
			if t.Err != nil {
				return nil, 0, wrapError(classify(t.Err), t.Err)
			}
			rt.recordObserved(t)
			return t.SGA, t.Result, nil
		}
		rt.pollReadiness()
		q.Registry.Progress(1, func(pt *task.Task) { rt.progressOne(q, pt) })
	}
}

// Drop removes tok's task regardless of state, releasing any
// already-allocated pop buffers.
func (rt *Runtime) Drop(qd QD, tok task.Token) error {
	q, e := rt.lookup(qd)
	if e != nil {
		return e
	}
	t := q.Registry.Remove(tok)
	if t == nil {
		return newError(ErrUnknownToken, "qio: unknown token")
	}
	if q.Kind == KindStream {
		switch t.Kind {
		case task.KindPush:
			stream.AbortPush(t, q.Stream)
		case task.KindPop:
			stream.AbortPop(t, q.Stream)
		}
	}
	if t.Kind == task.KindPop && t.SGA != nil {
		t.SGA.Release()
	}
	return nil
}

// Snapshot returns the runtime's health counters in the shared DTO
// surfaced through Control/Debug.
func (rt *Runtime) Snapshot() api.APIMetrics {
	return api.APIMetrics{
		NumQueues:       rt.table.count(),
		NumTasks:        rt.table.totalPending(),
		InboundTraffic:  uint64(atomic.LoadInt64(&rt.bytesRecv)),
		OutboundTraffic: uint64(atomic.LoadInt64(&rt.bytesSent)),
		StartedAt:       rt.startedAt,
	}
}

// Shutdown closes every open queue's transport and clears the table,
// outstanding tasks included — unlike Close, which refuses a busy
// queue. Implements api.GracefulShutdown for the launcher's teardown.
func (rt *Runtime) Shutdown() error {
	var first error
	for _, q := range rt.table.drain() {
		q.State = api.QueueClosed
		var err error
		switch q.Kind {
		case KindStream:
			err = q.Stream.Close()
		case KindDatagram:
			err = q.Datagram.Close()
		}
		if first == nil {
			first = err
		}
	}
	if rt.poller != nil {
		if err := rt.poller.Close(); first == nil {
			first = err
		}
		rt.poller = nil
	}
	return first
}

// Progress drives at most maxSteps work-queue entries for qd forward;
// a non-positive count uses the configured default bound.
func (rt *Runtime) Progress(qd QD, maxSteps int) error {
	q, e := rt.lookup(qd)
	if e != nil {
		return e
	}
	if maxSteps <= 0 {
		maxSteps = rt.cfg.MaxProgressSteps
	}
	rt.pollReadiness()
	q.Registry.Progress(maxSteps, func(t *task.Task) { rt.progressOne(q, t) })
	return nil
}
