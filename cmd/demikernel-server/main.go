// Command demikernel-server is a multi-carrier echo server built on the
// qio runtime: each carrier pins its OS thread, owns its own Runtime
// and descriptor table, listens on its own port, and echoes every
// framed message back to the sender. Handler side work (recovery,
// metrics) runs on a small per-carrier executor so the carrier thread
// itself never leaves its progress loop for long.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/helyim/demikernel/adapters"
	"github.com/helyim/demikernel/addressbook"
	"github.com/helyim/demikernel/api"
	"github.com/helyim/demikernel/device"
	"github.com/helyim/demikernel/internal/transport"
	"github.com/helyim/demikernel/pool"
	"github.com/helyim/demikernel/qio"
	"github.com/helyim/demikernel/sga"
	"github.com/helyim/demikernel/task"
)

func main() {
	addr := flag.String("addr", "127.0.0.1", "host address to bind each carrier's listener on")
	basePort := flag.Int("port", 7800, "base TCP port; carrier i listens on basePort+i")
	carriers := flag.Int("carriers", runtime.NumCPU(), "number of carrier threads")
	numaNode := flag.Int("numa", -1, "preferred NUMA node for buffer allocation and pinning")
	handlers := flag.Int("handlers-per-carrier", 4, "handler goroutines per carrier")
	burst := flag.Int("burst", 16, "NIC receive burst bound")
	flag.Parse()

	ctrl := adapters.NewControlAdapter()
	_ = ctrl.SetConfig(map[string]any{
		"qio.carriers":  *carriers,
		"qio.numa_node": *numaNode,
	})
	ctrl.SetMetric("service.info", api.ServiceInfo{
		Name:      "demikernel-server",
		Version:   "dev",
		StartedAt: time.Now(),
	})

	// A real NIC backend needs raw-socket privileges (or the dpdk build
	// tag); without them datagram queues are simply unavailable and the
	// server runs stream-only.
	if nic, err := transport.NewTransport(*burst); err != nil {
		log.Printf("demikernel-server: no NIC backend, datagram queues disabled: %v", err)
	} else {
		device.Init(&device.Context{
			MAC:   addressbook.MAC{0x02, 0, 0, 0, 0, 1},
			IP:    [4]byte{127, 0, 0, 1},
			NIC:   nic,
			Books: addressbook.Default,
		})
		log.Printf("demikernel-server: NIC backend %q acquired, features=%+v",
			transport.RuntimeTransportSelector(), nic.Features())
	}

	var mu sync.Mutex
	var runtimes []*qio.Runtime
	for i := 0; i < *carriers; i++ {
		i := i
		go func() {
			rt := newCarrierRuntime(i, *numaNode, ctrl)
			mu.Lock()
			runtimes = append(runtimes, rt)
			mu.Unlock()
			runCarrier(i, rt, fmt.Sprintf("%s:%d", *addr, *basePort+i), *numaNode, *handlers, ctrl)
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Printf("demikernel-server: shutting down %d carriers", *carriers)
	mu.Lock()
	for _, rt := range runtimes {
		if err := rt.Shutdown(); err != nil {
			log.Printf("demikernel-server: carrier shutdown: %v", err)
		}
	}
	mu.Unlock()
}

// newCarrierRuntime pins the carrier to its core and builds its
// thread-local runtime.
func newCarrierRuntime(id, numaNode int, ctrl api.Control) *qio.Runtime {
	aff := adapters.NewAffinityAdapter()
	if err := aff.Pin(id, numaNode); err != nil {
		log.Printf("carrier %d: pin failed, running unpinned: %v", id, err)
	}
	rt := qio.NewRuntime(qio.ConfigFromSnapshot(ctrl.GetConfig()), pool.DefaultPool(numaNode), device.Current())
	ctrl.RegisterDebugProbe(fmt.Sprintf("carrier.%d", id), func() any { return rt.Snapshot() })
	return rt
}

// conn tracks one accepted child queue's outstanding pop.
type conn struct {
	qd          qio.QD
	popTok      task.Token
	outstanding bool
}

// runCarrier owns one listening queue and round-robins accept and echo
// progress across its children. All qio calls stay on this goroutine;
// the executor only sees payload copies.
func runCarrier(id int, rt *qio.Runtime, listenAddr string, numaNode, handlerCount int, ctrl api.Control) {
	exec := adapters.NewExecutorAdapter(handlerCount, numaNode)
	defer exec.Close()

	observe := adapters.NewMiddlewareHandler(adapters.HandlerFunc(func(data any) error {
		return nil // echo already happened; middleware does the observing
	}))
	observe.Use(adapters.RecoveryMiddleware)
	observe.Use(adapters.MetricsMiddleware(ctrl))

	listenQD, err := rt.Queue(qio.KindStream)
	if err != nil {
		log.Printf("carrier %d: queue: %v", id, err)
		return
	}
	if err := rt.Bind(listenQD, listenAddr); err != nil {
		log.Printf("carrier %d: bind %s: %v", id, listenAddr, err)
		return
	}
	if err := rt.Listen(listenQD, 128); err != nil {
		log.Printf("carrier %d: listen %s: %v", id, listenAddr, err)
		return
	}
	log.Printf("carrier %d: listening on %s", id, listenAddr)

	var seq uint64
	nextToken := func(k task.Kind) task.Token {
		seq++
		return task.NewToken(seq, k)
	}

	conns := make(map[qio.QD]*conn)
	acceptTok := task.NewToken(0, task.KindPop)
	acceptOutstanding := false

	for {
		// Accept lane.
		if !acceptOutstanding {
			acceptTok = nextToken(task.KindPop)
			child, pending, aerr := rt.Accept(listenQD, acceptTok)
			switch {
			case aerr != nil:
				log.Printf("carrier %d: accept: %v", id, aerr)
				return
			case pending:
				acceptOutstanding = true
			default:
				conns[child] = &conn{qd: child}
			}
		} else if _, result, done, perr := rt.Poll(listenQD, acceptTok); perr == nil && done {
			conns[qio.QD(result)] = &conn{qd: qio.QD(result)}
			acceptOutstanding = false
		} else if perr == nil {
			_ = rt.Progress(listenQD, 1)
		}

		// Echo lane: one outstanding pop per child, push the frame back
		// as soon as it lands.
		for qd, c := range conns {
			payload, done, eerr := stepConn(rt, c, nextToken)
			if eerr != nil {
				if c.outstanding {
					_ = rt.Drop(qd, c.popTok)
				}
				_ = rt.Close(qd)
				delete(conns, qd)
				continue
			}
			if done {
				data := payload
				if err := exec.Submit(func() { _ = observe.Handle(data) }); err != nil {
					_ = observe.Handle(data)
				}
			}
		}
	}
}

// stepConn advances one child: submits a pop when none is outstanding,
// polls it otherwise, and echoes a completed message back. The returned
// payload (a copy) is only non-nil when an echo completed this step.
func stepConn(rt *qio.Runtime, c *conn, nextToken func(task.Kind) task.Token) ([]byte, bool, error) {
	if !c.outstanding {
		c.popTok = nextToken(task.KindPop)
		in, _, pending, err := rt.Pop(c.qd, c.popTok)
		if err != nil {
			return nil, false, err
		}
		if pending {
			c.outstanding = true
			return nil, false, nil
		}
		return echo(rt, c, in, nextToken)
	}

	in, _, done, err := rt.Poll(c.qd, c.popTok)
	if err != nil {
		return nil, false, err
	}
	if !done {
		return nil, false, rt.Progress(c.qd, 4)
	}
	c.outstanding = false
	return echo(rt, c, in, nextToken)
}

// echo pushes the popped SGA straight back and releases it once the
// push has fully left the socket.
func echo(rt *qio.Runtime, c *conn, in *sga.SGA, nextToken func(task.Kind) task.Token) ([]byte, bool, error) {
	if in == nil || in.NumSegs() == 0 {
		if in != nil {
			in.Release()
		}
		return nil, false, nil
	}
	flat := make([]byte, 0, in.TotalLen())
	for _, seg := range in.Segs {
		flat = append(flat, seg.Buf...)
	}

	pushTok := nextToken(task.KindPush)
	_, pending, err := rt.Push(c.qd, pushTok, in)
	if err != nil {
		in.Release()
		return nil, false, err
	}
	if pending {
		if _, _, err := rt.Wait(c.qd, pushTok); err != nil {
			in.Release()
			return nil, false, err
		}
	}
	in.Release()
	return flat, true, nil
}
