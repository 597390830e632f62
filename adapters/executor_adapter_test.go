package adapters_test

import (
	"sync"
	"testing"

	"github.com/helyim/demikernel/adapters"
	"github.com/helyim/demikernel/api"
)

func TestExecutorAdapterRunsSubmittedWork(t *testing.T) {
	exec := adapters.NewExecutorAdapter(2, -1)
	defer exec.Close()

	if exec.NumWorkers() != 2 {
		t.Fatalf("workers = %d, want 2", exec.NumWorkers())
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	ran := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		if err := exec.Submit(func() {
			defer wg.Done()
			mu.Lock()
			ran++
			mu.Unlock()
		}); err != nil {
			wg.Done()
			t.Fatalf("submit: %v", err)
		}
	}
	wg.Wait()
	if ran != 16 {
		t.Fatalf("ran = %d, want 16", ran)
	}
}

func TestExecutorAdapterSubmitAfterClose(t *testing.T) {
	exec := adapters.NewExecutorAdapter(1, -1)
	exec.Close()
	if err := exec.Submit(func() {}); err == nil {
		t.Fatal("submit after close must fail")
	}
}

func TestMiddlewareChainOrder(t *testing.T) {
	var trace []string
	base := adapters.HandlerFunc(func(any) error {
		trace = append(trace, "base")
		return nil
	})
	h := adapters.NewMiddlewareHandler(base)
	h.Use(func(next api.Handler) api.Handler {
		return adapters.HandlerFunc(func(data any) error {
			trace = append(trace, "outer")
			return next.Handle(data)
		})
	})
	h.Use(func(next api.Handler) api.Handler {
		return adapters.HandlerFunc(func(data any) error {
			trace = append(trace, "inner")
			return next.Handle(data)
		})
	})
	if err := h.Handle("msg"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	want := []string{"outer", "inner", "base"}
	if len(trace) != len(want) {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace = %v, want %v", trace, want)
		}
	}
}
