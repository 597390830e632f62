package task

import (
	"testing"

	"github.com/helyim/demikernel/sga"
)

func TestTokenEncodesKind(t *testing.T) {
	push := NewToken(42, KindPush)
	pop := NewToken(42, KindPop)
	if push == pop {
		t.Fatal("push and pop tokens for the same sequence must differ")
	}
	if push.Kind() != KindPush || pop.Kind() != KindPop {
		t.Fatalf("kind not recoverable: push=%v pop=%v", push.Kind(), pop.Kind())
	}
}

func TestSubmitRejectsDuplicateToken(t *testing.T) {
	r := NewRegistry()
	tok := NewToken(1, KindPush)
	if err := r.Submit(&Task{Token: tok, Kind: KindPush}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := r.Submit(&Task{Token: tok, Kind: KindPush}); err == nil {
		t.Fatal("duplicate token must be rejected")
	}
}

// A task completed by progress stays observable (in the pending map)
// until removed, but leaves the work FIFO.
func TestCompletedTaskAwaitsObservation(t *testing.T) {
	r := NewRegistry()
	tok := NewToken(1, KindPush)
	if err := r.Submit(&Task{Token: tok, Kind: KindPush}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	r.Progress(1, func(tk *Task) {
		tk.Done = true
		tk.Result = 7
	})

	got, ok := r.Lookup(tok)
	if !ok || !got.Done || got.Result != 7 {
		t.Fatalf("completed task must remain observable: ok=%v task=%+v", ok, got)
	}

	// Further progress cycles must not revisit it.
	steps := 0
	r.Progress(4, func(*Task) { steps++ })
	if steps != 0 {
		t.Fatalf("completed task was stepped %d more times", steps)
	}

	if removed := r.Remove(tok); removed == nil {
		t.Fatal("remove after observation should return the task")
	}
	if _, ok := r.Lookup(tok); ok {
		t.Fatal("task must be gone after removal")
	}
}

// Dropped tasks tombstone their FIFO slot; progress skips them without
// burning a step.
func TestProgressSkipsTombstones(t *testing.T) {
	r := NewRegistry()
	first := NewToken(1, KindPush)
	second := NewToken(2, KindPush)
	for _, tok := range []Token{first, second} {
		if err := r.Submit(&Task{Token: tok, Kind: KindPush}); err != nil {
			t.Fatalf("submit %d: %v", tok, err)
		}
	}
	r.Remove(first)

	var seen []Token
	r.Progress(1, func(tk *Task) { seen = append(seen, tk.Token) })
	if len(seen) != 1 || seen[0] != second {
		t.Fatalf("expected the tombstone to be skipped, stepped %v", seen)
	}
}

// Still-pending tasks are retried in submission order across cycles.
func TestProgressPreservesSubmissionOrder(t *testing.T) {
	r := NewRegistry()
	var tokens []Token
	for i := uint64(1); i <= 3; i++ {
		tok := NewToken(i, KindPush)
		tokens = append(tokens, tok)
		if err := r.Submit(&Task{Token: tok, Kind: KindPush}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	var order []Token
	r.Progress(3, func(tk *Task) { order = append(order, tk.Token) })
	r.Progress(3, func(tk *Task) { order = append(order, tk.Token) })
	want := append(append([]Token{}, tokens...), tokens...)
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order diverged at %d: got %v want %v", i, order, want)
		}
	}
}

func TestRandomTokenAvoidsCollisions(t *testing.T) {
	r := NewRegistry()
	seen := make(map[Token]bool)
	for i := 0; i < 64; i++ {
		tok, err := RandomToken(r, KindPop)
		if err != nil {
			t.Fatalf("random token: %v", err)
		}
		if tok.Kind() != KindPop {
			t.Fatalf("token %d lost its kind bit", tok)
		}
		if seen[tok] {
			t.Fatalf("token %d issued twice", tok)
		}
		seen[tok] = true
		if err := r.Submit(&Task{Token: tok, Kind: KindPop, SGA: &sga.SGA{}}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
}
