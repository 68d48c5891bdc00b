package reactor

import (
	"errors"
	"testing"
)

// mustPanicIs runs fn and asserts it panics with an error matching want.
func mustPanicIs(t *testing.T, want error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic with %v, got none", want)
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("expected error panic, got %T: %v", r, r)
		}
		if !errors.Is(err, want) {
			t.Errorf("expected %v, got %v", want, err)
		}
	}()
	fn()
}

func TestStateBasic(t *testing.T) {
	count := NewState(0)

	if count.Get() != 0 {
		t.Errorf("expected initial value 0, got %d", count.Get())
	}

	count.Set(5)
	if count.Get() != 5 {
		t.Errorf("expected value 5, got %d", count.Get())
	}

	count.Update(func(n int) int { return n * 2 })
	if count.Get() != 10 {
		t.Errorf("expected value 10, got %d", count.Get())
	}
}

func TestStateEqualWriteIsNoOp(t *testing.T) {
	count := NewState(1)

	evals := 0
	doubled := NewComputed(func() int {
		evals++
		return count.Get() * 2
	})

	calls := 0
	obs := Subscribe(doubled, func(int) { calls++ })
	defer obs.Dispose()

	if evals != 1 || calls != 1 {
		t.Fatalf("expected 1 eval and 1 initial call, got %d/%d", evals, calls)
	}

	// Writing the current value must not propagate at all.
	count.Set(1)
	if evals != 1 {
		t.Errorf("equal write triggered %d extra evals", evals-1)
	}
	if calls != 1 {
		t.Errorf("equal write triggered %d extra callbacks", calls-1)
	}
}

func TestStateCustomEquality(t *testing.T) {
	type point struct{ X, Y int }

	// Equality on X only: a write changing just Y is a no-op.
	p := NewState(point{1, 1}).WithEquals(func(a, b point) bool {
		return a.X == b.X
	})

	fires := 0
	obs := Subscribe(p, func(point) { fires++ }, SkipInitial())
	defer obs.Dispose()

	p.Set(point{1, 99})
	if fires != 0 {
		t.Errorf("X-equal write should not notify, got %d fires", fires)
	}

	p.Set(point{2, 99})
	if fires != 1 {
		t.Errorf("expected 1 fire after X changed, got %d", fires)
	}
}

func TestStateWriteInsideEvaluatorPanics(t *testing.T) {
	a := NewState(1)
	b := NewState(2)

	bad := NewComputed(func() int {
		b.Set(a.Get() + 1) // writes are not allowed in evaluators
		return a.Get()
	})

	mustPanicIs(t, ErrReentrantWrite, func() {
		bad.Get()
	})

	// The rejected write must not have committed.
	if b.Peek() != 2 {
		t.Errorf("reentrant write leaked a value: %d", b.Peek())
	}
}

func TestStateWriteFromObserverCallbackAllowed(t *testing.T) {
	a := NewState(0)
	echo := NewState(0)

	obs := Subscribe(a, func(v int) {
		// Callbacks run after the pass has settled; writes here start a
		// fresh pass.
		echo.Set(v * 10)
	}, SkipInitial())
	defer obs.Dispose()

	a.Set(3)
	if echo.Peek() != 30 {
		t.Errorf("expected echo 30, got %d", echo.Peek())
	}
}

func TestStateDispose(t *testing.T) {
	s := NewState(1)
	s.Dispose()
	s.Dispose() // idempotent

	mustPanicIs(t, ErrDisposed, func() { s.Get() })
	mustPanicIs(t, ErrDisposed, func() { s.Set(2) })
}

func TestStateDisposeWithLiveDependent(t *testing.T) {
	s := NewState(1)
	c := NewComputed(func() int { return s.Get() * 2 })

	if c.Get() != 2 {
		t.Fatalf("expected 2, got %d", c.Get())
	}

	s.Dispose()

	// The dependent keeps its cached value until it needs to
	// re-evaluate; forcing an evaluation reaches the disposed cell.
	trigger := NewState(0)
	stale := NewComputed(func() int {
		_ = trigger.Get()
		return s.Get()
	})
	mustPanicIs(t, ErrDisposed, func() { stale.Get() })
}
