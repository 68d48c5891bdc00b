package reactor

import "testing"

// End-to-end test through the public facade.

func TestEndToEndSumObserver(t *testing.T) {
	a := NewState(2)
	b := NewState(3)
	sum := NewComputed(func() int { return a.Get() + b.Get() })

	var log []int
	obs := Subscribe(sum, func(v int) { log = append(log, v) })
	defer obs.Dispose()

	if len(log) != 1 || log[0] != 5 {
		t.Fatalf("expected [5], got %v", log)
	}

	a.Set(10)
	if len(log) != 2 || log[1] != 13 {
		t.Fatalf("expected [5 13], got %v", log)
	}

	// Value-equal write: nothing happens.
	b.Set(3)
	if len(log) != 2 {
		t.Errorf("expected [5 13], got %v", log)
	}
}

func TestEndToEndParityShortCircuit(t *testing.T) {
	x := NewState(1)
	parity := NewComputed(func() int { return x.Get() % 2 })

	observerCalls := 0
	obs := Subscribe(parity, func(int) { observerCalls++ })
	defer obs.Dispose()

	if observerCalls != 1 {
		t.Fatalf("expected initial call, got %d", observerCalls)
	}

	// 1 -> 3: parity unchanged, the observer must not run again.
	x.Set(3)
	if observerCalls != 1 {
		t.Errorf("expected 1 call, got %d", observerCalls)
	}

	x.Set(2)
	if observerCalls != 2 {
		t.Errorf("expected 2 calls, got %d", observerCalls)
	}
}

func TestEndToEndScopedCounter(t *testing.T) {
	scope := NewScope(nil)

	count := NewState(0)
	label := NewComputed(func() string {
		if count.Get()%2 == 0 {
			return "even"
		}
		return "odd"
	})

	var renders []string
	WithScope(scope, func() {
		Watch(func() string { return label.Get() }, func(v string) {
			renders = append(renders, v)
		})
	})

	count.Set(1)
	count.Set(3) // label stays "odd"
	count.Set(4)

	want := []string{"even", "odd", "even"}
	if len(renders) != len(want) {
		t.Fatalf("expected %v, got %v", want, renders)
	}
	for i := range want {
		if renders[i] != want[i] {
			t.Errorf("at %d: expected %s, got %s", i, want[i], renders[i])
		}
	}

	scope.Dispose()
	count.Set(5)
	if len(renders) != len(want) {
		t.Errorf("observer survived scope disposal: %v", renders)
	}
}

func TestEndToEndBatchedForm(t *testing.T) {
	first := NewState("Ada")
	last := NewState("Lovelace")
	full := NewComputed(func() string { return first.Get() + " " + last.Get() })

	var seen []string
	obs := Subscribe(full, func(v string) { seen = append(seen, v) })
	defer obs.Dispose()

	Batch(func() {
		first.Set("Grace")
		last.Set("Hopper")
	})

	want := []string{"Ada Lovelace", "Grace Hopper"}
	if len(seen) != 2 || seen[0] != want[0] || seen[1] != want[1] {
		t.Errorf("expected %v, got %v", want, seen)
	}
}
