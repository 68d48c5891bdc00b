package reactor

import (
	"sync"
	"testing"
)

func TestGetTrackerSameGoroutine(t *testing.T) {
	t1 := getTracker()
	t2 := getTracker()

	if t1 != t2 {
		t.Error("getTracker should return the same context for one goroutine")
	}
}

func TestTrackerIsolationAcrossGoroutines(t *testing.T) {
	var wg sync.WaitGroup
	ctxs := make(chan *Tracker, 2)

	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			tr := getTracker()
			ctxs <- tr
			releaseTracker()
		}()
	}
	wg.Wait()
	close(ctxs)

	first := <-ctxs
	second := <-ctxs
	if first == second {
		t.Error("each goroutine should own its own tracker")
	}
}

func TestTrackRebuildsDependencySet(t *testing.T) {
	tr := getTracker()

	dep1 := newNode(kindState)
	dep2 := newNode(kindState)
	subject := newNode(kindComputed)

	tr.track(subject, func() {
		tr.recordRead(dep1)
	})
	if _, ok := subject.deps[dep1.id]; !ok {
		t.Fatal("expected edge to dep1")
	}
	if _, ok := dep1.subs[subject.id]; !ok {
		t.Fatal("expected inverse edge from dep1")
	}

	// Re-evaluation captures a fresh set; the old edge is gone on both
	// sides.
	tr.track(subject, func() {
		tr.recordRead(dep2)
	})
	if _, ok := subject.deps[dep1.id]; ok {
		t.Error("stale edge to dep1 survived re-evaluation")
	}
	if _, ok := dep1.subs[subject.id]; ok {
		t.Error("stale inverse edge on dep1 survived re-evaluation")
	}
	if _, ok := subject.deps[dep2.id]; !ok {
		t.Error("expected edge to dep2")
	}
}

func TestTrackNestedEvaluationsKeepLevels(t *testing.T) {
	tr := getTracker()

	leaf := newNode(kindState)
	inner := newNode(kindComputed)
	outer := newNode(kindComputed)

	tr.track(outer, func() {
		tr.track(inner, func() {
			tr.recordRead(leaf)
		})
		tr.recordRead(inner)
	})

	// The outer node depends on inner, not on inner's own dependency.
	if _, ok := outer.deps[inner.id]; !ok {
		t.Error("expected outer -> inner edge")
	}
	if _, ok := outer.deps[leaf.id]; ok {
		t.Error("edge bypassed a level: outer -> leaf")
	}
	if _, ok := inner.deps[leaf.id]; !ok {
		t.Error("expected inner -> leaf edge")
	}
}

func TestTrackCycleDetection(t *testing.T) {
	tr := getTracker()
	subject := newNode(kindComputed)

	mustPanicIs(t, ErrCyclicDependency, func() {
		tr.track(subject, func() {
			tr.track(subject, func() {})
		})
	})

	// The stack unwound cleanly; tracking still works.
	if len(tr.stack) != 0 {
		t.Errorf("stack not unwound, depth=%d", len(tr.stack))
	}
	tr.track(subject, func() {})
}

func TestRecordReadOutsideEvaluationIsNoOp(t *testing.T) {
	tr := getTracker()
	n := newNode(kindState)

	tr.recordRead(n)
	if len(n.subs) != 0 {
		t.Errorf("read outside evaluation recorded %d edges", len(n.subs))
	}
}

func TestPeekDoesNotSubscribe(t *testing.T) {
	count := NewState(42)

	evals := 0
	c := NewComputed(func() int {
		evals++
		return count.Peek() * 2
	})
	obs := Subscribe(c, func(int) {})
	defer obs.Dispose()

	if c.Peek() != 84 {
		t.Fatalf("expected 84, got %d", c.Peek())
	}

	count.Set(50)
	if evals != 1 {
		t.Errorf("Peek subscribed the reader, evals=%d", evals)
	}
}
