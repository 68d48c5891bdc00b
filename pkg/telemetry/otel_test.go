package telemetry

import (
	"testing"

	"github.com/daireb/reactor/pkg/reactor"
)

func TestTracerBalancedPasses(t *testing.T) {
	tr := NewTracer()
	reactor.SetMonitor(tr)
	defer reactor.SetMonitor(nil)

	s := reactor.NewState(0)
	reactor.Subscribe(s, func(int) {})
	s.Set(1)
	s.Set(2)

	if len(tr.spans) != 0 {
		t.Errorf("span stack has %d entries after settled passes, want 0", len(tr.spans))
	}
}

func TestTracerNestedPasses(t *testing.T) {
	tr := NewTracer()
	reactor.SetMonitor(tr)
	defer reactor.SetMonitor(nil)

	inner := reactor.NewState(0)
	outer := reactor.NewState(0)
	reactor.Subscribe(outer, func(v int) {
		// Writes from a callback start a nested pass while the outer
		// pass's span is still open.
		inner.Set(v)
	}, reactor.SkipInitial())
	reactor.Subscribe(inner, func(int) {})

	outer.Set(7)

	if got := inner.Peek(); got != 7 {
		t.Errorf("inner = %d, want 7", got)
	}
	if len(tr.spans) != 0 {
		t.Errorf("span stack has %d entries after nested passes, want 0", len(tr.spans))
	}
}

func TestTracerEndWithoutBegin(t *testing.T) {
	tr := NewTracer()
	// Must not panic on a stray end.
	tr.PropagationEnd(reactor.PropagationStats{})
}
