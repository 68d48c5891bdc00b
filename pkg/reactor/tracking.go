package reactor

import (
	"fmt"
	"runtime"
	"sync"
)

// Tracker is the evaluation context for one logical thread of
// execution. It carries the stack of currently-evaluating nodes (the
// dependency-capture analogue of a call stack), the batch nesting
// depth, and the disposal scope new observers attach to.
//
// One Tracker exists per goroutine; the engine assumes each graph is
// only ever driven from a single goroutine at a time.
type Tracker struct {
	// stack holds the nodes currently being evaluated, innermost last.
	// A nil entry is an Untracked frame: reads under it record no edge.
	stack []*node

	// onStack indexes the non-nil stack entries for cycle detection.
	onStack map[uint64]struct{}

	// batchDepth tracks nested Batch() calls. When > 0, writes queue
	// their source instead of propagating immediately.
	batchDepth int

	// committing is true while the engine's commit phase is settling
	// nodes. Evaluator panics raised under it are wrapped and
	// attributed at the node whose evaluator failed.
	committing bool

	// pendingWrites are the states written during the current batch,
	// in first-write order, deduplicated by ID. Each entry carries a
	// netChanged check so a state written back to its pre-batch value
	// drops out of the final pass.
	pendingWrites []pendingWrite
	pendingSeen   map[uint64]struct{}

	// currentScope is the Scope that adopts newly created observers.
	// nil means observers are unowned and must be disposed by hand.
	currentScope *Scope
}

// trackers stores per-goroutine evaluation contexts. sync.Map because
// independent goroutines may each drive their own graph.
var trackers sync.Map

// getGoroutineID returns a unique identifier for the current goroutine,
// parsed from the runtime stack header. Implementation detail; never
// exposed.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	// The header is "goroutine <id> ".
	var id uint64
	for i := 10; i < n; i++ {
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// getTracker returns the Tracker for the current goroutine, creating
// it on first use.
func getTracker() *Tracker {
	gid := getGoroutineID()

	if t, ok := trackers.Load(gid); ok {
		return t.(*Tracker)
	}

	t := &Tracker{onStack: make(map[uint64]struct{})}
	trackers.Store(gid, t)
	return t
}

// releaseTracker removes the current goroutine's Tracker. Optional;
// trackers are small and are reused if the goroutine ID comes back.
func releaseTracker() {
	trackers.Delete(getGoroutineID())
}

// track evaluates subject's evaluator with subject pushed onto the
// evaluation stack. The previous dependency set is dropped first, so
// the edges recorded during eval become the complete new set. Pushing
// a node that is already on the stack is a cycle and fails fast.
func (t *Tracker) track(subject *node, eval func()) {
	if _, ok := t.onStack[subject.id]; ok {
		panic(fmt.Errorf("%w (node %d)", ErrCyclicDependency, subject.id))
	}

	subject.dropDeps()

	t.stack = append(t.stack, subject)
	t.onStack[subject.id] = struct{}{}
	defer func() {
		t.stack = t.stack[:len(t.stack)-1]
		delete(t.onStack, subject.id)
	}()

	eval()
}

// recordRead records an edge from the innermost evaluating node to n.
// No-op outside evaluation or under an Untracked frame. Reading a node
// that is itself being evaluated is a cycle: its value cannot settle.
func (t *Tracker) recordRead(n *node) {
	if len(t.stack) == 0 {
		return
	}
	if _, ok := t.onStack[n.id]; ok {
		panic(fmt.Errorf("%w (node %d)", ErrCyclicDependency, n.id))
	}
	top := t.stack[len(t.stack)-1]
	if top == nil {
		return
	}
	addEdge(top, n)
}

// inEvaluation reports whether any evaluator is running on this
// tracker. Untracked frames do not lift the restriction: a write inside
// Untracked inside an evaluator is still a reentrant write.
func (t *Tracker) inEvaluation() bool {
	for _, n := range t.stack {
		if n != nil {
			return true
		}
	}
	return false
}

// pendingWrite is one state queued during a batch.
type pendingWrite struct {
	source *node

	// netChanged reports whether the state's value at batch end still
	// differs from its value before the first write of the batch.
	netChanged func() bool
}

// queueWrite records a changed state for the batch's final pass. Only
// the first write of a state per batch registers; netChanged is
// evaluated at drain time against the batch's final value.
func (t *Tracker) queueWrite(s *node, netChanged func() bool) {
	if t.pendingSeen == nil {
		t.pendingSeen = make(map[uint64]struct{})
	}
	if _, ok := t.pendingSeen[s.id]; ok {
		return
	}
	t.pendingSeen[s.id] = struct{}{}
	t.pendingWrites = append(t.pendingWrites, pendingWrite{source: s, netChanged: netChanged})
}

// drainWrites returns the batch's sources that still hold a net change,
// clearing the queue.
func (t *Tracker) drainWrites() []*node {
	writes := t.pendingWrites
	t.pendingWrites = nil
	t.pendingSeen = nil

	var sources []*node
	for _, w := range writes {
		if w.netChanged() {
			sources = append(sources, w.source)
		}
	}
	return sources
}
