package reactor

import (
	"sort"
	"time"
)

// PropagationStats summarizes one completed propagation pass. Delivered
// to the installed Monitor after the pass settles.
type PropagationStats struct {
	// Sources is the number of written cells that started the pass.
	Sources int

	// Marked is the number of derivations flagged stale in the mark
	// phase, counting each exactly once even when reached by multiple
	// paths.
	Marked int

	// Recomputed is the number of derivations whose evaluator actually
	// ran during the commit phase.
	Recomputed int

	// Unchanged is the number of recomputed derivations whose value
	// settled equal to the previous one, stopping the cascade there.
	Unchanged int

	// Notified is the number of observer callbacks fired.
	Notified int

	// Duration is the wall time of the whole pass, callbacks included.
	Duration time.Duration
}

// Monitor receives propagation telemetry. Calls are strictly paired and
// never concurrent: the engine is single-threaded per graph.
type Monitor interface {
	// PropagationBegin is called before the mark phase, with the number
	// of written sources.
	PropagationBegin(sources int)

	// PropagationEnd is called after observers have fired, before any
	// evaluator or callback error is re-raised to the writer. Begin and
	// End are always paired, even for failing passes.
	PropagationEnd(stats PropagationStats)
}

// monitor is the installed telemetry hook, nil when unset. Set once at
// startup; the engine reads it without synchronization.
var monitor Monitor

// SetMonitor installs m as the propagation telemetry hook. Pass nil to
// remove. Install at startup, before any writes.
//
// The hook is package-wide: unlike trackers, it is shared by every
// goroutine's graph. When several goroutines drive graphs concurrently
// the monitor must synchronize internally; stateful monitors that
// assume paired, single-threaded calls (telemetry.Tracer, say) are only
// safe with a single driving goroutine.
func SetMonitor(m Monitor) {
	monitor = m
}

// propagate runs one full update pass from the given written sources.
//
// Mark phase: a breadth-first traversal outward along dependent edges
// flags every reachable derivation stale exactly once (the visited set
// folds diamond paths together) and collects the reachable observers.
//
// Commit phase: derivations on a path to a live observer settle
// eagerly, in dependency order — a node settles only after every one of
// its dependencies inside the affected set has settled — so observers
// only ever see fully consistent upstream values. A derivation whose
// settled value is unchanged stops the cascade: dependents reached only
// through it are not recomputed. Derivations with no observer
// descendant stay stale and settle lazily on their next read.
//
// Notify phase: each observer with at least one changed dependency
// fires exactly once, in an order consistent with the settle order of
// its attachment point.
//
// An evaluator panic poisons its branch: the failed node and everything
// reached only through it stay stale, the rest of the pass completes,
// and the error is re-raised to the writer as an *EvaluationError.
// A callback panic is likewise confined: the remaining observers still
// fire, and the first such panic is re-raised to the writer after the
// pass (an evaluator error, having occurred earlier, takes precedence).
func propagate(t *Tracker, sources []*node) {
	if len(sources) == 0 {
		return
	}

	start := time.Now()
	if monitor != nil {
		monitor.PropagationBegin(len(sources))
	}
	stats := PropagationStats{Sources: len(sources)}

	// Mark phase.
	affected := make(map[uint64]*node)
	var computeds []*node
	var observers []*node

	queue := make([]*node, 0, len(sources))
	seen := make(map[uint64]struct{}, len(sources))
	for _, src := range sources {
		seen[src.id] = struct{}{}
		queue = append(queue, src)
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, sub := range n.orderedSubs() {
			if _, ok := seen[sub.id]; ok {
				continue
			}
			seen[sub.id] = struct{}{}
			affected[sub.id] = sub
			switch sub.kind {
			case kindComputed:
				sub.dirty = true
				computeds = append(computeds, sub)
				queue = append(queue, sub)
			case kindObserver:
				observers = append(observers, sub)
			}
		}
	}
	stats.Marked = len(computeds)

	// Live set: affected derivations that can reach an affected
	// observer. Everything else stays stale for lazy settlement.
	live := make(map[uint64]struct{})
	var liveWalk func(n *node)
	liveWalk = func(n *node) {
		for _, dep := range n.deps {
			if dep.kind != kindComputed {
				continue
			}
			if _, ok := affected[dep.id]; !ok {
				continue
			}
			if _, ok := live[dep.id]; ok {
				continue
			}
			live[dep.id] = struct{}{}
			liveWalk(dep)
		}
	}
	for _, o := range observers {
		liveWalk(o)
	}

	// Commit phase: Kahn's algorithm over the live subgraph. The edge
	// snapshot (liveSubs) is taken now, before any settlement: settling
	// rebuilds dependency sets, and an edge dropped mid-pass must still
	// release the indegree it was counted for.
	indeg := make(map[uint64]int, len(live))
	liveSubs := make(map[uint64][]*node, len(live))
	var ready []*node
	for id := range live {
		c := affected[id]
		d := 0
		for depID := range c.deps {
			if _, ok := live[depID]; ok {
				d++
				liveSubs[depID] = append(liveSubs[depID], c)
			}
		}
		indeg[id] = d
		if d == 0 {
			ready = append(ready, c)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].id < ready[j].id })

	changed := make(map[uint64]struct{}, len(sources))
	for _, src := range sources {
		changed[src.id] = struct{}{}
	}
	failed := make(map[uint64]struct{})
	settlePos := make(map[uint64]int, len(live))

	var firstErr *EvaluationError
	step := 0
	prevCommitting := t.committing
	t.committing = true
	for len(ready) > 0 {
		c := ready[0]
		ready = ready[1:]
		settlePos[c.id] = step
		step++

		poisoned := false
		needs := false
		for depID := range c.deps {
			if _, ok := failed[depID]; ok {
				poisoned = true
				break
			}
			if _, ok := changed[depID]; ok {
				needs = true
			}
		}

		switch {
		case poisoned:
			// Upstream evaluation failed; stay stale for retry-by-read
			// and poison everything downstream.
			failed[c.id] = struct{}{}
		case !c.dirty:
			// Already settled mid-pass: a sibling's evaluator read
			// this node while it was stale. Reuse that settle's
			// outcome instead of re-running the evaluator against its
			// own fresh cache, which would always report "unchanged".
			if c.lastChanged {
				changed[c.id] = struct{}{}
			}
		case needs:
			ch, err := settleNode(t, c)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				failed[c.id] = struct{}{}
			} else {
				stats.Recomputed++
				if ch {
					changed[c.id] = struct{}{}
				} else {
					stats.Unchanged++
				}
			}
		default:
			// Every settled dependency is unchanged: the cached value
			// is still correct, no recompute needed.
			c.dirty = false
		}

		// Release dependents from the snapshot, not from c.subs: a
		// mid-pass re-evaluation may have dropped an edge whose
		// indegree contribution still has to be returned.
		for _, sub := range liveSubs[c.id] {
			indeg[sub.id]--
			if indeg[sub.id] == 0 {
				ready = insertByID(ready, sub)
			}
		}
	}
	t.committing = prevCommitting

	// Notify phase. Order observers by the settle position of their
	// latest-settling dependency so delivery is consistent with the
	// commit order; ties (siblings of one node) break by creation
	// order.
	type pending struct {
		o   *node
		pos int
	}
	var toFire []pending
	for _, o := range observers {
		trigger := false
		maxPos := -1
		for depID := range o.deps {
			if _, ok := changed[depID]; ok {
				trigger = true
			}
			if p, ok := settlePos[depID]; ok && p > maxPos {
				maxPos = p
			}
		}
		if trigger {
			toFire = append(toFire, pending{o: o, pos: maxPos})
		}
	}
	sort.Slice(toFire, func(i, j int) bool {
		if toFire[i].pos != toFire[j].pos {
			return toFire[i].pos < toFire[j].pos
		}
		return toFire[i].o.id < toFire[j].o.id
	})
	var cbPanic any
	for _, p := range toFire {
		if p.o.disposed {
			// Disposed mid-pass by an earlier callback.
			continue
		}
		stats.Notified++
		if r := fireObserver(p.o); r != nil && cbPanic == nil {
			cbPanic = r
		}
	}

	stats.Duration = time.Since(start)
	if monitor != nil {
		monitor.PropagationEnd(stats)
	}
	if firstErr != nil {
		panic(firstErr)
	}
	if cbPanic != nil {
		panic(cbPanic)
	}
}

// fireObserver runs an observer callback, converting a panic into a
// returned value so a failing callback cannot suppress the remaining
// notifications of the pass. The first such panic is re-raised to the
// writer after the pass completes.
func fireObserver(o *node) (err any) {
	defer func() {
		err = recover()
	}()
	o.fire()
	return nil
}

// settleNode runs c's evaluator, converting a panic into an
// *EvaluationError so the rest of the pass can continue on other
// branches. c stays stale on failure.
func settleNode(t *Tracker, c *node) (changed bool, err *EvaluationError) {
	defer func() {
		if r := recover(); r != nil {
			if inner, ok := r.(*EvaluationError); ok {
				err = inner
				return
			}
			err = &EvaluationError{NodeID: c.id, Cause: r}
		}
	}()
	return c.settle(), nil
}

// insertByID inserts n into the ID-sorted slice nodes.
func insertByID(nodes []*node, n *node) []*node {
	i := sort.Search(len(nodes), func(i int) bool { return nodes[i].id > n.id })
	nodes = append(nodes, nil)
	copy(nodes[i+1:], nodes[i:])
	nodes[i] = n
	return nodes
}
