package reactor

import (
	"fmt"
	"sort"
)

// nodeKind distinguishes the three participants in the graph.
type nodeKind uint8

const (
	kindState nodeKind = iota + 1
	kindComputed
	kindObserver
)

// node is the graph-side identity shared by State, Computed and
// Observer. The typed wrappers own the value and the evaluator; node
// owns the bookkeeping the propagation engine works on: the dependency
// edges, the stale flag and the disposal flag.
//
// Edges are stored on both endpoints, keyed by node ID, and every edge
// mutation updates both sides together: if A's deps contain B, then B's
// subs contain A. A computed's deps are rebuilt from scratch on every
// evaluation, because a conditional read can change the dependency set
// between runs.
type node struct {
	id   uint64
	kind nodeKind

	// deps are the nodes this node read on its last evaluation.
	deps map[uint64]*node

	// subs are the nodes that read this node.
	subs map[uint64]*node

	// dirty means the cached value is stale relative to deps.
	// States are never dirty; observers use it transiently during a pass.
	dirty bool

	// lastChanged records whether the most recent settle changed the
	// cached value. The engine consults it when a node settled lazily
	// mid-pass, through a dependent's read, before the commit reached it.
	lastChanged bool

	disposed bool

	// settle re-evaluates a computed and reports whether its cached
	// value changed. nil for states and observers.
	settle func() bool

	// fire runs an observer callback. nil for states and computeds.
	fire func()
}

func newNode(kind nodeKind) *node {
	return &node{
		id:   nextID(),
		kind: kind,
		deps: make(map[uint64]*node),
		subs: make(map[uint64]*node),
	}
}

// addEdge records that sub read dep, updating both endpoints.
func addEdge(sub, dep *node) {
	sub.deps[dep.id] = dep
	dep.subs[sub.id] = sub
}

// dropDeps removes every outgoing dependency edge of n, on both sides.
// Called before re-evaluation so the fresh run captures a fresh set.
func (n *node) dropDeps() {
	for id, dep := range n.deps {
		delete(dep.subs, n.id)
		delete(n.deps, id)
	}
}

// detach removes n from every partner set in both directions, leaving
// it fully disconnected. Former dependents keep whatever value they
// cached; if their evaluator still reaches n, the next run fails with
// ErrDisposed.
func (n *node) detach() {
	n.dropDeps()
	for id, sub := range n.subs {
		delete(sub.deps, n.id)
		delete(n.subs, id)
	}
}

// checkUsable panics with ErrDisposed if n has been disposed.
func (n *node) checkUsable() {
	if n.disposed {
		panic(fmt.Errorf("%w (node %d)", ErrDisposed, n.id))
	}
}

// orderedSubs returns the dependents sorted by ID, so traversal order
// is deterministic across runs. IDs follow creation order.
func (n *node) orderedSubs() []*node {
	if len(n.subs) == 0 {
		return nil
	}
	subs := make([]*node, 0, len(n.subs))
	for _, sub := range n.subs {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })
	return subs
}
