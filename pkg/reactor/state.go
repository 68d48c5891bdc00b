package reactor

import "fmt"

// Source is the read capability shared by State and Computed. Any
// helper that wants to participate in dependency capture without being
// a full Computed reads through this interface; combinator layers
// compose Sources by wrapping them in Computeds.
type Source[T any] interface {
	// Get returns the current value, recording a dependency edge when
	// called during a tracked evaluation.
	Get() T

	// Peek returns the current value without recording a dependency.
	Peek() T

	// graphNode exposes the node identity to the engine.
	graphNode() *node
}

// State is a mutable reactive cell: a leaf of the dependency graph with
// no dependencies of its own. All writes originate here.
type State[T any] struct {
	n     *node
	value T

	// equal decides whether a write actually changed the value.
	// nil means defaultEquals.
	equal func(T, T) bool
}

// NewState creates a detached leaf cell holding initial.
func NewState[T any](initial T) *State[T] {
	return &State[T]{
		n:     newNode(kindState),
		value: initial,
	}
}

// Get returns the current value and records a dependency edge when
// called from inside a tracked evaluation. Reads have no recompute
// cost.
func (s *State[T]) Get() T {
	s.n.checkUsable()
	getTracker().recordRead(s.n)
	return s.value
}

// Peek returns the current value without recording a dependency.
func (s *State[T]) Peek() T {
	s.n.checkUsable()
	return s.value
}

// Set writes a new value. If the value is equal to the current one (by
// the cell's equality function) the write is a complete no-op: no
// propagation, no notifications. Otherwise every transitive dependent
// is updated and affected observers fire before Set returns, unless a
// batch is open, in which case propagation is deferred to the end of
// the outermost batch.
//
// Calling Set from inside an evaluator panics with ErrReentrantWrite.
func (s *State[T]) Set(value T) {
	s.write(func(T) T { return value })
}

// Update applies fn to the current value and writes the result. Same
// propagation and equality semantics as Set.
func (s *State[T]) Update(fn func(T) T) {
	s.write(fn)
}

func (s *State[T]) write(fn func(T) T) {
	s.n.checkUsable()

	t := getTracker()
	if t.inEvaluation() {
		panic(fmt.Errorf("%w (state %d)", ErrReentrantWrite, s.n.id))
	}

	prev := s.value
	next := fn(prev)
	if s.equals(prev, next) {
		return
	}
	s.value = next

	if t.batchDepth > 0 {
		t.queueWrite(s.n, func() bool {
			return !s.equals(s.value, prev)
		})
		return
	}
	propagate(t, []*node{s.n})
}

// WithEquals installs a custom equality function and returns the cell.
// Useful when reflect.DeepEqual is too expensive or has the wrong
// semantics for the value type.
func (s *State[T]) WithEquals(fn func(T, T) bool) *State[T] {
	s.equal = fn
	return s
}

// Dispose detaches the cell from the graph. Disposing a cell that
// still has live dependents is a caller bug: the dependents fail with
// ErrDisposed the next time their evaluation reaches this cell.
// Idempotent.
func (s *State[T]) Dispose() {
	if s.n.disposed {
		return
	}
	s.n.detach()
	s.n.disposed = true
}

// ID returns the unique identifier for this cell.
func (s *State[T]) ID() uint64 {
	return s.n.id
}

func (s *State[T]) graphNode() *node { return s.n }

func (s *State[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}
