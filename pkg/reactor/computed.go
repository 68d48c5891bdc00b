package reactor

// Computed is a memoized derivation: its value is produced by a pure
// evaluator that reads other Sources. The evaluator does not run at
// construction time; the first read (or the first propagation pass that
// needs the value) evaluates it, and the result is cached until a
// dependency changes.
//
// The dependency set is captured fresh on every evaluation, so
// conditional reads work: only the branches actually taken this run
// are dependencies until the next run.
type Computed[T any] struct {
	n       *node
	compute func() T
	value   T

	// evaluated is false until the first successful evaluation, so the
	// first settled value always counts as a change regardless of the
	// zero value.
	evaluated bool

	equal func(T, T) bool
}

// NewComputed creates a derivation in the "stale, never evaluated"
// state. The evaluator must be a pure function of other Sources' values:
// writes inside it fail with ErrReentrantWrite, and reading itself
// (directly or transitively) fails with ErrCyclicDependency.
func NewComputed[T any](compute func() T) *Computed[T] {
	c := &Computed[T]{
		n:       newNode(kindComputed),
		compute: compute,
	}
	c.n.dirty = true
	c.n.settle = c.settleValue
	return c
}

// Get returns the value, evaluating first if it is stale, and records
// a dependency edge on this Computed for any outer evaluation. Outer
// evaluations depend on the Computed itself, never on its inner
// dependencies: edges do not bypass levels.
//
// If the evaluator panics, the panic reaches the caller and the
// Computed stays stale, so reading again retries.
func (c *Computed[T]) Get() T {
	c.n.checkUsable()
	t := getTracker()
	if c.n.dirty {
		c.settleValue()
	}
	t.recordRead(c.n)
	return c.value
}

// Peek returns the value without recording a dependency for the
// caller. Still evaluates if the cached value is stale.
func (c *Computed[T]) Peek() T {
	c.n.checkUsable()
	if c.n.dirty {
		c.settleValue()
	}
	return c.value
}

// WithEquals installs a custom equality function and returns the
// Computed. Equality decides whether a recomputation counts as a change
// for downstream propagation.
func (c *Computed[T]) WithEquals(fn func(T, T) bool) *Computed[T] {
	c.equal = fn
	return c
}

// Dispose detaches the derivation from the graph. Dependents that
// still read it afterwards fail with ErrDisposed. Idempotent.
func (c *Computed[T]) Dispose() {
	if c.n.disposed {
		return
	}
	c.n.detach()
	c.n.disposed = true
}

// ID returns the unique identifier for this derivation.
func (c *Computed[T]) ID() uint64 {
	return c.n.id
}

func (c *Computed[T]) graphNode() *node { return c.n }

// settleValue re-runs the evaluator under tracking, committing a fresh
// value and a fresh dependency set, and reports whether the value
// changed. The stale flag clears only after the evaluator returns; a
// panic leaves the node stale with whatever edges were captured so far,
// which keeps both sides of every edge consistent.
func (c *Computed[T]) settleValue() bool {
	t := getTracker()
	var next T
	eval := func() {
		next = c.compute()
	}
	if t.committing {
		// Attribute a panic to this evaluator before it unwinds
		// through outer evaluations, so the error names the node that
		// actually failed rather than whichever node was reading it.
		inner := eval
		eval = func() {
			defer func() {
				if r := recover(); r != nil {
					if _, ok := r.(*EvaluationError); !ok {
						r = &EvaluationError{NodeID: c.n.id, Cause: r}
					}
					panic(r)
				}
			}()
			inner()
		}
	}
	t.track(c.n, eval)

	changed := !c.evaluated || !c.equals(c.value, next)
	c.value = next
	c.evaluated = true
	c.n.dirty = false
	c.n.lastChanged = changed
	return changed
}

func (c *Computed[T]) equals(a, b T) bool {
	if c.equal != nil {
		return c.equal(a, b)
	}
	return defaultEquals(a, b)
}
