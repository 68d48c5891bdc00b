package reactor

// Batch groups multiple writes into a single propagation pass. Values
// update immediately inside the batch, but marking, settlement and
// notification are deferred until the outermost batch completes, so
// each affected derivation settles at most once and each affected
// observer fires at most once for the whole group.
//
// Batches nest; only the outermost completion propagates.
//
// Example:
//
//	Batch(func() {
//	    firstName.Set("John")
//	    lastName.Set("Doe")
//	})
//	// fullName settles once, its observers fire once
func Batch(fn func()) {
	t := getTracker()
	t.batchDepth++

	defer func() {
		t.batchDepth--
		if t.batchDepth == 0 {
			if sources := t.drainWrites(); len(sources) > 0 {
				propagate(t, sources)
			}
		}
	}()

	fn()
}

// Untracked runs fn without recording dependency edges for the
// enclosing evaluation. Evaluations started inside fn (a stale
// derivation being read, say) still capture their own dependencies
// normally; only the link to the current evaluator is suppressed.
//
// For a single read, Peek is clearer.
func Untracked(fn func()) {
	t := getTracker()
	t.stack = append(t.stack, nil)
	defer func() {
		t.stack = t.stack[:len(t.stack)-1]
	}()
	fn()
}

// UntrackedGet reads a value without recording a dependency.
// Equivalent to src.Peek().
func UntrackedGet[T any](src Source[T]) T {
	return src.Peek()
}
