// Package reactor provides a fine-grained reactive state engine.
//
// The engine keeps derived values consistent with their sources
// automatically, where dependencies are tracked at runtime: reading a
// value during a tracked computation records an edge from the
// computation to the value it read.
//
// # Core Types
//
// State[T] is a mutable reactive cell:
//
//	count := NewState(0)
//	value := count.Get()  // Read (records a dependency when tracked)
//	count.Set(5)          // Write (propagates if the value changed)
//	count.Update(func(n int) int { return n + 1 })
//
// Computed[T] is a lazy, memoized derivation:
//
//	doubled := NewComputed(func() int { return count.Get() * 2 })
//	value := doubled.Get()  // Recomputes only if a dependency changed
//
// Observer receives notifications after values have settled:
//
//	obs := Subscribe(doubled, func(v int) {
//	    fmt.Println("doubled is now", v)
//	})
//	defer obs.Dispose()
//
// # Propagation
//
// A write runs a synchronous two-phase pass: every transitive dependent
// is marked stale exactly once, then computations on paths that end in
// a live observer are settled in dependency order, and finally each
// affected observer fires exactly once. A computation whose recomputed
// value is unchanged stops the cascade past itself. Multiple writes can
// be grouped into one pass with Batch.
//
// # Threading
//
// The engine assumes a single logical thread of execution. Dependency
// tracking state is held per goroutine, so independent goroutines may
// each drive their own graphs, but a single graph must only ever be
// touched from one goroutine at a time. Writes performed inside an
// evaluator and cyclic reads fail fast with ErrReentrantWrite and
// ErrCyclicDependency respectively.
package reactor
