// Package reactor provides the public API for the reactor reactive
// state engine.
//
// This is the recommended import for most applications:
//
//	import "github.com/daireb/reactor"
//
// Usage:
//
//	count := reactor.NewState(0)
//	doubled := reactor.NewComputed(func() int { return count.Get() * 2 })
//	obs := reactor.Subscribe(doubled, func(v int) { fmt.Println(v) })
//	count.Set(21) // prints 42
//	obs.Dispose()
package reactor

import (
	core "github.com/daireb/reactor/pkg/reactor"
)

// =============================================================================
// Primitive type aliases
// =============================================================================

type State[T any] = core.State[T]
type Computed[T any] = core.Computed[T]
type Observer = core.Observer
type Scope = core.Scope

// Source is the read capability shared by State and Computed.
type Source[T any] = core.Source[T]

// ObserveOption configures Subscribe and Watch.
type ObserveOption = core.ObserveOption

var SkipInitial = core.SkipInitial

// =============================================================================
// Constructors and subscription
// =============================================================================

// NewState creates a mutable reactive cell holding initial.
func NewState[T any](initial T) *State[T] {
	return core.NewState(initial)
}

// NewComputed creates a lazy memoized derivation of other values.
func NewComputed[T any](compute func() T) *Computed[T] {
	return core.NewComputed(compute)
}

// Subscribe attaches a callback to a value; it fires after each write
// that changes the value, and once immediately unless SkipInitial.
func Subscribe[T any](src Source[T], fn func(T), opts ...ObserveOption) *Observer {
	return core.Subscribe(src, fn, opts...)
}

// Watch subscribes to an arbitrary tracked expression.
func Watch[T any](expr func() T, fn func(T), opts ...ObserveOption) *Observer {
	return core.Watch(expr, fn, opts...)
}

// =============================================================================
// Grouping and escape hatches
// =============================================================================

// Batch groups writes into one propagation pass.
var Batch = core.Batch

// Untracked runs a function without recording dependency edges.
var Untracked = core.Untracked

// UntrackedGet reads a value without recording a dependency.
func UntrackedGet[T any](src Source[T]) T {
	return core.UntrackedGet(src)
}

// =============================================================================
// Scopes
// =============================================================================

// NewScope creates a disposal boundary for observers.
var NewScope = core.NewScope

// WithScope runs fn with scope adopting every observer created inside.
var WithScope = core.WithScope

// OnCleanup registers fn with the currently active scope.
var OnCleanup = core.OnCleanup

// =============================================================================
// Telemetry and errors
// =============================================================================

// Monitor receives propagation telemetry; see SetMonitor.
type Monitor = core.Monitor

// PropagationStats summarizes one propagation pass.
type PropagationStats = core.PropagationStats

// SetMonitor installs a propagation telemetry hook.
var SetMonitor = core.SetMonitor

// EvaluationError wraps an evaluator panic raised during propagation.
type EvaluationError = core.EvaluationError

var (
	ErrCyclicDependency = core.ErrCyclicDependency
	ErrReentrantWrite   = core.ErrReentrantWrite
	ErrDisposed         = core.ErrDisposed
)
