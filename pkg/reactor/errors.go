package reactor

import (
	"errors"
	"fmt"
)

// ErrCyclicDependency is the failure raised when an evaluation reads
// itself, directly or transitively. The dependency graph must be a DAG;
// a self-referential computation is a programming error and fails fast
// instead of recursing until the stack overflows. The offending node is
// left stale so the panic carries no partially-committed state.
var ErrCyclicDependency = errors.New("reactor: cyclic dependency")

// ErrReentrantWrite is the failure raised when a State write is
// attempted from inside an evaluator. Evaluators must be pure reads;
// the write is rejected before any value or propagation state changes.
//
// Writes from observer callbacks are allowed: callbacks run after the
// pass has settled, so a write there starts an ordinary new pass.
var ErrReentrantWrite = errors.New("reactor: write during evaluation")

// ErrDisposed is the failure raised by any operation on a disposed
// node. Disposing a node that still has live dependents is a lifecycle
// bug in the caller; the dependents hit this error the next time their
// evaluation reaches the disposed node.
var ErrDisposed = errors.New("reactor: node used after dispose")

// EvaluationError wraps a panic raised by a user-supplied evaluator
// while the propagation engine was settling values. The failed node and
// everything downstream of it are left stale, so reading them again
// retries the evaluation. Unaffected branches of the same pass still
// settle and notify before the error is re-raised to the writer.
type EvaluationError struct {
	// NodeID identifies the node whose evaluator failed.
	NodeID uint64

	// Cause is the value recovered from the evaluator's panic.
	Cause any
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("reactor: evaluator for node %d panicked: %v", e.NodeID, e.Cause)
}

// Unwrap exposes the cause for errors.Is/As when the evaluator panicked
// with an error value.
func (e *EvaluationError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}
