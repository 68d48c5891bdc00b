package reactor

// Scope is a disposal boundary that owns observers. Disposing a scope
// disposes every observer created under it, every child scope, and runs
// registered cleanup functions, preventing leaked subscriptions when a
// unit of work (a session, a screen, a request) ends.
//
// Scopes form a hierarchy: children dispose before their parent, each
// in reverse creation order.
type Scope struct {
	id     uint64
	parent *Scope

	children  []*Scope
	observers []*Observer
	cleanups  []func()

	disposed bool
}

// NewScope creates a scope under parent. A nil parent creates a root
// scope.
func NewScope(parent *Scope) *Scope {
	s := &Scope{
		id:     nextID(),
		parent: parent,
	}
	if parent != nil {
		parent.children = append(parent.children, s)
	}
	return s
}

// ID returns the unique identifier for this scope.
func (s *Scope) ID() uint64 {
	return s.id
}

// Parent returns the parent scope, or nil for a root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// IsDisposed reports whether the scope has been disposed.
func (s *Scope) IsDisposed() bool {
	return s.disposed
}

// OnCleanup registers fn to run when the scope is disposed. If the
// scope is already disposed, fn runs immediately.
func (s *Scope) OnCleanup(fn func()) {
	if s.disposed {
		fn()
		return
	}
	s.cleanups = append(s.cleanups, fn)
}

// adopt registers an observer for disposal with this scope.
func (s *Scope) adopt(o *Observer) {
	if s.disposed {
		o.Dispose()
		return
	}
	s.observers = append(s.observers, o)
}

// Dispose disposes the scope: children in reverse creation order,
// then owned observers, then cleanups in reverse registration order.
// Idempotent.
func (s *Scope) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true

	if s.parent != nil {
		s.parent.removeChild(s)
	}

	children := s.children
	s.children = nil
	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	observers := s.observers
	s.observers = nil
	for _, o := range observers {
		o.Dispose()
	}

	cleanups := s.cleanups
	s.cleanups = nil
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

func (s *Scope) removeChild(child *Scope) {
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

// WithScope runs fn with scope adopting every observer created inside.
// The previous scope is restored on return.
func WithScope(scope *Scope, fn func()) {
	t := getTracker()
	old := t.currentScope
	t.currentScope = scope
	defer func() {
		t.currentScope = old
	}()
	fn()
}

// OnCleanup registers fn with the currently active scope. No-op when no
// scope is active.
func OnCleanup(fn func()) {
	if scope := getTracker().currentScope; scope != nil {
		scope.OnCleanup(fn)
	}
}
