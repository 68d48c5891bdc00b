package reactor

// Observer is a terminal subscriber: it carries no value of its own and
// exists to run a side-effecting callback after the values it watches
// have settled. Callbacks never observe a transitional state; they run
// once per originating write, after the whole pass has committed.
type Observer struct {
	n *node

	// wrapped is the internal Computed created by Watch, disposed
	// together with the observer. nil for direct subscriptions.
	wrapped func()
}

// ObserveOption configures a subscription.
type ObserveOption func(*observeOptions)

type observeOptions struct {
	skipInitial bool
}

// SkipInitial suppresses the immediate callback invocation that
// Subscribe and Watch otherwise perform with the current value.
func SkipInitial() ObserveOption {
	return func(o *observeOptions) {
		o.skipInitial = true
	}
}

// Subscribe attaches a callback directly to src. The callback fires
// once immediately with the current value (unless SkipInitial is
// given), and then once per write whose propagation changes src's
// value. Dispose the returned Observer to stop receiving
// notifications.
//
// If a Scope is active (see WithScope), the observer is adopted by it
// and disposed with it.
func Subscribe[T any](src Source[T], fn func(T), opts ...ObserveOption) *Observer {
	var cfg observeOptions
	for _, opt := range opts {
		opt(&cfg)
	}

	o := &Observer{n: newNode(kindObserver)}
	o.n.fire = func() {
		fn(src.Peek())
	}
	addEdge(o.n, src.graphNode())

	if scope := getTracker().currentScope; scope != nil {
		scope.adopt(o)
	}

	// Prime the source even when the initial callback is suppressed:
	// a wrapped expression must evaluate once so its dependency edges
	// exist before the first write.
	current := src.Peek()
	if !cfg.skipInitial {
		fn(current)
	}
	return o
}

// Watch subscribes to an arbitrary expression. The expression is
// wrapped in an internal Computed so the same dependency-capture
// machinery applies; the callback fires when the expression's value
// changes. The internal Computed is disposed with the observer.
func Watch[T any](expr func() T, fn func(T), opts ...ObserveOption) *Observer {
	c := NewComputed(expr)
	o := Subscribe[T](c, fn, opts...)
	o.wrapped = c.Dispose
	return o
}

// Dispose removes the observer from every dependency's dependent set,
// leaving no dangling edges. Idempotent, and safe to call from within
// the observer's own callback: the current pass simply skips it from
// then on.
func (o *Observer) Dispose() {
	if o.n.disposed {
		return
	}
	o.n.detach()
	o.n.disposed = true
	if o.wrapped != nil {
		o.wrapped()
	}
}

// IsDisposed reports whether the observer has been disposed.
func (o *Observer) IsDisposed() bool {
	return o.n.disposed
}

// ID returns the unique identifier for this observer.
func (o *Observer) ID() uint64 {
	return o.n.id
}
