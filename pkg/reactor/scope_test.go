package reactor

import "testing"

func TestScopeDisposesObservers(t *testing.T) {
	count := NewState(0)
	scope := NewScope(nil)

	fires := 0
	WithScope(scope, func() {
		Subscribe(count, func(int) { fires++ }, SkipInitial())
	})

	count.Set(1)
	if fires != 1 {
		t.Fatalf("expected 1 fire, got %d", fires)
	}

	scope.Dispose()
	if !scope.IsDisposed() {
		t.Error("expected IsDisposed after Dispose")
	}

	count.Set(2)
	if fires != 1 {
		t.Errorf("observer survived scope disposal, fires=%d", fires)
	}
	if len(count.graphNode().subs) != 0 {
		t.Errorf("dangling edges after scope disposal: %d", len(count.graphNode().subs))
	}
}

func TestScopeHierarchyDisposeOrder(t *testing.T) {
	root := NewScope(nil)
	child := NewScope(root)
	grandchild := NewScope(child)

	var order []string
	root.OnCleanup(func() { order = append(order, "root") })
	child.OnCleanup(func() { order = append(order, "child") })
	grandchild.OnCleanup(func() { order = append(order, "grandchild") })

	root.Dispose()

	want := []string{"grandchild", "child", "root"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("at %d: expected %s, got %s", i, want[i], order[i])
		}
	}
	if !grandchild.IsDisposed() || !child.IsDisposed() {
		t.Error("children not disposed with root")
	}
}

func TestScopeCleanupReverseOrder(t *testing.T) {
	scope := NewScope(nil)

	var order []int
	scope.OnCleanup(func() { order = append(order, 1) })
	scope.OnCleanup(func() { order = append(order, 2) })
	scope.OnCleanup(func() { order = append(order, 3) })

	scope.Dispose()

	if len(order) != 3 || order[0] != 3 || order[1] != 2 || order[2] != 1 {
		t.Errorf("expected reverse order [3 2 1], got %v", order)
	}
}

func TestScopeOnCleanupAfterDisposeRunsImmediately(t *testing.T) {
	scope := NewScope(nil)
	scope.Dispose()

	ran := false
	scope.OnCleanup(func() { ran = true })
	if !ran {
		t.Error("cleanup on a disposed scope should run immediately")
	}
}

func TestScopeAdoptAfterDisposeDisposesObserver(t *testing.T) {
	count := NewState(0)
	scope := NewScope(nil)
	scope.Dispose()

	fires := 0
	WithScope(scope, func() {
		Subscribe(count, func(int) { fires++ }, SkipInitial())
	})

	count.Set(1)
	if fires != 0 {
		t.Errorf("observer adopted by a dead scope fired %d times", fires)
	}
}

func TestWithScopeRestoresPrevious(t *testing.T) {
	outer := NewScope(nil)
	inner := NewScope(nil)
	defer outer.Dispose()
	defer inner.Dispose()

	WithScope(outer, func() {
		WithScope(inner, func() {
			if getTracker().currentScope != inner {
				t.Error("inner scope not active")
			}
		})
		if getTracker().currentScope != outer {
			t.Error("outer scope not restored")
		}
	})
	if getTracker().currentScope != nil {
		t.Error("scope leaked outside WithScope")
	}
}

func TestPackageLevelOnCleanup(t *testing.T) {
	scope := NewScope(nil)

	ran := false
	WithScope(scope, func() {
		OnCleanup(func() { ran = true })
	})

	scope.Dispose()
	if !ran {
		t.Error("OnCleanup did not run on scope disposal")
	}
}
