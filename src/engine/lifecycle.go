package engine

import "sync/atomic"

// -----------------------------------------------------------------------------
// LifecycleToken marks one subscription lifetime as active or released.
// Deferred continuations check it before touching any state.
// -----------------------------------------------------------------------------

type LifecycleToken struct {
	released atomic.Bool
}

func NewLifecycleToken() *LifecycleToken {
	return &LifecycleToken{}
}

// Active is false once Release has been called
func (t *LifecycleToken) Active() bool {
	return t != nil && !t.released.Load()
}

// Release invalidates every continuation bound to this token
func (t *LifecycleToken) Release() {
	if t != nil {
		t.released.Store(true)
	}
}
