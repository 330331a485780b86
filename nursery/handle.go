package nursery

import (
	"context"
	"sync"
)

// handle is a Fragile Handle (spec.md §4.1): a wrapper around one
// spawned task that aborts the task when told to, and does so at most
// once no matter how many times abort is called. The Rust original
// gets this for free from JoinHandle::abort on Drop; Go has no
// destructors, so the nursery calls abort explicitly on every tracked
// handle when it is closed.
type handle struct {
	once   sync.Once
	cancel context.CancelFunc
}

// newHandle creates a Fragile Handle whose abort cancels ctx, the
// context the wrapped task's body runs under.
func newHandle(cancel context.CancelFunc) *handle {
	return &handle{cancel: cancel}
}

// abort cancels the wrapped task's context. Idempotent: safe to call
// from Nursery.Close even if the task already finished on its own.
func (h *handle) abort() {
	h.once.Do(h.cancel)
}
