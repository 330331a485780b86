// Package nursery implements a bounded tree nursery: a task group that
// lets any running task spawn further tasks into the same group, caps
// the number of tasks concurrently executing their body at a fixed
// limit, and publishes every task's return value as a pull channel that
// drains cleanly once the whole (dynamically growing) tree of work has
// completed.
//
// The design follows original_source/src/btn.rs (jwodder/batchdav's
// BoundedTreeNursery<T>/Spawner<T>) with two translations forced by the
// language:
//
//   - Rust detects "no more spawners" via the result channel's own "all
//     senders dropped" signal, which Go's chan has no equivalent of for
//     multiple producers. Here an atomic outstanding-task counter plays
//     that role, and the nursery closes its result channel itself,
//     exactly once, the moment the counter returns to zero.
//
//   - Rust gets "abort the task when its JoinHandle is dropped" for
//     free from the runtime. Go has no destructors, so each task is
//     wrapped in a Fragile Handle (handle.go) that the nursery tracks in
//     a join set and explicitly aborts, all at once, when the nursery is
//     closed.
package nursery

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Result is one task's outcome. Exactly one of Value/Panic is
// meaningful: if the task panicked, Panic holds the recovered value and
// the caller is expected to re-panic with it (Go cannot resume a panic
// across a goroutine boundary, so re-raising is the closest analog to
// the original's std::panic::resume_unwind).
type Result[T any] struct {
	Value T
	Panic any
}

// Recovered reports whether this Result is a re-raised panic rather
// than a normal return value.
func (r Result[T]) Recovered() bool { return r.Panic != nil }

// Nursery is a bounded, self-extending group of goroutines. Construct
// one with New; consume its results with Results(); call Close (or let
// the traverser's defer call it) to abort every outstanding task.
type Nursery[T any] struct {
	permits *semaphore.Weighted
	output  chan Result[T]

	outstanding int64 // atomic: number of tasks not yet matched by a send
	closeOnce   sync.Once

	mu      sync.Mutex
	joinSet []*handle // the Fragile Handles of every task not yet known to have finished
	closed  bool
}

// New creates a Nursery that limits concurrently executing task bodies
// to at most limit, and spawns root as the initial task. limit must be
// positive.
func New[T any](limit int, root func(*Spawner[T]) T) *Nursery[T] {
	if limit < 1 {
		panic("nursery: limit must be positive")
	}
	n := &Nursery[T]{
		permits: semaphore.NewWeighted(int64(limit)),
		output:  make(chan Result[T], 64),
	}
	n.spawn(root)
	return n
}

// Results returns the pull channel of task outcomes. It closes once
// every Spawner clone has stopped spawning and every in-flight task has
// reported its result — the Open -> Draining -> Closed progression of
// spec.md §4.7, observed here purely through channel state.
func (n *Nursery[T]) Results() <-chan Result[T] {
	return n.output
}

// Close drops every Fragile Handle still in the join set, aborting
// every outstanding task (spec.md §4.2 "Cancellation"). Safe to call
// more than once and safe to call after the nursery has already
// drained on its own — the join set is empty by then, so there is
// nothing left to abort.
func (n *Nursery[T]) Close() {
	n.mu.Lock()
	set := n.joinSet
	n.joinSet = nil
	n.closed = true
	n.mu.Unlock()
	for _, h := range set {
		h.abort()
	}
}

// maybeClose closes the output channel exactly once, the moment the
// outstanding-task counter reaches zero. Called after every task
// finishes sending its result.
func (n *Nursery[T]) maybeClose() {
	if atomic.LoadInt64(&n.outstanding) == 0 {
		n.closeOnce.Do(func() { close(n.output) })
	}
}

// untrack removes a finished task's handle from the join set; there is
// nothing left for Close to abort once a task has already reported its
// result.
func (n *Nursery[T]) untrack(h *handle) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, cur := range n.joinSet {
		if cur == h {
			n.joinSet = append(n.joinSet[:i], n.joinSet[i+1:]...)
			break
		}
	}
}

// spawn is the implementation shared by New (for the root task) and
// Spawner.Spawn (for every descendant): register a Fragile Handle in
// the join set, start the goroutine, acquire a permit inside it (not
// here — spec.md §4.2 requires that enqueuing never itself consumes a
// permit), run the body, release the permit, and deliver the result.
func (n *Nursery[T]) spawn(f func(*Spawner[T]) T) {
	atomic.AddInt64(&n.outstanding, 1)

	ctx, cancel := context.WithCancel(context.Background())
	h := newHandle(cancel)

	n.mu.Lock()
	alreadyClosed := n.closed
	if !alreadyClosed {
		n.joinSet = append(n.joinSet, h)
	}
	n.mu.Unlock()

	child := &Spawner[T]{n: n, ctx: ctx}

	if alreadyClosed {
		// The nursery was closed before this task was ever admitted;
		// per spec.md §4.2's ownership note, spawning after the
		// Nursery is gone is harmless because the task is aborted
		// before it can observe any state.
		h.abort()
		atomic.AddInt64(&n.outstanding, -1)
		n.maybeClose()
		return
	}

	go func() {
		defer n.untrack(h)
		defer func() {
			atomic.AddInt64(&n.outstanding, -1)
			n.maybeClose()
		}()
		defer h.abort() // releases ctx's resources once the task is done

		result := n.runWithPermit(ctx, func() T { return f(child) })
		if ctx.Err() != nil {
			// Aborted by Close; nothing left to deliver the result to.
			return
		}

		select {
		case n.output <- result:
		case <-ctx.Done():
			// Aborted by Close while trying to deliver; nothing left
			// to deliver the result to.
		}
	}()
}

// runWithPermit acquires a permit (may suspend indefinitely if the pool
// is saturated, per spec.md §4.2 step 1), runs f, and releases the
// permit on every exit path including panic — a task's permit must
// never leak just because its body panicked.
func (n *Nursery[T]) runWithPermit(ctx context.Context, f func() T) (res Result[T]) {
	if err := n.permits.Acquire(ctx, 1); err != nil {
		// Only reachable if ctx was already cancelled before the task
		// ever got to run; there is no result to report.
		return Result[T]{}
	}
	defer n.permits.Release(1)

	defer func() {
		if r := recover(); r != nil {
			res = Result[T]{Panic: r}
		}
	}()
	return Result[T]{Value: f()}
}

// Spawner is the capability handle passed to a running task so it can
// enqueue further tasks into the same Nursery. Cloning is cheap: it's a
// pointer plus the context the current task is running under.
type Spawner[T any] struct {
	n   *Nursery[T]
	ctx context.Context
}

// Spawn enqueues a new task whose body is f, passing it a fresh
// Spawner so it may recurse. Spawn never blocks on the permit pool
// itself — only the task body, once scheduled, waits for a permit —
// matching spec.md §4.2's "enqueued-but-not-started tasks do not
// consume permits."
func (s *Spawner[T]) Spawn(f func(*Spawner[T]) T) {
	s.n.spawn(f)
}

// Context returns the context this task's body is running under. HTTP
// calls made by the task should use it, so that Nursery.Close aborts
// in-flight I/O instead of just orphaning the goroutine.
func (s *Spawner[T]) Context() context.Context {
	return s.ctx
}
