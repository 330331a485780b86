package nursery

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// drain collects every Result from a Nursery's output channel until it
// closes, failing the test if any task panicked.
func drain[T any](t *testing.T, n *Nursery[T]) []T {
	t.Helper()
	var got []T
	for r := range n.Results() {
		if r.Recovered() {
			t.Fatalf("unexpected panic result: %v", r.Panic)
		}
		got = append(got, r.Value)
	}
	return got
}

func TestNurserySingleTaskCompletes(t *testing.T) {
	a := assert.New(t)
	n := New(4, func(sp *Spawner[int]) int { return 42 })
	got := drain(t, n)
	a.Equal([]int{42}, got)
}

// TestNurseryBoundsConcurrency spawns far more tasks than the limit and
// asserts the number of bodies executing at once never exceeds it, for
// any of a few limits — spec.md §8's core nursery invariant.
func TestNurseryBoundsConcurrency(t *testing.T) {
	for _, limit := range []int{1, 2, 5} {
		t.Run("", func(t *testing.T) {
			a := assert.New(t)
			var current, peak int64
			const numTasks = 40

			n := New(limit, func(sp *Spawner[struct{}]) struct{} {
				for i := 0; i < numTasks-1; i++ {
					sp.Spawn(func(*Spawner[struct{}]) struct{} {
						observe(&current, &peak)
						return struct{}{}
					})
				}
				observe(&current, &peak)
				return struct{}{}
			})
			drain(t, n)

			a.LessOrEqual(atomic.LoadInt64(&peak), int64(limit))
		})
	}
}

func observe(current, peak *int64) {
	c := atomic.AddInt64(current, 1)
	for {
		p := atomic.LoadInt64(peak)
		if c <= p || atomic.CompareAndSwapInt64(peak, p, c) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt64(current, -1)
}

// TestNurseryDeepSpawnChainWithSerialLimit verifies that a limit of 1
// still lets an arbitrarily deep recursive spawn chain complete,
// serialized, per spec.md §8.
func TestNurseryDeepSpawnChainWithSerialLimit(t *testing.T) {
	a := assert.New(t)
	const depth = 50
	var seen int64

	var recurse func(sp *Spawner[int], d int)
	recurse = func(sp *Spawner[int], d int) {
		if d == 0 {
			return
		}
		sp.Spawn(func(sp2 *Spawner[int]) int {
			atomic.AddInt64(&seen, 1)
			recurse(sp2, d-1)
			return d
		})
	}

	n := New(1, func(sp *Spawner[int]) int {
		recurse(sp, depth)
		return 0
	})
	drain(t, n)

	a.EqualValues(depth, atomic.LoadInt64(&seen))
}

// TestNurseryBinaryTreeYieldsExactCount spawns a complete binary tree
// of depth d (each task spawns two children until the depth is
// reached) and checks the result count is exactly 2^(d+1)-1, per
// spec.md §8.
func TestNurseryBinaryTreeYieldsExactCount(t *testing.T) {
	a := assert.New(t)
	const d = 5
	want := (1 << (d + 1)) - 1

	var build func(sp *Spawner[int], depth int) int
	build = func(sp *Spawner[int], depth int) int {
		if depth > 0 {
			sp.Spawn(func(sp2 *Spawner[int]) int { return build(sp2, depth-1) })
			sp.Spawn(func(sp2 *Spawner[int]) int { return build(sp2, depth-1) })
		}
		return depth
	}

	n := New(8, func(sp *Spawner[int]) int { return build(sp, d) })
	got := drain(t, n)

	a.Len(got, want)
}

// TestNurseryPanicPropagates checks that a panicking task surfaces as a
// Result with Panic set, rather than crashing the test process.
func TestNurseryPanicPropagates(t *testing.T) {
	a := assert.New(t)
	n := New(2, func(sp *Spawner[int]) int {
		panic("boom")
	})

	r, ok := <-n.Results()
	if !a.True(ok, "expected one result before close") {
		return
	}
	if a.True(r.Recovered(), "expected a recovered panic, got %+v", r) {
		a.Equal("boom", r.Panic)
	}
}

// TestNurseryCloseAbortsOutstandingTasks checks that once Close is
// called, tasks blocked on their context see it cancelled (the closest
// observable proxy, in Go, for "no task continues to make HTTP
// requests").
func TestNurseryCloseAbortsOutstandingTasks(t *testing.T) {
	a := assert.New(t)
	started := make(chan struct{})
	aborted := make(chan error, 1)

	n := New(1, func(sp *Spawner[int]) int {
		close(started)
		<-sp.Context().Done()
		aborted <- sp.Context().Err()
		return 0
	})

	<-started
	n.Close()

	select {
	case err := <-aborted:
		a.Error(err)
	case <-time.After(time.Second):
		t.Fatal("task was not aborted within 1s of Close")
	}
}
