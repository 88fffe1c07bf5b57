// Package schedule implements the shared-memory data-parallel scheduling
// abstraction the rest of the core is built against: sequential execution,
// a fixed-thread-count pool, and a work-stealing queue, all satisfying the
// same parallel_for/parallel_invoke primitives so a caller (internal/run,
// internal/collision's initial sweep) can swap concurrency strategy
// without touching the algorithm above it. Grounded on
// dynamo/parallel.go's hand-rolled sync.WaitGroup fan-out, generalized to
// a cancellation-aware primitive via golang.org/x/sync/errgroup.
package schedule

import (
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Scheduler is the parallel-primitive abstraction the core's concurrency
// model asks external callers to supply: sequential execution, a
// fixed-thread-count pool, or a work-stealing queue, all satisfying the
// same parallel_for/parallel_invoke shape.
type Scheduler interface {
	// ParallelFor splits [from, to) into granularity-sized chunks and runs
	// body(lo, hi) over each one, blocking until every chunk completes.
	ParallelFor(from, to, granularity int, body func(lo, hi int))
	// ParallelInvoke runs f1 and f2 concurrently and waits for both.
	ParallelInvoke(f1, f2 func())
}

// Sequential runs every chunk and invocation on the calling goroutine; the
// zero value is ready to use and is the scheduler internal/run defaults to
// when the caller supplies none.
type Sequential struct{}

func (Sequential) ParallelFor(from, to, granularity int, body func(lo, hi int)) {
	for lo := from; lo < to; lo += granularity {
		hi := lo + granularity
		if hi > to {
			hi = to
		}
		body(lo, hi)
	}
}

func (Sequential) ParallelInvoke(f1, f2 func()) {
	f1()
	f2()
}

// FixedPool statically divides [from, to) into Workers roughly-equal
// slices up front, one goroutine per slice, using errgroup.Group for the
// fork-join. Each slice may itself span multiple granularity-sized chunks,
// run sequentially within that goroutine.
type FixedPool struct {
	Workers int
}

func (p FixedPool) workers() int {
	if p.Workers < 1 {
		return 1
	}
	return p.Workers
}

func (p FixedPool) ParallelFor(from, to, granularity int, body func(lo, hi int)) {
	n := to - from
	if n <= 0 {
		return
	}
	workers := p.workers()
	if workers > n {
		workers = n
	}
	slice := (n + workers - 1) / workers

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		lo := from + w*slice
		hi := lo + slice
		if hi > to {
			hi = to
		}
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			Sequential{}.ParallelFor(lo, hi, granularity, body)
			return nil
		})
	}
	_ = g.Wait()
}

func (p FixedPool) ParallelInvoke(f1, f2 func()) {
	var g errgroup.Group
	g.Go(func() error { f1(); return nil })
	g.Go(func() error { f2(); return nil })
	_ = g.Wait()
}

// Stealing runs Workers goroutines pulling granularity-sized chunks off a
// shared atomic cursor rather than a static partition, so a goroutine that
// finishes its chunk early "steals" the next one instead of idling —
// useful when per-particle cost is uneven (e.g. dense collision clusters).
type Stealing struct {
	Workers int
}

func (s Stealing) workers() int {
	if s.Workers < 1 {
		return 1
	}
	return s.Workers
}

func (s Stealing) ParallelFor(from, to, granularity int, body func(lo, hi int)) {
	if to <= from {
		return
	}
	if granularity < 1 {
		granularity = 1
	}
	var cursor int64 = int64(from)
	workers := s.workers()

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				lo := int(atomic.AddInt64(&cursor, int64(granularity))) - granularity
				if lo >= to {
					return nil
				}
				hi := lo + granularity
				if hi > to {
					hi = to
				}
				body(lo, hi)
			}
		})
	}
	_ = g.Wait()
}

func (s Stealing) ParallelInvoke(f1, f2 func()) {
	var g errgroup.Group
	g.Go(func() error { f1(); return nil })
	g.Go(func() error { f2(); return nil })
	_ = g.Wait()
}
