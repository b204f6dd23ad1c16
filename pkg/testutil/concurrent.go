package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	"adminconsole/pkg/platform/sentinel"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes   int32
	Errors      int32
	Conflicts   int32
	Unavailable int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.Conflicts + r.Unavailable
}

// RunConcurrent runs fn in n goroutines released together and counts the
// outcomes. Conflict and unavailable errors are counted apart from the rest.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var successes, errs, conflicts, unavailable atomic.Int32
	run(n, func(idx int) {
		err := fn(idx)
		switch {
		case err == nil:
			successes.Add(1)
		case errors.Is(err, sentinel.ErrConflict):
			conflicts.Add(1)
		case errors.Is(err, sentinel.ErrUnavailable):
			unavailable.Add(1)
		default:
			errs.Add(1)
		}
	})
	return &ConcurrentResult{
		Successes:   successes.Load(),
		Errors:      errs.Load(),
		Conflicts:   conflicts.Load(),
		Unavailable: unavailable.Load(),
	}
}

// RunConcurrentCollect is RunConcurrent for callers that need the errors
// themselves.
func RunConcurrentCollect(n int, fn func(idx int) error) (successes int32, errs []error) {
	var mu sync.Mutex
	var ok atomic.Int32
	run(n, func(idx int) {
		if err := fn(idx); err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			return
		}
		ok.Add(1)
	})
	return ok.Load(), errs
}

// run starts n goroutines, holds them on a barrier until all are scheduled,
// then waits for every one to return.
func run(n int, fn func(idx int)) {
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			fn(i)
		}()
	}
	close(start)
	wg.Wait()
}
