// Package parallel runs independent tasks on a bounded pool of goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Workers returns the pool size to use for a requested worker count.
// Values below 1 mean "one worker per CPU".
func Workers(requested int) int {
	if requested < 1 {
		return runtime.NumCPU()
	}
	return requested
}

type result[T any] struct {
	index int
	value T
	err   error
}

// Collect runs task(i) for every i in [0, n) on at most workers goroutines.
// Each task returns an owned value; the calling goroutine is the only one
// that invokes collect, so collect may write to unsynchronized state.
// Collect returns after every task has finished. If any task failed, the
// error of the lowest failing index is returned and collect is not called
// for failed tasks.
func Collect[T any](n, workers int, task func(i int) (T, error), collect func(i int, v T)) error {
	if n <= 0 {
		return nil
	}
	workers = Workers(workers)
	if workers > n {
		workers = n // No need for more workers than tasks
	}

	jobs := make(chan int)
	results := make(chan result[T], workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				v, err := task(i)
				results <- result[T]{index: i, value: v, err: err}
			}
		}()
	}

	go func() {
		for i := 0; i < n; i++ {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	firstErr, firstIdx := error(nil), n
	for r := range results {
		if r.err != nil {
			if r.index < firstIdx {
				firstErr, firstIdx = r.err, r.index
			}
			continue
		}
		if collect != nil {
			collect(r.index, r.value)
		}
	}
	return firstErr
}
