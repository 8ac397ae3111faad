package pool

import (
	"context"
	"sync"
)

// Result is the outcome for the item at the same index of the input.
// Skipped is set when the context was cancelled before the item was picked up.
type Result[R any] struct {
	Value   R
	Err     error
	Skipped bool
}

// Map processes items concurrently with numWorkers workers and returns one
// Result per item, in input order. Fewer than one worker is treated as one.
func Map[T, R any](ctx context.Context, items []T, numWorkers int, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	if numWorkers < 1 {
		numWorkers = 1
	}

	results := make([]Result[R], len(items))
	for i := range results {
		results[i].Skipped = true
	}

	var wg sync.WaitGroup
	taskChan := make(chan int, numWorkers)

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range taskChan {
				if ctx.Err() != nil {
					continue
				}
				v, err := fn(ctx, items[idx])
				// Each index is written by exactly one worker.
				results[idx] = Result[R]{Value: v, Err: err}
			}
		}()
	}

OUT:
	for i := range items {
		select {
		case taskChan <- i:
		case <-ctx.Done():
			break OUT
		}
	}
	close(taskChan)

	wg.Wait()
	return results
}

// Errors collects the non-nil errors of results.
func Errors[R any](results []Result[R]) []error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}
