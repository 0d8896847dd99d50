package app

import (
	"context"
	"sync"
)

// runPool processes items with a fixed number of workers. Once ctx is done the
// feeder stops and queued items are dropped; items a worker already started
// run to completion. It returns ctx.Err() whenever ctx was done by the time
// the workers drained, even if nothing was dropped.
func runPool[T any](ctx context.Context, workers int, items []T, handle func(workerID int, item T)) error {
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan T, workers)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for item := range jobs {
				if ctx.Err() != nil {
					continue
				}
				handle(workerID, item)
			}
		}(i + 1)
	}

	// Feed jobs to workers
feed:
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- item:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return ctx.Err()
}
