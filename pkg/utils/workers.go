package utils

import (
	"context"
	"runtime"
	"sync"
)

// ParallelFor calls fn(i) for i in [0, n) on at most workers goroutines. It stops handing out
// work after the first error or when ctx is done, and returns that error.
// workers <= 0 means runtime.NumCPU().
func ParallelFor(ctx context.Context, n, workers int, fn func(i int) error) error {
	if n <= 0 {
		return ctx.Err()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}

	var (
		wg      sync.WaitGroup
		once    sync.Once
		firstEr error
		jobs    = make(chan int)
		done    = make(chan struct{})
	)
	fail := func(err error) {
		once.Do(func() {
			firstEr = err
			close(done)
		})
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := fn(i); err != nil {
					fail(err)
				}
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			fail(ctx.Err())
			break feed
		case <-done:
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return firstEr
}
