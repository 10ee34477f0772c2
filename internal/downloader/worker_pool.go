package downloader

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// runBounded calls fn(i) for i in [0,n) with at most limit calls running
// at once. Once ctx is done no further calls are started; the ones already
// running are waited for.
func runBounded(ctx context.Context, limit, n int, fn func(i int)) {
	if limit < 1 {
		limit = 1
	}
	if limit > n && n > 0 {
		limit = n
	}

	sem := semaphore.NewWeighted(int64(limit))
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			fn(i)
		}(i)
	}

	wg.Wait()
}
