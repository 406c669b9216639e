package tasks

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// BatchOpts contains configuration for [RunBatch].
type BatchOpts struct {
	NumWorkers int     // Concurrent workers (default: 5, max: 10)
	RateLimit  float64 // Starts per second (default: 5)
}

// BatchResult is the outcome of one item of a batch.
type BatchResult struct {
	Index   int
	Err     error
	Elapsed time.Duration
}

// RunBatch calls fn for indexes 0..n-1 on a worker pool, starting at most RateLimit items per second. Results are
// returned in index order. Items not started before ctx is done report ctx's error.
func RunBatch(ctx context.Context, n int, opts BatchOpts, fn func(ctx context.Context, i int) error) []BatchResult {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan int, n)
	results := make(chan BatchResult, n)

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go batchWorker(ctx, &wg, jobs, results, fn)
	}

	go func() {
		defer close(jobs)
		for i := 0; i < n; i++ {
			if err := limiter.Wait(ctx); err != nil {
				for j := i; j < n; j++ {
					results <- BatchResult{Index: j, Err: err}
				}
				return
			}
			jobs <- i
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]BatchResult, 0, n)
	for res := range results {
		out = append(out, res)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Index < out[b].Index })
	return out
}

func batchWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan int,
	results chan<- BatchResult,
	fn func(ctx context.Context, i int) error,
) {
	defer wg.Done()

	for i := range jobs {
		if err := ctx.Err(); err != nil {
			results <- BatchResult{Index: i, Err: err}
			continue
		}
		start := time.Now()
		err := fn(ctx, i)
		results <- BatchResult{Index: i, Err: err, Elapsed: time.Since(start)}
	}
}
