// Package batch runs independent simulation jobs on a bounded worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// Options controls a batch.
type Options struct {
	Workers int           // defaults to runtime.NumCPU()
	Timeout time.Duration // 0 means no timeout

	// OnDone is called once per job, from a single goroutine, as jobs
	// finish. Jobs never started because of cancellation are reported too.
	OnDone func(idx int, err error)
}

// Outcome holds per-job results in job order.
type Outcome[T any] struct {
	Results []T     // zero value for failed jobs
	Errs    []error // nil for successful jobs
	Failed  int

	// Partial is set when cancellation or the timeout cut the batch short.
	Partial bool
}

// OK reports whether job idx succeeded.
func (o *Outcome[T]) OK(idx int) bool {
	return o.Errs[idx] == nil
}

// Succeeded returns the results of successful jobs in job order.
func (o *Outcome[T]) Succeeded() []T {
	out := make([]T, 0, len(o.Results)-o.Failed)
	for i, r := range o.Results {
		if o.Errs[i] == nil {
			out = append(out, r)
		}
	}
	return out
}

// Run executes fn for job indexes 0..n-1. After cancellation no new job
// starts; a job already running sees the cancelled context and is
// expected to stop at its next checkpoint and return an error.
func Run[T any](ctx context.Context, n int, opts Options, fn func(ctx context.Context, idx int) (T, error)) *Outcome[T] {
	out := &Outcome[T]{
		Results: make([]T, n),
		Errs:    make([]error, n),
	}
	if n == 0 {
		return out
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	type result struct {
		idx int
		val T
		err error
	}

	jobs := make(chan int)
	results := make(chan result, n)

	workerCount := opts.Workers
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	workerCount = min(workerCount, n)

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: idx, err: err}
					continue
				}
				val, err := fn(ctx, idx)
				if err != nil {
					err = fmt.Errorf("job %d: %w", idx, err)
				}
				results <- result{idx: idx, val: val, err: err}
			}
		}()
	}

	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for r := range results {
			out.Results[r.idx] = r.val
			out.Errs[r.idx] = r.err
			if r.err != nil {
				out.Failed++
				if errors.Is(r.err, context.Canceled) || errors.Is(r.err, context.DeadlineExceeded) {
					out.Partial = true
				}
			}
			if opts.OnDone != nil {
				opts.OnDone(r.idx, r.err)
			}
		}
	}()

feed:
	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			for ; i < n; i++ {
				results <- result{idx: i, err: ctx.Err()}
			}
			break feed
		}
	}
	close(jobs)

	wg.Wait()
	close(results)
	<-collected
	return out
}
