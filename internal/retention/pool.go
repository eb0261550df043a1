package retention

import (
	"context"
	"sync"
)

// taskResult pairs a per-category value with its captured error.
type taskResult[T any] struct {
	value T
	err   error
}

// forEachCategory fans per-category work out over at most workers
// goroutines and joins before returning. Every category's task runs to
// resolution regardless of sibling failures; errors are captured in the
// result map, never propagated across categories. workers <= 1 runs the
// tasks sequentially in the given order.
func forEachCategory[T any](ctx context.Context, categories []string, workers int, fn func(context.Context, string) (T, error)) map[string]taskResult[T] {
	results := make(map[string]taskResult[T], len(categories))

	if workers <= 1 {
		for _, category := range categories {
			value, err := fn(ctx, category)
			results[category] = taskResult[T]{value: value, err: err}
		}
		return results
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, workers)
	)

	for _, category := range categories {
		wg.Add(1)
		sem <- struct{}{}
		go func(category string) {
			defer wg.Done()
			defer func() { <-sem }()

			value, err := fn(ctx, category)

			mu.Lock()
			results[category] = taskResult[T]{value: value, err: err}
			mu.Unlock()
		}(category)
	}

	wg.Wait()
	return results
}
