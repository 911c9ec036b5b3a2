package scheduleclient

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Bulk runs fn over items concurrently using a bounded worker pool
// (spec.md recommends 5-20 workers). Preserves no ordering guarantee
// beyond index alignment with items; a per-item error yields a nil
// result at that index rather than aborting the batch, matching
// original_source/yapi.py's bulk_thread_stops semantics (per-query
// exceptions swallowed, Nones returned).
func Bulk[T any, R any](ctx context.Context, items []T, workers int, fn func(context.Context, T) (*R, error)) []*R {
	if workers < 1 {
		workers = 1
	}
	results := make([]*R, len(items))
	sem := make(chan struct{}, workers)

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		i, item := i, item
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			res, err := fn(gctx, item)
			if err != nil {
				results[i] = nil
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}
