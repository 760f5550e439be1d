package kmerbloom

import (
	"context"
	"slices"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// CountBatches runs BulkCount for every query on up to workers goroutines.
// results[i] holds the per-bin counts of queries[i].
//
// Each worker owns a private counting agent, so the filter is only read.
// Cancelling ctx stops the remaining queries and returns ctx's error.
func CountBatches[T Counter](ctx context.Context, f *Filter, queries [][]uint64, workers int) ([][]T, error) {
	if workers <= 0 {
		workers = 1
	}
	workers = min(workers, len(queries))
	results := make([][]T, len(queries))

	var next atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			agent := NewCountingAgent[T](f)
			for {
				i := int(next.Add(1) - 1)
				if i >= len(queries) {
					return nil
				}
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				results[i] = slices.Clone(agent.BulkCountSlice(queries[i]))
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
