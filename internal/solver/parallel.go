// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package solver

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// parallelFor partitions [0, n) into chunks of size chunkSize and runs
// fn over each chunk concurrently, bounded to workers goroutines in
// flight at once. errgroup.Group's SetLimit gives dynamic scheduling
// (a goroutine picks up the next chunk as soon as it is free) without
// hand-rolling a work-stealing queue.
//
// fn is handed a workerID in [0, workers) that, for the duration of
// one chunk, no other concurrently-running chunk is handed. Callers
// that own one resource per worker thread (e.g. a frontier.Set) must
// index it by this workerID, not by any property of the positions in
// [lo, hi) — chunk boundaries don't align with position residues, so
// deriving thread ownership from a position would let two concurrently
// running chunks pick the same slot.
func parallelFor(ctx context.Context, n int64, chunkSize int64, workers int, fn func(workerID int, lo, hi int64) error) error {
	if n <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = n
	}
	if workers <= 0 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	slots := make(chan int, workers)
	for i := 0; i < workers; i++ {
		slots <- i
	}

	for lo := int64(0); lo < n; lo += chunkSize {
		lo := lo
		hi := lo + chunkSize
		if hi > n {
			hi = n
		}
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			id := <-slots
			defer func() { slots <- id }()
			return fn(id, lo, hi)
		})
	}
	return g.Wait()
}
