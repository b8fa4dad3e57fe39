// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package solver

import (
	"sync"

	"github.com/gamescrafters/tiersolver/pkg/dbapi"
)

// flusher runs a SolvingTier's Flush in a background goroutine and
// hands its error back through wait. Both solvers (solveLoopy and
// valueIterCtx.flush) call wait right after start, so SolveTier
// reports success only after Flush has completed.
//
// A tier solve only ever flushes once, so this is a single-shot
// handle rather than a queue.
type flusher struct {
	wg   sync.WaitGroup
	err  error
	once sync.Once
}

// start launches the flush in a goroutine.
func (f *flusher) start(st dbapi.SolvingTier) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.err = st.Flush()
	}()
}

// wait blocks until the flush completes and returns its error, exactly
// once; subsequent calls return the same result without blocking.
func (f *flusher) wait() error {
	f.once.Do(func() { f.wg.Wait() })
	return f.err
}
