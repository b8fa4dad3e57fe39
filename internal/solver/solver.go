// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package solver implements the tier solver: the retrograde
// dynamic-programming engine that computes value and remoteness for
// every reachable position of a finite two-player perfect-information
// game, one tier at a time. It dispatches between two algorithms per
// tier: frontier propagation for loopy tiers, value iteration for
// loop-free ones.
package solver

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/uuid"

	"github.com/gamescrafters/tiersolver/internal/loadedcache"
	"github.com/gamescrafters/tiersolver/pkg/dbapi"
	"github.com/gamescrafters/tiersolver/pkg/gameapi"
	cclog "github.com/gamescrafters/tiersolver/pkg/log"
	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

// Config tunes the solver's parallel-for chunk sizes and worker
// count. Zero-valued fields fall back to the defaults DefaultConfig
// returns.
type Config struct {
	// NumWorkers is the worker-thread pool size. Defaults to
	// runtime.GOMAXPROCS(0).
	NumWorkers int

	// DBChunkSize is the dynamic-scheduling chunk size for child
	// loading. Flushing a solved tier does not use it: the table is
	// written position by position from one goroutine.
	DBChunkSize int64

	// ScanChunkSize is the chunk size for tier scanning and
	// draw-marking.
	ScanChunkSize int64

	// PropagateChunkSize is the chunk size for frontier propagation.
	PropagateChunkSize int64

	// RMax is the maximum representable remoteness.
	RMax tiertype.Remoteness

	// WideCounters selects 16-bit undecided-children cells (up to
	// MaxChildrenWide children per position) instead of the default
	// 8-bit cells (up to MaxChildren), at twice the memory per
	// position.
	WideCounters bool
}

// DefaultConfig returns 1024-position chunks for scanning and
// draw-marking, 16 for frontier propagation (parent fan-out makes
// each propagation iteration far heavier than a scan iteration), and
// reuses the scan chunk size for database loading.
func DefaultConfig() Config {
	return Config{
		NumWorkers:         runtime.GOMAXPROCS(0),
		DBChunkSize:        1024,
		ScanChunkSize:      1024,
		PropagateChunkSize: 16,
		RMax:               tiertype.RMax,
	}
}

func (c Config) workers() int {
	if c.NumWorkers > 0 {
		return c.NumWorkers
	}
	return runtime.GOMAXPROCS(0)
}

func (c Config) scanChunk() int64 {
	if c.ScanChunkSize > 0 {
		return c.ScanChunkSize
	}
	return 1024
}

func (c Config) propagateChunk() int64 {
	if c.PropagateChunkSize > 0 {
		return c.PropagateChunkSize
	}
	return 16
}

func (c Config) dbChunk() int64 {
	if c.DBChunkSize > 0 {
		return c.DBChunkSize
	}
	return c.scanChunk()
}

func (c Config) rMax() tiertype.Remoteness {
	if c.RMax > 0 {
		return c.RMax
	}
	return tiertype.RMax
}

// Worker binds one game, one database, and one Config into something
// that can solve tiers. It owns no per-tier state between calls — all
// of SolveTier's working set is created in the call and destroyed at
// its end.
type Worker struct {
	Game   gameapi.GameApi
	DB     dbapi.DbApi
	Config Config

	// Cache bounds the value-iteration solver's in-RAM child-tier set
	// across repeated SolveTier calls. Optional;
	// when nil, solveValueIteration loads every child tier directly
	// through DB.LoadTier and drops it at the end of the solve, as
	// before.
	Cache *loadedcache.Cache
	// Metrics instruments this Worker's solves. Optional; a nil Metrics
	// disables instrumentation entirely.
	Metrics *Metrics
	// dbID disambiguates Cache keys when a Cache is shared by Workers
	// pointed at different databases (e.g. one fresh, one reference).
	dbID string
}

// NewWorker constructs a Worker, filling in Config defaults for any
// zero-valued field.
func NewWorker(game gameapi.GameApi, db dbapi.DbApi, cfg Config) *Worker {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = runtime.GOMAXPROCS(0)
	}
	if cfg.ScanChunkSize <= 0 {
		cfg.ScanChunkSize = 1024
	}
	if cfg.PropagateChunkSize <= 0 {
		cfg.PropagateChunkSize = 16
	}
	if cfg.DBChunkSize <= 0 {
		cfg.DBChunkSize = cfg.ScanChunkSize
	}
	if cfg.RMax <= 0 {
		cfg.RMax = tiertype.RMax
	}
	return &Worker{Game: game, DB: db, Config: cfg, dbID: fmt.Sprintf("%p", db)}
}

// SolveTier computes value/remoteness for every legal canonical
// position of tier. If force is false and the tier is already marked
// Solved, SolveTier is a no-op.
// If compare is true, the freshly solved table is cross-checked
// against a reference database (db must implement dbapi.Comparer).
func (w *Worker) SolveTier(ctx context.Context, tier tiertype.Tier, force, compare bool) error {
	runID := uuid.New().String()
	cclog.Debugf("solver: run %s solving tier %d (force=%t, compare=%t)", runID, tier, force, compare)

	if !force {
		status, err := w.DB.TierStatus(tier)
		if err != nil {
			return newErr("SolveTier", ErrCorruptDatabase, err)
		}
		if status == dbapi.Solved {
			cclog.Debugf("solver: tier %d already solved, skipping", tier)
			return nil
		}
	}

	w.Metrics.observeInFlight(tier)
	defer w.Metrics.observeIdle()

	tt := gameapi.TierTypeOf(w.Game, tier)
	var err error
	switch tt {
	case tiertype.Loopy:
		err = w.solveLoopy(ctx, tier, compare)
	case tiertype.LoopFree, tiertype.ImmediateTransition:
		err = w.solveValueIteration(ctx, tier)
	default:
		err = newErr("SolveTier", ErrBadConfig, nil)
	}
	if err != nil {
		return err
	}
	w.Metrics.observeSolved(tier)

	if compare {
		cmp, ok := w.DB.(dbapi.Comparer)
		if !ok {
			return newErr("SolveTier", ErrBadConfig, nil)
		}
		if err := w.compareTier(tier, cmp); err != nil {
			return err
		}
	}
	return nil
}

// compareTier probes every legal position of tier against the reference
// database and reports the first divergence.
func (w *Worker) compareTier(tier tiertype.Tier, cmp dbapi.Comparer) error {
	fresh, err := cmp.ProbeInit(tier)
	if err != nil {
		return newErr("compareTier", ErrCorruptDatabase, err)
	}
	defer fresh.Close()

	ref, err := cmp.ReferenceProbeInit(tier)
	if err != nil {
		return newErr("compareTier", ErrCorruptDatabase, err)
	}
	defer ref.Close()

	size := w.Game.GetTierSize(tier)
	for pos := int64(0); pos < size; pos++ {
		tp := tiertype.TierPosition{Tier: tier, Position: tiertype.Position(pos)}
		if !w.Game.IsLegalPosition(tp) {
			continue
		}
		fv, err := fresh.Value(tp)
		if err != nil {
			return newErr("compareTier", ErrCorruptDatabase, err)
		}
		rv, err := ref.Value(tp)
		if err != nil {
			return newErr("compareTier", ErrCorruptDatabase, err)
		}
		fr, _ := fresh.Remoteness(tp)
		rr, _ := ref.Remoteness(tp)
		if fv != rv || fr != rr {
			cclog.Errorf("solver: compare mismatch at %s: fresh=(%s,%d) reference=(%s,%d)",
				tp, fv, fr, rv, rr)
			return newErr("compareTier", ErrCompareMismatch, nil)
		}
	}
	return nil
}
