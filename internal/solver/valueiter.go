// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package solver

import (
	"context"
	"sync/atomic"

	"github.com/gamescrafters/tiersolver/internal/loadedcache"
	"github.com/gamescrafters/tiersolver/pkg/dbapi"
	"github.com/gamescrafters/tiersolver/pkg/gameapi"
	cclog "github.com/gamescrafters/tiersolver/pkg/log"
	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

// valueIterCtx is the value-iteration analog of loopyCtx, scoped to
// one solveValueIteration call.
type valueIterCtx struct {
	w    *Worker
	tier tiertype.Tier

	children map[tiertype.Tier]dbapi.LoadedTier
	// cached marks children entries owned by w.Cache, so cleanup does
	// not Unload a tier another solve may still be reading.
	cached map[tiertype.Tier]bool

	size    int64
	value   []tiertype.Value
	remote  []tiertype.Remoteness
	legal   []bool
}

// solveValueIteration is the loop-free fixed-point alternative to the
// frontier machinery, for tiers whose GetTierType reports LoopFree or
// ImmediateTransition: load children into RAM, then relax win/lose
// and tie remotenesses layer by layer until nothing changes.
func (w *Worker) solveValueIteration(ctx context.Context, tier tiertype.Tier) error {
	vc := &valueIterCtx{
		w:        w,
		tier:     tier,
		children: make(map[tiertype.Tier]dbapi.LoadedTier),
		cached:   make(map[tiertype.Tier]bool),
	}
	defer vc.cleanup()

	rWL, rT, err := vc.loadChildren(ctx)
	if err != nil {
		return err
	}

	if err := vc.initTable(ctx); err != nil {
		return err
	}

	if err := vc.iterateWinLose(ctx, rWL); err != nil {
		return err
	}
	if err := vc.iterateTie(ctx, rT); err != nil {
		return err
	}

	return vc.flush()
}

func (vc *valueIterCtx) cleanup() {
	for tier, c := range vc.children {
		if vc.cached[tier] {
			continue
		}
		c.Unload()
	}
}

// loadChildren loads every child tier into RAM and returns
// the largest win/lose remoteness and largest tie remoteness observed
// across them, used as the iteration-count stopping bound.
func (vc *valueIterCtx) loadChildren(ctx context.Context) (tiertype.Remoteness, tiertype.Remoteness, error) {
	w := vc.w
	childTiers := w.Game.GetChildTiers(vc.tier)
	var rwlMax, rtMax atomic.Int64
	for _, child := range childTiers {
		var lt dbapi.LoadedTier
		var err error
		if w.Cache != nil {
			key := loadedcache.Key(w.dbID, child)
			lt, err = w.Cache.Get(key, func() (dbapi.LoadedTier, error) { return w.DB.LoadTier(child) })
			if err == nil {
				vc.cached[child] = true
			}
		} else {
			lt, err = w.DB.LoadTier(child)
		}
		if err != nil {
			return 0, 0, newErr("loadChildren", ErrCorruptDatabase, err)
		}
		vc.children[child] = lt

		size := lt.Size()
		err = parallelFor(ctx, size, w.Config.dbChunk(), w.Config.workers(), func(_ int, lo, hi int64) error {
			for pos := lo; pos < hi; pos++ {
				v := lt.Value(tiertype.Position(pos))
				r := lt.Remoteness(tiertype.Position(pos))
				switch v {
				case tiertype.Win, tiertype.Lose:
					casMax(&rwlMax, int64(r))
				case tiertype.Tie:
					casMax(&rtMax, int64(r))
				}
			}
			return nil
		})
		if err != nil {
			return 0, 0, err
		}
	}
	return tiertype.Remoteness(rwlMax.Load()), tiertype.Remoteness(rtMax.Load()), nil
}

func casMax(a *atomic.Int64, v int64) {
	for {
		old := a.Load()
		if v <= old {
			return
		}
		if a.CompareAndSwap(old, v) {
			return
		}
	}
}

// initTable allocates the working arrays, marks illegal and
// non-canonical positions transiently as draw (inverted by flush so
// the iterations skip them cheaply), and writes primitives at
// remoteness 0.
func (vc *valueIterCtx) initTable(ctx context.Context) error {
	w := vc.w
	size := w.Game.GetTierSize(vc.tier)
	if size < 0 {
		return newErr("initTable", ErrGameApi, nil)
	}
	vc.size = size
	vc.value = make([]tiertype.Value, size)
	vc.remote = make([]tiertype.Remoteness, size)
	vc.legal = make([]bool, size)

	err := parallelFor(ctx, size, w.Config.scanChunk(), w.Config.workers(), func(_ int, lo, hi int64) error {
		for pos := lo; pos < hi; pos++ {
			tp := tiertype.TierPosition{Tier: vc.tier, Position: tiertype.Position(pos)}
			if !w.Game.IsLegalPosition(tp) {
				vc.value[pos] = tiertype.Draw // transient, inverted by flush
				continue
			}
			if cp, ok := w.Game.(gameapi.CanonicalPositioner); ok && cp.GetCanonicalPosition(tp) != tp.Position {
				vc.value[pos] = tiertype.Draw // transient
				continue
			}
			vc.legal[pos] = true
			if v := w.Game.Primitive(tp); v != tiertype.Undecided {
				vc.value[pos] = v
				vc.remote[pos] = 0
			} else {
				vc.value[pos] = tiertype.Undecided
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	w.Metrics.observeScanned(size)
	return nil
}

// childValue resolves the value/remoteness of a child TierPosition,
// whether it lies in vc.tier itself (already-decided slots of the
// working array) or in a loaded child tier.
func (vc *valueIterCtx) childValue(tp tiertype.TierPosition) (tiertype.Value, tiertype.Remoteness, bool) {
	if tp.Tier == vc.tier {
		if int64(tp.Position) < 0 || int64(tp.Position) >= vc.size {
			return tiertype.Undecided, 0, false
		}
		v := vc.value[tp.Position]
		if v == tiertype.Undecided {
			return tiertype.Undecided, 0, false
		}
		return v, vc.remote[tp.Position], true
	}
	lt, ok := vc.children[tp.Tier]
	if !ok {
		return tiertype.Undecided, 0, false
	}
	v := lt.Value(tp.Position)
	if v == tiertype.Undecided {
		return tiertype.Undecided, 0, false
	}
	return v, lt.Remoteness(tp.Position), true
}

// iterateWinLose runs the win/lose fixed point.
func (vc *valueIterCtx) iterateWinLose(ctx context.Context, rWL tiertype.Remoteness) error {
	w := vc.w
	for i := tiertype.Remoteness(1); ; i++ {
		var changed atomic.Bool
		err := parallelFor(ctx, vc.size, w.Config.scanChunk(), w.Config.workers(), func(_ int, lo, hi int64) error {
			for pos := lo; pos < hi; pos++ {
				if !vc.legal[pos] || vc.value[pos] != tiertype.Undecided {
					continue
				}
				tp := tiertype.TierPosition{Tier: vc.tier, Position: tiertype.Position(pos)}
				children, err := vc.children0(tp)
				if err != nil {
					return err
				}

				haveLoseAtPrev := false
				allWin := true
				maxWinRemote := tiertype.Remoteness(-1)
				for _, c := range children {
					cv, cr, known := vc.childValue(c)
					if !known {
						allWin = false
						continue
					}
					if cv == tiertype.Lose && cr == i-1 {
						haveLoseAtPrev = true
						break
					}
					if cv != tiertype.Win {
						allWin = false
					} else if cr > maxWinRemote {
						maxWinRemote = cr
					}
				}
				if haveLoseAtPrev {
					vc.value[pos] = tiertype.Win
					vc.remote[pos] = i
					changed.Store(true)
				} else if allWin && maxWinRemote == i-1 {
					vc.value[pos] = tiertype.Lose
					vc.remote[pos] = i
					changed.Store(true)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		if !changed.Load() && i > rWL+1 {
			return nil
		}
	}
}

// iterateTie runs the tie fixed point, analogous to iterateWinLose
// but only ever promoting still-undecided positions.
func (vc *valueIterCtx) iterateTie(ctx context.Context, rT tiertype.Remoteness) error {
	w := vc.w
	for i := tiertype.Remoteness(1); ; i++ {
		var changed atomic.Bool
		err := parallelFor(ctx, vc.size, w.Config.scanChunk(), w.Config.workers(), func(_ int, lo, hi int64) error {
			for pos := lo; pos < hi; pos++ {
				if !vc.legal[pos] || vc.value[pos] != tiertype.Undecided {
					continue
				}
				tp := tiertype.TierPosition{Tier: vc.tier, Position: tiertype.Position(pos)}
				children, err := vc.children0(tp)
				if err != nil {
					return err
				}
				for _, c := range children {
					cv, cr, known := vc.childValue(c)
					if known && cv == tiertype.Tie && cr == i-1 {
						vc.value[pos] = tiertype.Tie
						vc.remote[pos] = i
						changed.Store(true)
						break
					}
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		if !changed.Load() && i > rT+1 {
			return nil
		}
	}
}

func (vc *valueIterCtx) children0(tp tiertype.TierPosition) ([]tiertype.TierPosition, error) {
	w := vc.w
	if cg, ok := w.Game.(gameapi.CanonicalChildGenerator); ok {
		return cg.GetCanonicalChildPositions(tp), nil
	}
	moves := w.Game.GenerateMoves(tp)
	out := make([]tiertype.TierPosition, 0, len(moves))
	cp, hasCanon := w.Game.(gameapi.CanonicalPositioner)
	for _, m := range moves {
		child := w.Game.DoMove(tp, m)
		if hasCanon {
			child.Position = cp.GetCanonicalPosition(child)
		}
		out = append(out, child)
	}
	return out, nil
}

// flush inverts the transient draw marking and writes the final table
// through a SolvingTier handle.
func (vc *valueIterCtx) flush() error {
	w := vc.w
	st, err := w.DB.CreateSolvingTier(vc.tier, vc.size)
	if err != nil {
		return newErr("valueIter.flush", ErrCorruptDatabase, err)
	}
	defer st.Free()

	for pos := int64(0); pos < vc.size; pos++ {
		v := vc.value[pos]
		if !vc.legal[pos] {
			v = tiertype.Undecided // invert transient marking; not written
		} else if v == tiertype.Undecided {
			v = tiertype.Draw
		}
		if v == tiertype.Undecided {
			continue
		}
		if err := st.SetValue(tiertype.Position(pos), v); err != nil {
			return newErr("valueIter.flush.SetValue", ErrCorruptDatabase, err)
		}
		if err := st.SetRemoteness(tiertype.Position(pos), vc.remote[pos]); err != nil {
			return newErr("valueIter.flush.SetRemoteness", ErrCorruptDatabase, err)
		}
	}

	var fl flusher
	fl.start(st)
	if err := fl.wait(); err != nil {
		return newErr("valueIter.flush", ErrCorruptDatabase, err)
	}
	cclog.Debugf("solver: tier %d solved (value-iteration)", vc.tier)
	return nil
}
