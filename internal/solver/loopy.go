// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package solver

import (
	"context"
	"sync"

	"github.com/gamescrafters/tiersolver/internal/frontier"
	"github.com/gamescrafters/tiersolver/internal/reversegraph"
	"github.com/gamescrafters/tiersolver/pkg/dbapi"
	"github.com/gamescrafters/tiersolver/pkg/gameapi"
	cclog "github.com/gamescrafters/tiersolver/pkg/log"
	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

// parentFunc is the shape shared by gameapi.CanonicalParentGenerator's
// method and the reverse-graph-backed fallback, letting the
// propagation phase call either uniformly.
type parentFunc func(child tiertype.TierPosition, parentTier tiertype.Tier) []tiertype.Position

// parentStore is what solveLoopy needs from a reverse graph; both
// reversegraph.Graph and reversegraph.Deterministic satisfy it.
type parentStore interface {
	Add(child tiertype.TierPosition, parent tiertype.Position)
	PopParentsOf(child tiertype.TierPosition) []tiertype.Position
	Destroy()
}

// loopyCtx carries everything the retrograde phases share for one
// tier solve. All of it is created in solveLoopy and destroyed on
// return; nothing lives at package scope.
type loopyCtx struct {
	w    *Worker
	tier tiertype.Tier

	childTiers []tiertype.Tier // excludes tier; tier is appended separately
	allTiers   []tiertype.Tier // childTiers + [tier], index = child_tier_index
	selfIndex  int

	win  *frontier.Set
	lose *frontier.Set
	tie  *frontier.Set

	// rg is nil when the game supplies GetCanonicalParentPositions.
	// det is additionally non-nil when rg is the deterministic two-pass
	// variant, selected in compare mode so bag ordering is identical
	// across runs.
	rg         parentStore
	det        *reversegraph.Deterministic
	getParents parentFunc

	counters counters
	solving  dbapi.SolvingTier
}

// solveLoopy runs the retrograde phases in order: initialize, load
// child-tier records into the frontiers, create the output table,
// scan the tier, push the frontier up, mark draws, flush.
func (w *Worker) solveLoopy(ctx context.Context, tier tiertype.Tier, compare bool) error {
	lc, err := w.initLoopy(tier, compare)
	if err != nil {
		return err
	}
	defer lc.cleanup()

	if err := lc.loadChildren(ctx); err != nil {
		return err
	}
	if err := lc.createOutputTable(); err != nil {
		return err
	}
	if err := lc.scanTier(ctx); err != nil {
		return err
	}
	if err := lc.pushFrontierUp(ctx); err != nil {
		return err
	}
	if err := lc.markDraws(ctx); err != nil {
		return err
	}
	var fl flusher
	fl.start(lc.solving)
	if err := fl.wait(); err != nil {
		return newErr("solveLoopy.flush", ErrCorruptDatabase, err)
	}
	cclog.Debugf("solver: tier %d solved (loopy)", tier)
	return nil
}

// Phase 0 — Initialize.
func (w *Worker) initLoopy(tier tiertype.Tier, compare bool) (*loopyCtx, error) {
	childTiers := w.Game.GetChildTiers(tier)
	allTiers := make([]tiertype.Tier, 0, len(childTiers)+1)
	allTiers = append(allTiers, childTiers...)
	allTiers = append(allTiers, tier)
	selfIndex := len(allTiers) - 1

	numDividers := len(allTiers)
	numThreads := w.Config.workers()
	rMax := w.Config.rMax()

	lc := &loopyCtx{
		w:          w,
		tier:       tier,
		childTiers: childTiers,
		allTiers:   allTiers,
		selfIndex:  selfIndex,
		win:        frontier.NewSet(numThreads, rMax, numDividers),
		lose:       frontier.NewSet(numThreads, rMax, numDividers),
		tie:        frontier.NewSet(numThreads, rMax, numDividers),
	}

	if pg, ok := w.Game.(gameapi.CanonicalParentGenerator); ok {
		lc.getParents = pg.GetCanonicalParentPositions
	} else {
		if compare {
			lc.det = reversegraph.NewDeterministic()
			lc.rg = lc.det
		} else {
			sizeFn := func(t tiertype.Tier) int64 { return w.Game.GetTierSize(t) }
			lc.rg = reversegraph.Init(childTiers, tier, sizeFn)
		}
		store := lc.rg
		lc.getParents = func(child tiertype.TierPosition, _ tiertype.Tier) []tiertype.Position {
			return store.PopParentsOf(child)
		}
	}
	return lc, nil
}

func (lc *loopyCtx) cleanup() {
	lc.win.Destroy()
	lc.lose.Destroy()
	lc.tie.Destroy()
	if lc.rg != nil {
		lc.rg.Destroy()
	}
	if lc.solving != nil {
		lc.solving.Free()
	}
	lc.counters = nil
}

// Phase 1 — Load children. Child tiers are walked sequentially, and
// each record is tagged with its child tier's index as it is added to
// the frontier; position scan within one child tier is parallel.
//
// Only canonical tiers are ever solved and flushed, so a
// non-canonical child tier has no table of its own: its records are
// read by probing its canonical tier and translating each decided
// position back through the tier symmetry. Tying and drawing
// positions are skipped in that case — they are already captured when
// the canonical tier itself appears as a child.
func (lc *loopyCtx) loadChildren(ctx context.Context) error {
	w := lc.w
	symm, hasSymm := w.Game.(gameapi.TierSymmetricPositioner)
	for idx, child := range lc.childTiers {
		probeTier := child
		canonicalChild := true
		if hasSymm && !gameapi.IsCanonicalTier(w.Game, child) {
			probeTier = gameapi.CanonicalTierOf(w.Game, child)
			canonicalChild = false
		}
		size := w.Game.GetTierSize(probeTier)
		if size < 0 {
			return newErr("loadChildren", ErrGameApi, nil)
		}

		probes := make([]dbapi.Probe, w.Config.workers())
		for i := range probes {
			p, err := w.DB.ProbeInit(probeTier)
			if err != nil {
				return newErr("loadChildren.ProbeInit", ErrCorruptDatabase, err)
			}
			probes[i] = p
		}
		defer func() {
			for _, p := range probes {
				if p != nil {
					p.Close()
				}
			}
		}()

		err := parallelFor(ctx, size, w.Config.dbChunk(), w.Config.workers(), func(workerID int, lo, hi int64) error {
			probe := probes[workerID]
			for pos := lo; pos < hi; pos++ {
				tp := tiertype.TierPosition{Tier: probeTier, Position: tiertype.Position(pos)}
				v, err := probe.Value(tp)
				if err != nil {
					return newErr("loadChildren.Value", ErrCorruptDatabase, err)
				}
				// Undecided marks positions the child solve never wrote
				// (illegal or non-canonical); drawing positions never
				// enter a frontier. Neither contributes to parents here.
				if v == tiertype.Undecided || v == tiertype.Draw {
					continue
				}
				r, err := probe.Remoteness(tp)
				if err != nil {
					return newErr("loadChildren.Remoteness", ErrCorruptDatabase, err)
				}
				if r < 0 {
					return newErr("loadChildren.Remoteness", ErrGameApi, nil)
				}

				if canonicalChild {
					if err := lc.pushLoaded(workerID, v, tp.Position, r, idx); err != nil {
						return err
					}
					continue
				}
				// Non-canonical: only win/lose positions are translated
				// back and pushed; tie/draw are already covered via the
				// canonical tier.
				if v != tiertype.Win && v != tiertype.Lose {
					continue
				}
				translated := symm.GetPositionInSymmetricTier(tp, child)
				if err := lc.pushLoaded(workerID, v, translated, r, idx); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// pushLoaded routes a decided record into the win/lose/tie frontier
// set, on the Frontier owned by workerID. workerID must identify the
// calling goroutine, not be derived from pos or any other record
// property: two goroutines running concurrently must never be handed
// the same workerID, or they corrupt one another's bucket — a
// Frontier permits Add from exactly one goroutine at a time.
func (lc *loopyCtx) pushLoaded(workerID int, v tiertype.Value, pos tiertype.Position, r tiertype.Remoteness, childIdx int) error {
	var set *frontier.Set
	switch v {
	case tiertype.Win:
		set = lc.win
	case tiertype.Lose:
		set = lc.lose
	case tiertype.Tie:
		set = lc.tie
	default:
		return nil
	}
	if err := set.Thread(workerID).Add(pos, r, childIdx); err != nil {
		return newErr("pushLoaded", ErrOutOfMemory, err)
	}
	lc.w.Metrics.observeFrontierPushed(1)
	return nil
}

// Phase 2 — Create output table.
func (lc *loopyCtx) createOutputTable() error {
	size := lc.w.Game.GetTierSize(lc.tier)
	if size < 0 {
		return newErr("createOutputTable", ErrGameApi, nil)
	}
	st, err := lc.w.DB.CreateSolvingTier(lc.tier, size)
	if err != nil {
		return newErr("createOutputTable", ErrCorruptDatabase, err)
	}
	lc.solving = st
	lc.counters = newCounters(size, lc.w.Config.WideCounters)
	return nil
}

// Phase 3 — Scan tier.
func (lc *loopyCtx) scanTier(ctx context.Context) error {
	w := lc.w
	size := w.Game.GetTierSize(lc.tier)

	err := parallelFor(ctx, size, w.Config.scanChunk(), w.Config.workers(), func(workerID int, lo, hi int64) error {
		for pos := lo; pos < hi; pos++ {
			tp := tiertype.TierPosition{Tier: lc.tier, Position: tiertype.Position(pos)}

			if lc.skipInScan(tp) {
				lc.counters.Set(pos, 0)
				continue
			}

			if v := w.Game.Primitive(tp); v != tiertype.Undecided {
				if err := lc.solving.SetValue(tp.Position, v); err != nil {
					return newErr("scanTier.SetValue", ErrCorruptDatabase, err)
				}
				if err := lc.solving.SetRemoteness(tp.Position, 0); err != nil {
					return newErr("scanTier.SetRemoteness", ErrCorruptDatabase, err)
				}
				lc.counters.Set(pos, 0)
				if err := lc.pushLoaded(workerID, v, tp.Position, 0, lc.selfIndex); err != nil {
					return err
				}
				continue
			}

			n, children, err := lc.canonicalChildCount(tp)
			if err != nil {
				return err
			}
			// A legal, canonical, non-primitive position with no
			// children is a game-API contradiction, not an overflow.
			if n <= 0 {
				return newErr("scanTier.childCount", ErrGameApi, nil)
			}
			if uint32(n) > lc.counters.Cap() {
				return newErr("scanTier.childCount", ErrCounterOverflow, nil)
			}
			lc.counters.Set(pos, uint32(n))

			if lc.rg != nil {
				for _, c := range children {
					if lc.det != nil {
						lc.det.CountParent(c)
					} else {
						lc.rg.Add(c, tp.Position)
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if lc.det != nil {
		if err := lc.fillDeterministic(ctx); err != nil {
			return err
		}
	}

	lc.w.Metrics.observeScanned(size)
	return nil
}

// skipInScan reports whether the scan ignores tp: illegal positions
// and non-canonical representatives get no value of their own.
func (lc *loopyCtx) skipInScan(tp tiertype.TierPosition) bool {
	if !lc.w.Game.IsLegalPosition(tp) {
		return true
	}
	if cp, ok := lc.w.Game.(gameapi.CanonicalPositioner); ok {
		if cp.GetCanonicalPosition(tp) != tp.Position {
			return true
		}
	}
	return false
}

// fillDeterministic is the second pass of the two-pass reverse-graph
// construction: the parallel scan above only counted parents, so the
// bags can now be preallocated at exact size and filled in ascending
// position order, single-threaded, making bag ordering identical
// across runs.
func (lc *loopyCtx) fillDeterministic(ctx context.Context) error {
	lc.det.BeginFill()
	size := lc.w.Game.GetTierSize(lc.tier)
	for pos := int64(0); pos < size; pos++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		tp := tiertype.TierPosition{Tier: lc.tier, Position: tiertype.Position(pos)}
		if lc.skipInScan(tp) || lc.w.Game.Primitive(tp) != tiertype.Undecided {
			continue
		}
		children, err := lc.canonicalChildren(tp)
		if err != nil {
			return err
		}
		for _, c := range children {
			lc.det.Add(c, tp.Position)
		}
	}
	return nil
}

// canonicalChildCount returns the canonical-child count of tp and, if
// the reverse graph is in use, the actual child positions (needed to
// register tp as their parent).
func (lc *loopyCtx) canonicalChildCount(tp tiertype.TierPosition) (int, []tiertype.TierPosition, error) {
	w := lc.w

	if lc.rg == nil {
		if cc, ok := w.Game.(gameapi.ChildCounter); ok {
			return cc.GetNumberOfCanonicalChildPositions(tp), nil, nil
		}
	}

	children, err := lc.canonicalChildren(tp)
	if err != nil {
		return 0, nil, err
	}
	return len(children), children, nil
}

func (lc *loopyCtx) canonicalChildren(tp tiertype.TierPosition) ([]tiertype.TierPosition, error) {
	w := lc.w
	if cg, ok := w.Game.(gameapi.CanonicalChildGenerator); ok {
		return cg.GetCanonicalChildPositions(tp), nil
	}

	moves := w.Game.GenerateMoves(tp)
	out := make([]tiertype.TierPosition, 0, len(moves))
	seen := make(map[tiertype.TierPosition]struct{}, len(moves))
	cp, hasCanon := w.Game.(gameapi.CanonicalPositioner)
	for _, m := range moves {
		child := w.Game.DoMove(tp, m)
		if hasCanon {
			child.Position = cp.GetCanonicalPosition(child)
		}
		if _, dup := seen[child]; dup {
			continue
		}
		seen[child] = struct{}{}
		out = append(out, child)
	}
	return out, nil
}

// Phase 4 — Push frontier up.
func (lc *loopyCtx) pushFrontierUp(ctx context.Context) error {
	rMax := lc.w.Config.rMax()

	for r := tiertype.Remoteness(0); r <= rMax; r++ {
		if err := lc.propagate(ctx, lc.lose, r, tiertype.Win); err != nil {
			return err
		}
		if err := lc.propagate(ctx, lc.win, r, tiertype.Lose); err != nil {
			return err
		}
		lc.lose.FreeRemoteness(r)
		lc.win.FreeRemoteness(r)
	}
	for r := tiertype.Remoteness(0); r <= rMax; r++ {
		if err := lc.propagate(ctx, lc.tie, r, tiertype.Tie); err != nil {
			return err
		}
		lc.tie.FreeRemoteness(r)
	}
	return nil
}

// propagate walks every record at remoteness r across all per-thread
// buckets of src, resolves each record's originating tier from its
// child-index tag, fetches the record's parents within the solving
// tier, and applies the marking rule named by outcome to each parent.
//
// Each goroutine below owns source thread th for its whole lifetime
// and reuses the same th to address the destination frontier (win,
// lose, or tie, all sized with the same NumThreads as src): that keeps
// the per-thread ownership markParent's pushLoaded call relies on
// genuine, instead of re-deriving a thread id from the parent position
// p, which two concurrently-running goroutines could collide on.
func (lc *loopyCtx) propagate(ctx context.Context, src *frontier.Set, r tiertype.Remoteness, outcome tiertype.Value) error {
	w := lc.w
	chunk := w.Config.propagateChunk()

	var wg sync.WaitGroup
	errs := make(chan error, src.NumThreads())

	for th := 0; th < src.NumThreads(); th++ {
		f := src.Thread(th)
		n := int64(f.Len(r))
		if n == 0 {
			continue
		}
		wg.Add(1)
		go func(workerID int, f *frontier.Frontier, n int64) {
			defer wg.Done()
			for lo := int64(0); lo < n; lo += chunk {
				hi := lo + chunk
				if hi > n {
					hi = n
				}
				for i := lo; i < hi; i++ {
					pos := f.GetPosition(r, i)
					childIdx := f.ChildIndexAt(r, i)
					childTier := lc.allTiers[childIdx]
					child := tiertype.TierPosition{Tier: childTier, Position: pos}

					parents := lc.getParents(child, lc.tier)
					for _, p := range parents {
						if err := lc.markParent(workerID, p, r, outcome); err != nil {
							errs <- err
							return
						}
					}
				}
			}
		}(th, f, n)
	}
	wg.Wait()
	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

// markParent decides parent p from one decided child at remoteness r:
// a lose child makes p a win, a tie child makes p a tie, and a win
// child makes p a lose only once it is p's last undecided child.
// workerID identifies the calling propagate goroutine and is forwarded
// to pushLoaded unchanged.
func (lc *loopyCtx) markParent(workerID int, p tiertype.Position, r tiertype.Remoteness, outcome tiertype.Value) error {
	switch outcome {
	case tiertype.Win, tiertype.Tie:
		// Lose-child => parent is a win; tie-child => parent is a tie.
		// Both exchange-to-zero. For the tie path this is safe because
		// a still-undecided parent of a tie child can never become a
		// lose: a lose needs every child to be a win, and this child
		// is not.
		if !lc.counters.ZeroOut(int64(p)) {
			return nil
		}
		value := tiertype.Win
		if outcome == tiertype.Tie {
			value = tiertype.Tie
		}
		if err := lc.solving.SetValue(p, value); err != nil {
			return newErr("markParent.SetValue", ErrCorruptDatabase, err)
		}
		if err := lc.solving.SetRemoteness(p, r+1); err != nil {
			return newErr("markParent.SetRemoteness", ErrCorruptDatabase, err)
		}
		return lc.pushLoaded(workerID, value, p, r+1, lc.selfIndex)

	case tiertype.Lose:
		if !lc.counters.DecrementIfNonZero(int64(p)) {
			return nil
		}
		if err := lc.solving.SetValue(p, tiertype.Lose); err != nil {
			return newErr("markParent.SetValue", ErrCorruptDatabase, err)
		}
		if err := lc.solving.SetRemoteness(p, r+1); err != nil {
			return newErr("markParent.SetRemoteness", ErrCorruptDatabase, err)
		}
		return lc.pushLoaded(workerID, tiertype.Lose, p, r+1, lc.selfIndex)
	}
	return nil
}

// Phase 5 — Mark draws.
func (lc *loopyCtx) markDraws(ctx context.Context) error {
	w := lc.w
	size := w.Game.GetTierSize(lc.tier)

	return parallelFor(ctx, size, w.Config.scanChunk(), w.Config.workers(), func(_ int, lo, hi int64) error {
		for pos := lo; pos < hi; pos++ {
			if lc.counters.Get(pos) > 0 {
				if err := lc.solving.SetValue(tiertype.Position(pos), tiertype.Draw); err != nil {
					return newErr("markDraws.SetValue", ErrCorruptDatabase, err)
				}
			}
		}
		return nil
	})
}
