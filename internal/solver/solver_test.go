// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package solver

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamescrafters/tiersolver/pkg/dbapi"
	"github.com/gamescrafters/tiersolver/pkg/gameapi"
	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

func TestCountersDecrementIfNonZero(t *testing.T) {
	c := newCounters(1, false)
	c.Set(0, 2)
	assert.False(t, c.DecrementIfNonZero(0))
	assert.True(t, c.DecrementIfNonZero(0))
	assert.False(t, c.DecrementIfNonZero(0))
}

func TestCountersZeroOut(t *testing.T) {
	c := newCounters(1, false)
	c.Set(0, 3)
	assert.True(t, c.ZeroOut(0))
	assert.False(t, c.ZeroOut(0))
}

func TestCountersConcurrentDecrement(t *testing.T) {
	c := newCounters(1, false)
	c.Set(0, 100)
	var wg sync.WaitGroup
	var zeros int32
	var mu sync.Mutex
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.DecrementIfNonZero(0) {
				mu.Lock()
				zeros++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), zeros)
}

// TestCountersLaneIsolation drives the four 8-bit cells that share one
// backing word: mutating any one of them must leave its neighbors
// untouched.
func TestCountersLaneIsolation(t *testing.T) {
	c := newCounters(4, false)
	for pos := int64(0); pos < 4; pos++ {
		c.Set(pos, uint32(pos)+1)
	}

	assert.True(t, c.DecrementIfNonZero(0)) // 1 -> 0
	assert.True(t, c.ZeroOut(2))            // 3 -> 0

	assert.Equal(t, uint32(0), c.Get(0))
	assert.Equal(t, uint32(2), c.Get(1))
	assert.Equal(t, uint32(0), c.Get(2))
	assert.Equal(t, uint32(4), c.Get(3))
}

// TestCountersConcurrentNeighborLanes hammers two cells of the same
// word from separate goroutines; the CAS-on-word protocol must not
// lose updates across lanes.
func TestCountersConcurrentNeighborLanes(t *testing.T) {
	c := newCounters(2, false)
	c.Set(0, 200)
	c.Set(1, 200)
	var wg sync.WaitGroup
	for pos := int64(0); pos < 2; pos++ {
		for i := 0; i < 200; i++ {
			wg.Add(1)
			go func(pos int64) {
				defer wg.Done()
				c.DecrementIfNonZero(pos)
			}(pos)
		}
	}
	wg.Wait()
	assert.Equal(t, uint32(0), c.Get(0))
	assert.Equal(t, uint32(0), c.Get(1))
}

func TestCountersWide(t *testing.T) {
	narrow := newCounters(1, false)
	wide := newCounters(1, true)
	assert.Equal(t, uint32(MaxChildren), narrow.Cap())
	assert.Equal(t, uint32(MaxChildrenWide), wide.Cap())

	wide.Set(0, 300) // over the narrow cap
	assert.Equal(t, uint32(300), wide.Get(0))
	assert.False(t, wide.DecrementIfNonZero(0))
	assert.Equal(t, uint32(299), wide.Get(0))
	assert.True(t, wide.ZeroOut(0))
}

// twoTierGame is the smallest cross-tier game: tier 1's only legal
// position is a primitive win; tier 0's only position moves into it,
// so it must resolve to (lose, 1).
type twoTierGame struct{}

func (twoTierGame) GetInitialTier() tiertype.Tier         { return 0 }
func (twoTierGame) GetInitialPosition() tiertype.Position { return 0 }

func (twoTierGame) GetTierSize(tier tiertype.Tier) int64 { return 1 }

func (twoTierGame) GenerateMoves(tp tiertype.TierPosition) []gameapi.Move {
	if tp.Tier == 0 {
		return []gameapi.Move{0}
	}
	return nil
}

func (twoTierGame) Primitive(tp tiertype.TierPosition) tiertype.Value {
	if tp.Tier == 1 {
		return tiertype.Win
	}
	return tiertype.Undecided
}

func (twoTierGame) DoMove(tp tiertype.TierPosition, m gameapi.Move) tiertype.TierPosition {
	return tiertype.TierPosition{Tier: 1, Position: 0}
}

func (twoTierGame) IsLegalPosition(tp tiertype.TierPosition) bool { return true }

func (twoTierGame) GetChildTiers(tier tiertype.Tier) []tiertype.Tier {
	if tier == 0 {
		return []tiertype.Tier{1}
	}
	return nil
}

// memDB is a minimal in-memory dbapi.DbApi sufficient for tests: it
// holds one fully materialized table per tier, with no persistence.
type memDB struct {
	mu     sync.Mutex
	tables map[tiertype.Tier]*memTable
}

type memTable struct {
	value  []tiertype.Value
	remote []tiertype.Remoteness
	solved bool
}

func newMemDB() *memDB { return &memDB{tables: make(map[tiertype.Tier]*memTable)} }

type memProbe struct{ t *memTable }

func (p *memProbe) Value(tp tiertype.TierPosition) (tiertype.Value, error) {
	return p.t.value[tp.Position], nil
}
func (p *memProbe) Remoteness(tp tiertype.TierPosition) (tiertype.Remoteness, error) {
	return p.t.remote[tp.Position], nil
}
func (p *memProbe) Close() error { return nil }

type memSolving struct {
	mu sync.Mutex
	t  *memTable
}

func (s *memSolving) SetValue(pos tiertype.Position, v tiertype.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t.value[pos] = v
	return nil
}
func (s *memSolving) SetRemoteness(pos tiertype.Position, r tiertype.Remoteness) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t.remote[pos] = r
	return nil
}
func (s *memSolving) Flush() error {
	s.t.solved = true
	return nil
}
func (s *memSolving) Free() error { return nil }

type memLoaded struct{ t *memTable }

func (l *memLoaded) Value(pos tiertype.Position) tiertype.Value           { return l.t.value[pos] }
func (l *memLoaded) Remoteness(pos tiertype.Position) tiertype.Remoteness { return l.t.remote[pos] }
func (l *memLoaded) Size() int64                                         { return int64(len(l.t.value)) }
func (l *memLoaded) Unload() error                                       { return nil }

func (db *memDB) ProbeInit(tier tiertype.Tier) (dbapi.Probe, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.tables[tier]
	if !ok {
		return nil, assertErr{"tier not solved"}
	}
	return &memProbe{t}, nil
}

func (db *memDB) CreateSolvingTier(tier tiertype.Tier, size int64) (dbapi.SolvingTier, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t := &memTable{value: make([]tiertype.Value, size), remote: make([]tiertype.Remoteness, size)}
	db.tables[tier] = t
	return &memSolving{t: t}, nil
}

func (db *memDB) LoadTier(tier tiertype.Tier) (dbapi.LoadedTier, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.tables[tier]
	if !ok {
		return nil, assertErr{"tier not solved"}
	}
	return &memLoaded{t}, nil
}

func (db *memDB) TierStatus(tier tiertype.Tier) (dbapi.Status, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.tables[tier]
	if !ok || !t.solved {
		return dbapi.Missing, nil
	}
	return dbapi.Solved, nil
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }

func TestSolveTierTwoTierLose(t *testing.T) {
	db := newMemDB()
	w := NewWorker(twoTierGame{}, db, Config{})

	require.NoError(t, w.SolveTier(context.Background(), 1, false, false))
	require.NoError(t, w.SolveTier(context.Background(), 0, false, false))

	p := &memProbe{db.tables[0]}
	v, err := p.Value(tiertype.TierPosition{Tier: 0, Position: 0})
	require.NoError(t, err)
	r, err := p.Remoteness(tiertype.TierPosition{Tier: 0, Position: 0})
	require.NoError(t, err)

	assert.Equal(t, tiertype.Lose, v)
	assert.Equal(t, tiertype.Remoteness(1), r)
}

func TestSolveTierIdempotent(t *testing.T) {
	db := newMemDB()
	w := NewWorker(twoTierGame{}, db, Config{})

	require.NoError(t, w.SolveTier(context.Background(), 1, false, false))
	require.NoError(t, w.SolveTier(context.Background(), 0, false, false))

	// Corrupt the table directly; a non-forced re-solve must not touch it.
	db.tables[0].value[0] = tiertype.Tie
	require.NoError(t, w.SolveTier(context.Background(), 0, false, false))
	assert.Equal(t, tiertype.Tie, db.tables[0].value[0])
}

// symmTierGame has a non-canonical child tier: tier 2 is the mirror
// image of tier 1 (canonical), with positions swapped by the symmetry
// (p in tier 1 corresponds to 1-p in tier 2). Only tier 1 is ever
// solved; tier 0's single position moves into (2, 1), whose canonical
// image (1, 0) is a primitive lose. Loading tier 0's children must
// probe tier 1 and translate each decided position back into tier 2.
type symmTierGame struct{}

func (symmTierGame) GetInitialTier() tiertype.Tier         { return 0 }
func (symmTierGame) GetInitialPosition() tiertype.Position { return 0 }

func (symmTierGame) GetTierSize(tier tiertype.Tier) int64 {
	switch tier {
	case 0:
		return 1
	case 1, 2:
		return 2
	}
	return -1
}

func (symmTierGame) GenerateMoves(tp tiertype.TierPosition) []gameapi.Move {
	if tp.Tier == 0 {
		return []gameapi.Move{0}
	}
	return nil
}

func (g symmTierGame) Primitive(tp tiertype.TierPosition) tiertype.Value {
	switch tp.Tier {
	case 1:
		if tp.Position == 0 {
			return tiertype.Lose
		}
		return tiertype.Win
	case 2:
		return g.Primitive(tiertype.TierPosition{Tier: 1, Position: 1 - tp.Position})
	}
	return tiertype.Undecided
}

func (symmTierGame) DoMove(tp tiertype.TierPosition, m gameapi.Move) tiertype.TierPosition {
	return tiertype.TierPosition{Tier: 2, Position: 1}
}

func (symmTierGame) IsLegalPosition(tp tiertype.TierPosition) bool { return true }

func (symmTierGame) GetChildTiers(tier tiertype.Tier) []tiertype.Tier {
	if tier == 0 {
		return []tiertype.Tier{2}
	}
	return nil
}

func (symmTierGame) GetCanonicalTier(tier tiertype.Tier) tiertype.Tier {
	if tier == 2 {
		return 1
	}
	return tier
}

func (symmTierGame) GetPositionInSymmetricTier(tp tiertype.TierPosition, symmTier tiertype.Tier) tiertype.Position {
	if tp.Tier == symmTier {
		return tp.Position
	}
	return 1 - tp.Position
}

func TestSolveTierNonCanonicalChildTier(t *testing.T) {
	db := newMemDB()
	w := NewWorker(symmTierGame{}, db, Config{})

	require.NoError(t, w.SolveTier(context.Background(), 1, false, false))
	require.NoError(t, w.SolveTier(context.Background(), 0, false, false))

	// (0, 0) moves into (2, 1), a lose once translated through the
	// symmetry into tier 1. A winning child must be found, not a draw.
	assert.Equal(t, tiertype.Win, db.tables[0].value[0])
	assert.Equal(t, tiertype.Remoteness(1), db.tables[0].remote[0])
}

// memComparer adds the reference-database half of dbapi.Comparer on
// top of memDB, backed by a second, independently-solved memDB.
type memComparer struct {
	*memDB
	ref *memDB
}

func (c *memComparer) ReferenceProbeInit(tier tiertype.Tier) (dbapi.Probe, error) {
	return c.ref.ProbeInit(tier)
}

func TestSolveTierCompareMode(t *testing.T) {
	ref := newMemDB()
	wref := NewWorker(twoTierGame{}, ref, Config{})
	require.NoError(t, wref.SolveTier(context.Background(), 1, false, false))
	require.NoError(t, wref.SolveTier(context.Background(), 0, false, false))

	db := &memComparer{memDB: newMemDB(), ref: ref}
	w := NewWorker(twoTierGame{}, db, Config{})

	// Matching reference: both solves succeed. twoTierGame supplies no
	// GetCanonicalParentPositions, so compare mode runs the
	// deterministic two-pass reverse graph underneath.
	require.NoError(t, w.SolveTier(context.Background(), 1, false, true))
	require.NoError(t, w.SolveTier(context.Background(), 0, false, true))

	// Diverging reference: the forced re-solve must report the mismatch.
	ref.tables[0].value[0] = tiertype.Tie
	err := w.SolveTier(context.Background(), 0, true, true)
	require.Error(t, err)
	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, ErrCompareMismatch, serr.Kind)
}
