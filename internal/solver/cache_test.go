// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamescrafters/tiersolver/internal/loadedcache"
	"github.com/gamescrafters/tiersolver/pkg/dbapi"
	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

// loopFreeGame is twoTierGame's scenario with GetTierType reporting
// ImmediateTransition, so SolveTier dispatches to solveValueIteration.
type loopFreeGame struct{ twoTierGame }

func (loopFreeGame) GetTierType(tiertype.Tier) tiertype.TierType {
	return tiertype.ImmediateTransition
}

// countingDB wraps memDB to count LoadTier calls per tier, so tests can
// assert the cache suppresses repeat loads.
type countingDB struct {
	*memDB
	loads map[tiertype.Tier]int
}

func newCountingDB() *countingDB {
	return &countingDB{memDB: newMemDB(), loads: make(map[tiertype.Tier]int)}
}

func (db *countingDB) LoadTier(tier tiertype.Tier) (dbapi.LoadedTier, error) {
	db.loads[tier]++
	return db.memDB.LoadTier(tier)
}

func TestSolveValueIterationWithCache(t *testing.T) {
	db := newCountingDB()
	cache := loadedcache.New(1 << 20)
	w := NewWorker(loopFreeGame{}, db, Config{})
	w.Cache = cache

	require.NoError(t, w.SolveTier(context.Background(), 1, false, false))
	require.NoError(t, w.SolveTier(context.Background(), 0, false, false))
	assert.Equal(t, 1, db.loads[tiertype.Tier(1)])

	// Resolve tier 0 again, forced, so it reloads child tier 1 from the
	// cache rather than db.LoadTier.
	require.NoError(t, w.SolveTier(context.Background(), 0, true, false))
	assert.Equal(t, 1, db.loads[tiertype.Tier(1)])
}
