// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tester

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamescrafters/tiersolver/pkg/gameapi"
	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

func TestMT19937_64Deterministic(t *testing.T) {
	a := newMT19937_64(42)
	b := newMT19937_64(42)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.next(), b.next())
	}
}

func TestMT19937_64DifferentSeeds(t *testing.T) {
	a := newMT19937_64(1)
	b := newMT19937_64(2)
	assert.NotEqual(t, a.next(), b.next())
}

func TestSampleBounded(t *testing.T) {
	rng := newMT19937_64(7)
	out := sample(rng, 10)
	assert.Len(t, out, 10)

	rng2 := newMT19937_64(7)
	big := sample(rng2, 5000)
	assert.Len(t, big, MaxSamples)
	seen := make(map[int64]bool)
	for _, p := range big {
		assert.False(t, seen[p], "sample returned a duplicate position")
		seen[p] = true
	}
}

// loopGame is a tiny single-tier game with a self-symmetric move graph,
// used to exercise every tester check against a consistent game API.
type loopGame struct{}

func (loopGame) GetInitialTier() tiertype.Tier         { return 0 }
func (loopGame) GetInitialPosition() tiertype.Position { return 0 }
func (loopGame) GetTierSize(tiertype.Tier) int64       { return 4 }

func (loopGame) GenerateMoves(tp tiertype.TierPosition) []gameapi.Move {
	if tp.Position == 3 {
		return nil
	}
	return []gameapi.Move{0}
}

func (loopGame) Primitive(tp tiertype.TierPosition) tiertype.Value {
	if tp.Position == 3 {
		return tiertype.Win
	}
	return tiertype.Undecided
}

func (loopGame) DoMove(tp tiertype.TierPosition, m gameapi.Move) tiertype.TierPosition {
	return tiertype.TierPosition{Tier: 0, Position: tp.Position + 1}
}

func (loopGame) IsLegalPosition(tp tiertype.TierPosition) bool {
	return tp.Position >= 0 && tp.Position < 4
}

func (loopGame) GetChildTiers(tiertype.Tier) []tiertype.Tier { return nil }

func (g loopGame) GetCanonicalParentPositions(child tiertype.TierPosition, parentTier tiertype.Tier) []tiertype.Position {
	if child.Position == 0 {
		return nil
	}
	return []tiertype.Position{child.Position - 1}
}

func TestTestTierPasses(t *testing.T) {
	err := TestTier(loopGame{}, 0, 1234, []tiertype.Tier{0})
	assert.NoError(t, err)
}

// brokenParentGame reports a parent relation inconsistent with its own
// child relation, which TestTier must catch.
type brokenParentGame struct{ loopGame }

func (brokenParentGame) GetCanonicalParentPositions(child tiertype.TierPosition, parentTier tiertype.Tier) []tiertype.Position {
	return nil // never reciprocates
}

func TestTestTierCatchesBrokenReciprocity(t *testing.T) {
	err := TestTier(brokenParentGame{}, 0, 1234, []tiertype.Tier{0})
	require.Error(t, err)
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, FailChildParentReciprocity, f.Kind)
}

// mirrorGame pairs positions (2k, 2k+1) into symmetry classes with
// canonical representative 2k: a chain 0 -> 2 -> 4 where canonical 4
// is a primitive win. Its parent relation is only defined for
// canonical children — fed a non-canonical child it echoes garbage
// back, the way a real game behaves outside its documented domain —
// so the reciprocity checks only pass if TestTier canonicalizes the
// sampled position before querying parents.
type mirrorGame struct{}

func (mirrorGame) GetInitialTier() tiertype.Tier         { return 0 }
func (mirrorGame) GetInitialPosition() tiertype.Position { return 0 }
func (mirrorGame) GetTierSize(tiertype.Tier) int64       { return 6 }

func (g mirrorGame) GenerateMoves(tp tiertype.TierPosition) []gameapi.Move {
	if g.Primitive(tp) != tiertype.Undecided {
		return nil
	}
	return []gameapi.Move{0}
}

func (mirrorGame) Primitive(tp tiertype.TierPosition) tiertype.Value {
	if tp.Position&^1 == 4 {
		return tiertype.Win
	}
	return tiertype.Undecided
}

func (mirrorGame) DoMove(tp tiertype.TierPosition, m gameapi.Move) tiertype.TierPosition {
	return tiertype.TierPosition{Tier: 0, Position: tp.Position + 2}
}

func (mirrorGame) IsLegalPosition(tp tiertype.TierPosition) bool {
	return tp.Position >= 0 && tp.Position < 6
}

func (mirrorGame) GetChildTiers(tiertype.Tier) []tiertype.Tier { return nil }

func (mirrorGame) GetCanonicalPosition(tp tiertype.TierPosition) tiertype.Position {
	return tp.Position &^ 1
}

func (mirrorGame) GetCanonicalParentPositions(child tiertype.TierPosition, parentTier tiertype.Tier) []tiertype.Position {
	if child.Position&1 != 0 {
		return []tiertype.Position{child.Position}
	}
	switch child.Position {
	case 2:
		return []tiertype.Position{0}
	case 4:
		return []tiertype.Position{2}
	}
	return nil
}

func TestTestTierCanonicalizesParentLookup(t *testing.T) {
	err := TestTier(mirrorGame{}, 0, 99, []tiertype.Tier{0})
	assert.NoError(t, err)
}
