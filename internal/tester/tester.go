// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tester is a black-box verifier of a game's GameApi, run
// against a sample of positions rather than the whole tier, checking
// invariants the solver itself depends on (symmetry self-consistency,
// child/parent reciprocity, legality).
package tester

import (
	"github.com/google/uuid"

	"github.com/gamescrafters/tiersolver/pkg/gameapi"
	cclog "github.com/gamescrafters/tiersolver/pkg/log"
	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

// MaxSamples caps how many positions TestTier draws from a tier;
// tiers at or under this size are checked exhaustively instead.
const MaxSamples = 1000

// FailureKind enumerates TestTier's checks, in the order they are
// attempted; TestTier returns the first one that fails.
type FailureKind int8

const (
	NoFailure FailureKind = iota
	FailSelfMapping
	FailInvolution
	FailChildLegality
	FailChildParentReciprocity
	FailParentChildReciprocity
)

func (k FailureKind) String() string {
	switch k {
	case FailSelfMapping:
		return "tier-symmetry self-mapping"
	case FailInvolution:
		return "tier-symmetry involution"
	case FailChildLegality:
		return "child legality"
	case FailChildParentReciprocity:
		return "child-to-parent reciprocity"
	case FailParentChildReciprocity:
		return "parent-to-child reciprocity"
	default:
		return "none"
	}
}

// Failure reports the first inconsistency TestTier found.
type Failure struct {
	Kind     FailureKind
	Position tiertype.TierPosition
	Detail   string
}

func (f *Failure) Error() string {
	return "tester: " + f.Kind.String() + " failed at " + f.Position.String() + ": " + f.Detail
}

// TestTier samples up to MaxSamples positions of tier (or every legal
// position, if size(tier) <= MaxSamples) using a PRNG stream local to
// this call, and checks each one for symmetry self-mapping, symmetry
// involution, child legality, and reciprocity of the child and parent
// relations. parentTiers lists tier's parent tiers as known to the
// manager, used by the parent->child reciprocity check.
//
// Returns nil if every sampled position passes every applicable check.
func TestTier(game gameapi.GameApi, tier tiertype.Tier, seed uint64, parentTiers []tiertype.Tier) error {
	size := game.GetTierSize(tier)
	if size <= 0 {
		return nil
	}

	runID := uuid.New().String()
	rng := newMT19937_64(seed)
	samples := sample(rng, size)
	cclog.Debugf("tester: run %s sampling %d of %d positions in tier %d (seed=%d)", runID, len(samples), size, tier, seed)

	for _, pos := range samples {
		tp := tiertype.TierPosition{Tier: tier, Position: tiertype.Position(pos)}
		if !game.IsLegalPosition(tp) {
			continue
		}
		if game.Primitive(tp) != tiertype.Undecided {
			continue
		}
		if err := checkOne(game, tp, parentTiers); err != nil {
			return err
		}
	}
	return nil
}

// sample draws up to MaxSamples distinct positions in [0, size),
// deterministically from rng, or every position when size is small
// enough that sampling would just be a shuffle of everything.
func sample(rng *mt19937_64, size int64) []int64 {
	if size <= MaxSamples {
		out := make([]int64, size)
		for i := range out {
			out[i] = int64(i)
		}
		return out
	}
	seen := make(map[int64]struct{}, MaxSamples)
	out := make([]int64, 0, MaxSamples)
	for len(out) < MaxSamples {
		p := rng.intn(size)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func checkOne(game gameapi.GameApi, tp tiertype.TierPosition, parentTiers []tiertype.Tier) error {
	if err := checkTierSymmetry(game, tp); err != nil {
		return err
	}
	children, err := checkChildLegality(game, tp)
	if err != nil {
		return err
	}
	if err := checkChildParentReciprocity(game, tp, children); err != nil {
		return err
	}
	if err := checkParentChildReciprocity(game, tp, parentTiers); err != nil {
		return err
	}
	return nil
}

// checkTierSymmetry verifies the symmetry self-mapping and its
// involution (mapping into the symmetric tier and back returns the
// original position), applied both to tp itself and to its
// canonical-tier image. When tp's tier is its own canonical tier the
// round trip stays within that tier.
func checkTierSymmetry(game gameapi.GameApi, tp tiertype.TierPosition) error {
	symm, ok := game.(gameapi.TierSymmetricPositioner)
	if !ok {
		return nil
	}

	targets := []tiertype.TierPosition{tp}
	other := tp.Tier
	if tc, ok := game.(gameapi.TierCanonicalizer); ok {
		canonTier := tc.GetCanonicalTier(tp.Tier)
		if canonTier != tp.Tier {
			canonPos := symm.GetPositionInSymmetricTier(tp, canonTier)
			targets = append(targets, tiertype.TierPosition{Tier: canonTier, Position: canonPos})
			other = canonTier
		}
	}

	for _, t := range targets {
		mapped := symm.GetPositionInSymmetricTier(t, t.Tier)
		if mapped != t.Position {
			return &Failure{Kind: FailSelfMapping, Position: t,
				Detail: "GetPositionInSymmetricTier(p, tier(p)) != p"}
		}

		there := other
		if t.Tier == other {
			there = tp.Tier
		}
		across := symm.GetPositionInSymmetricTier(t, there)
		back := symm.GetPositionInSymmetricTier(
			tiertype.TierPosition{Tier: there, Position: across}, t.Tier)
		if back != t.Position {
			return &Failure{Kind: FailInvolution, Position: t,
				Detail: "applying the symmetry twice did not return the original position"}
		}
	}
	return nil
}

// checkChildLegality verifies every child is in range and legal,
// returning the children so later checks can reuse them.
func checkChildLegality(game gameapi.GameApi, tp tiertype.TierPosition) ([]tiertype.TierPosition, error) {
	children := canonicalChildren(game, tp)
	for _, c := range children {
		size := game.GetTierSize(c.Tier)
		if int64(c.Position) < 0 || int64(c.Position) >= size {
			return nil, &Failure{Kind: FailChildLegality, Position: tp,
				Detail: "child " + c.String() + " out of range"}
		}
		if !game.IsLegalPosition(c) {
			return nil, &Failure{Kind: FailChildLegality, Position: tp,
				Detail: "child " + c.String() + " is not legal"}
		}
	}
	return children, nil
}

// checkChildParentReciprocity verifies every child of tp lists
// canonical(tp) among its parents; only runs if the game supplies
// GetCanonicalParentPositions.
func checkChildParentReciprocity(game gameapi.GameApi, tp tiertype.TierPosition, children []tiertype.TierPosition) error {
	pg, ok := game.(gameapi.CanonicalParentGenerator)
	if !ok {
		return nil
	}
	canon := canonicalOf(game, tp)
	for _, c := range children {
		parents := pg.GetCanonicalParentPositions(c, tp.Tier)
		if !containsPosition(parents, canon) {
			return &Failure{Kind: FailChildParentReciprocity, Position: tp,
				Detail: "canonical(p) not found in GetCanonicalParentPositions(" + c.String() + ", tier(p))"}
		}
	}
	return nil
}

// checkParentChildReciprocity verifies every reported parent of tp
// lists canonical(tp) among its children. The parent lookup is fed
// tp's canonical form: the solver only ever queries the parent
// relation with canonical children, so a raw sampled position is
// outside the callback's domain.
func checkParentChildReciprocity(game gameapi.GameApi, tp tiertype.TierPosition, parentTiers []tiertype.Tier) error {
	pg, ok := game.(gameapi.CanonicalParentGenerator)
	if !ok {
		return nil
	}
	want := tiertype.TierPosition{Tier: tp.Tier, Position: canonicalOf(game, tp)}
	for _, parentTier := range parentTiers {
		parents := pg.GetCanonicalParentPositions(want, parentTier)
		for _, q := range parents {
			qtp := tiertype.TierPosition{Tier: parentTier, Position: q}
			if !game.IsLegalPosition(qtp) || game.Primitive(qtp) != tiertype.Undecided {
				continue
			}
			children := canonicalChildren(game, qtp)
			found := false
			for _, c := range children {
				if c == want {
					found = true
					break
				}
			}
			if !found {
				return &Failure{Kind: FailParentChildReciprocity, Position: tp,
					Detail: "canonical(p) not found among GetCanonicalChildPositions(" + qtp.String() + ")"}
			}
		}
	}
	return nil
}

func canonicalOf(game gameapi.GameApi, tp tiertype.TierPosition) tiertype.Position {
	if cp, ok := game.(gameapi.CanonicalPositioner); ok {
		return cp.GetCanonicalPosition(tp)
	}
	return tp.Position
}

// canonicalChildren mirrors internal/solver's own fallback chain
// (GetCanonicalChildPositions, else GenerateMoves+DoMove+canonicalize)
// so the tester checks exactly what the solver will actually consume.
func canonicalChildren(game gameapi.GameApi, tp tiertype.TierPosition) []tiertype.TierPosition {
	if cg, ok := game.(gameapi.CanonicalChildGenerator); ok {
		return cg.GetCanonicalChildPositions(tp)
	}
	moves := game.GenerateMoves(tp)
	out := make([]tiertype.TierPosition, 0, len(moves))
	for _, m := range moves {
		child := game.DoMove(tp, m)
		child.Position = canonicalOf(game, child)
		out = append(out, child)
	}
	return out
}

func containsPosition(haystack []tiertype.Position, needle tiertype.Position) bool {
	for _, p := range haystack {
		if p == needle {
			return true
		}
	}
	return false
}
