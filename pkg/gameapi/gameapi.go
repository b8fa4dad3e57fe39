// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package gameapi declares the contract a game must satisfy to be
// solved by internal/solver. The solver treats a GameApi as an oracle
// and never embeds game-specific move generation, hashing, or scoring
// logic.
package gameapi

import (
	"strconv"

	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

// Move is an opaque, game-defined move identifier. The solver never
// interprets it; it is only round-tripped through GenerateMoves/DoMove
// when GetCanonicalChildPositions/GetNumberOfCanonicalChildPositions
// are not implemented by the game.
type Move int64

// GameApi is the set of callbacks required of every game. The
// optional extension interfaces below each unlock a solver
// optimization when present.
type GameApi interface {
	// GetInitialTier returns the tier containing the starting position.
	GetInitialTier() tiertype.Tier
	// GetInitialPosition returns the starting position within its tier.
	GetInitialPosition() tiertype.Position

	// GetTierSize returns size(tier), i.e. positions are in [0, size).
	// A return value < 0 signals a game-API failure.
	GetTierSize(tier tiertype.Tier) int64

	// GenerateMoves enumerates legal moves from a position. Only called
	// by the solver's fallback child-enumeration path.
	GenerateMoves(tp tiertype.TierPosition) []Move

	// Primitive returns the position's intrinsic value, or
	// tiertype.Undecided if the position is non-terminal.
	Primitive(tp tiertype.TierPosition) tiertype.Value

	// DoMove applies a move and returns the resulting position.
	DoMove(tp tiertype.TierPosition, m Move) tiertype.TierPosition

	// IsLegalPosition reports whether a (tier, position) pair denotes a
	// position that can actually occur in the game.
	IsLegalPosition(tp tiertype.TierPosition) bool

	// GetChildTiers returns the (possibly empty) set of tiers a
	// position in `tier` may transition into, not including `tier`
	// itself. The solver appends `tier` to this list internally.
	GetChildTiers(tier tiertype.Tier) []tiertype.Tier
}

// CanonicalPositioner folds position-symmetric positions within one
// tier to a single representative. Absent: position-symmetry folding
// is disabled and every legal position is treated as canonical.
type CanonicalPositioner interface {
	// GetCanonicalPosition returns the canonical representative of
	// tp's symmetry class (by convention, the smallest hash).
	GetCanonicalPosition(tp tiertype.TierPosition) tiertype.Position
}

// ChildCounter lets the solver learn the canonical child count of a
// position without materializing the children. Absent: the solver
// falls back to CanonicalChildGenerator and counts.
type ChildCounter interface {
	GetNumberOfCanonicalChildPositions(tp tiertype.TierPosition) int
}

// CanonicalChildGenerator returns canonical children directly. Absent:
// the solver falls back to GenerateMoves + DoMove + GetCanonicalPosition.
type CanonicalChildGenerator interface {
	GetCanonicalChildPositions(tp tiertype.TierPosition) []tiertype.TierPosition
}

// CanonicalParentGenerator supplies the parent relation analytically.
// Absent: the solver builds a reverse graph by forward enumeration
// during the tier scan (internal/reversegraph).
type CanonicalParentGenerator interface {
	// GetCanonicalParentPositions returns every canonical position in
	// parentTier that can transition into child in one move.
	GetCanonicalParentPositions(child tiertype.TierPosition, parentTier tiertype.Tier) []tiertype.Position
}

// TierSymmetricPositioner folds cross-tier symmetric positions. Absent:
// tier-symmetry folding is disabled and all tiers are canonical.
type TierSymmetricPositioner interface {
	// GetPositionInSymmetricTier maps tp's position into symmTier,
	// under the symmetry relating tp.Tier and symmTier.
	GetPositionInSymmetricTier(tp tiertype.TierPosition, symmTier tiertype.Tier) tiertype.Position
}

// TierCanonicalizer picks a canonical representative among
// cross-tier-symmetric tiers. Absent: same as TierSymmetricPositioner's
// absence, every tier is its own canonical tier.
type TierCanonicalizer interface {
	GetCanonicalTier(tier tiertype.Tier) tiertype.Tier
}

// TierTyper classifies a tier as loopy or loop-free. Absent: every
// tier is treated as Loopy.
type TierTyper interface {
	GetTierType(tier tiertype.Tier) tiertype.TierType
}

// TierNamer supplies a human-readable name for a tier, used to name
// database files. Absent: tiers are named "tier-" followed by their
// decimal value (see TierNameOf).
type TierNamer interface {
	GetTierName(tier tiertype.Tier) string
}

// IsCanonicalTier reports whether tier is its own canonical
// representative, using GetCanonicalTier when the game supplies it.
func IsCanonicalTier(api GameApi, tier tiertype.Tier) bool {
	tc, ok := api.(TierCanonicalizer)
	if !ok {
		return true
	}
	return tc.GetCanonicalTier(tier) == tier
}

// CanonicalTierOf returns GetCanonicalTier(tier) when supported, else
// tier itself.
func CanonicalTierOf(api GameApi, tier tiertype.Tier) tiertype.Tier {
	tc, ok := api.(TierCanonicalizer)
	if !ok {
		return tier
	}
	return tc.GetCanonicalTier(tier)
}

// TierTypeOf returns GetTierType(tier) when supported, else Loopy.
func TierTypeOf(api GameApi, tier tiertype.Tier) tiertype.TierType {
	tt, ok := api.(TierTyper)
	if !ok {
		return tiertype.Loopy
	}
	return tt.GetTierType(tier)
}

// TierNameOf returns GetTierName(tier) when supported, else "tier-"
// followed by the decimal representation of tier.
func TierNameOf(api GameApi, tier tiertype.Tier) string {
	tn, ok := api.(TierNamer)
	if !ok {
		return fmtTier(tier)
	}
	return tn.GetTierName(tier)
}

func fmtTier(tier tiertype.Tier) string {
	return "tier-" + strconv.FormatInt(int64(tier), 10)
}
