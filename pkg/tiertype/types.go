// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tiertype defines the core identities the tier solver operates
// on: tiers, positions, and the value/remoteness pair every solved
// position is assigned.
package tiertype

import "fmt"

// Tier is an opaque identifier of a layer of the game graph. Tiers form
// a DAG; the solver only requires that a game can enumerate the child
// tiers of any given tier (see gameapi.GameApi.GetChildTiers).
type Tier int64

// Position is a non-negative hash, meaningful only within its tier.
type Position int64

// TierPosition is the global identity of a game state.
type TierPosition struct {
	Tier     Tier
	Position Position
}

func (tp TierPosition) String() string {
	return fmt.Sprintf("(tier=%d, pos=%d)", tp.Tier, tp.Position)
}

// Value is the game-theoretic outcome of a position under optimal play.
type Value int8

const (
	// Undecided is transient: the solver never assigns it as a final
	// value. Positions a solve does not decide (such as illegal ones)
	// read back as Undecided from a flushed tier.
	Undecided Value = iota
	Win
	Lose
	Tie
	Draw
)

func (v Value) String() string {
	switch v {
	case Undecided:
		return "undecided"
	case Win:
		return "win"
	case Lose:
		return "lose"
	case Tie:
		return "tie"
	case Draw:
		return "draw"
	default:
		return fmt.Sprintf("value(%d)", int8(v))
	}
}

// Remoteness counts plies to the nearest terminal under optimal play.
// It is illegal (undefined) for Draw positions.
type Remoteness int32

// RMax is the largest remoteness the solver will ever assign. A game
// whose optimal line exceeds this is not supported.
const RMax Remoteness = 1023

// TierType classifies whether a tier's internal position graph may
// contain cycles. GetTierType is an optional game callback; tiers
// default to Loopy when the callback is absent.
type TierType int8

const (
	// Loopy tiers require the full frontier-propagation algorithm
	// (internal/solver's loopy TierWorker).
	Loopy TierType = iota
	// LoopFree tiers may use the cheaper value-iteration algorithm
	// (internal/solver's value-iteration TierWorker).
	LoopFree
	// ImmediateTransition is a subset of LoopFree where every child of
	// every position in the tier lies in a different tier.
	ImmediateTransition
)

func (t TierType) String() string {
	switch t {
	case Loopy:
		return "loopy"
	case LoopFree:
		return "loop-free"
	case ImmediateTransition:
		return "immediate-transition"
	default:
		return fmt.Sprintf("tiertype(%d)", int8(t))
	}
}
