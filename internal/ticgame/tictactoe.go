// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ticgame implements tic-tac-toe as a gameapi.GameApi. It
// exists so internal/solver can be exercised against a small,
// hand-verifiable game rather than only against fakes.
//
// Positions are encoded as a base-3 number over the 9 board cells
// (0 empty, 1 X, 2 O), read left-to-right, top-to-bottom. Tiers are
// ply count: a position in tier t has exactly t occupied cells, and
// every move transitions tier t -> t+1, making every tier's children
// lie in exactly one other tier (the immediate-transition tier type).
package ticgame

import (
	"github.com/gamescrafters/tiersolver/pkg/gameapi"
	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

const boardSize = 9

// maxEncoding is 3^9, the number of base-3 strings of length 9 — an
// upper bound on tier size, not the exact legal-position count (most
// encodings are pruned by IsLegalPosition).
const maxEncoding = 19683

type TicTacToe struct{}

var _ gameapi.GameApi = TicTacToe{}
var _ gameapi.CanonicalPositioner = TicTacToe{}
var _ gameapi.TierTyper = TicTacToe{}

func (TicTacToe) GetInitialTier() tiertype.Tier         { return 0 }
func (TicTacToe) GetInitialPosition() tiertype.Position { return 0 }

// GetTierSize returns the same upper bound for every tier in [0, 9];
// IsLegalPosition rejects the encodings that do not actually belong
// to that tier.
func (TicTacToe) GetTierSize(tier tiertype.Tier) int64 {
	if tier < 0 || tier > boardSize {
		return -1
	}
	return maxEncoding
}

func (TicTacToe) GetChildTiers(tier tiertype.Tier) []tiertype.Tier {
	if tier >= boardSize {
		return nil
	}
	return []tiertype.Tier{tier + 1}
}

func (TicTacToe) GetTierType(tier tiertype.Tier) tiertype.TierType {
	return tiertype.ImmediateTransition
}

func decode(pos tiertype.Position) [boardSize]int8 {
	var b [boardSize]int8
	v := int64(pos)
	for i := 0; i < boardSize; i++ {
		b[i] = int8(v % 3)
		v /= 3
	}
	return b
}

func encode(b [boardSize]int8) tiertype.Position {
	var v int64
	for i := boardSize - 1; i >= 0; i-- {
		v = v*3 + int64(b[i])
	}
	return tiertype.Position(v)
}

func countMarks(b [boardSize]int8) (xs, os int) {
	for _, c := range b {
		switch c {
		case 1:
			xs++
		case 2:
			os++
		}
	}
	return
}

// IsLegalPosition checks the encoding decodes to a board whose piece
// counts are consistent with tier.Position's implied ply count and
// with alternating turns (X moves first, so xs == os or xs == os+1).
func (TicTacToe) IsLegalPosition(tp tiertype.TierPosition) bool {
	if int64(tp.Position) < 0 || int64(tp.Position) >= maxEncoding {
		return false
	}
	b := decode(tp.Position)
	xs, os := countMarks(b)
	if int64(xs+os) != int64(tp.Tier) {
		return false
	}
	if xs != os && xs != os+1 {
		return false
	}
	// Reject boards where both players already have a row (impossible
	// under alternating play that stops at the first win).
	xWin, oWin := hasLine(b, 1), hasLine(b, 2)
	if xWin && oWin {
		return false
	}
	// A position with a completed line could only have been reached by
	// the move that created it; any further occupied cell placed after
	// the game-ending line is illegal. We approximate this by
	// requiring a winning board's tier to equal its piece count exactly
	// (already checked above) — full retrograde legality (no
	// "continued past a win") is left to Primitive/child generation,
	// which never extends a primitive position.
	return true
}

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

func hasLine(b [boardSize]int8, mark int8) bool {
	for _, l := range lines {
		if b[l[0]] == mark && b[l[1]] == mark && b[l[2]] == mark {
			return true
		}
	}
	return false
}

// Primitive reports the value to the player about to move. If the
// opponent (the player who moved last) completed a line, the mover has
// lost. A full board with no line is a terminal tie.
func (TicTacToe) Primitive(tp tiertype.TierPosition) tiertype.Value {
	b := decode(tp.Position)
	_, lastMark := moverAndLastMark(tp.Tier)
	if hasLine(b, lastMark) {
		return tiertype.Lose
	}
	if int(tp.Tier) == boardSize {
		return tiertype.Tie
	}
	return tiertype.Undecided
}

// moverAndLastMark returns (mark of the player about to move, mark of
// the player who moved last) for a position in the given tier. X (1)
// moves on even tiers (0 pieces placed -> X's turn), O (2) on odd.
func moverAndLastMark(tier tiertype.Tier) (mover, last int8) {
	if tier%2 == 0 {
		return 1, 2
	}
	return 2, 1
}

func (TicTacToe) GenerateMoves(tp tiertype.TierPosition) []gameapi.Move {
	b := decode(tp.Position)
	moves := make([]gameapi.Move, 0, boardSize)
	for i, c := range b {
		if c == 0 {
			moves = append(moves, gameapi.Move(i))
		}
	}
	return moves
}

func (TicTacToe) DoMove(tp tiertype.TierPosition, m gameapi.Move) tiertype.TierPosition {
	b := decode(tp.Position)
	mover, _ := moverAndLastMark(tp.Tier)
	b[m] = mover
	return tiertype.TierPosition{Tier: tp.Tier + 1, Position: encode(b)}
}

// symmetries is the dihedral group of the square (identity, 3
// rotations, 4 reflections), each expressed as a permutation of the
// 9 cell indices.
var symmetries = [8][boardSize]int{
	{0, 1, 2, 3, 4, 5, 6, 7, 8}, // identity
	{6, 3, 0, 7, 4, 1, 8, 5, 2}, // rotate 90
	{8, 7, 6, 5, 4, 3, 2, 1, 0}, // rotate 180
	{2, 5, 8, 1, 4, 7, 0, 3, 6}, // rotate 270
	{2, 1, 0, 5, 4, 3, 8, 7, 6}, // flip horizontal
	{6, 7, 8, 3, 4, 5, 0, 1, 2}, // flip vertical
	{0, 3, 6, 1, 4, 7, 2, 5, 8}, // transpose
	{8, 5, 2, 7, 4, 1, 6, 3, 0}, // anti-transpose
}

func applySymmetry(b [boardSize]int8, perm [boardSize]int) [boardSize]int8 {
	var out [boardSize]int8
	for i, p := range perm {
		out[p] = b[i]
	}
	return out
}

// GetCanonicalPosition returns the lexicographically smallest encoding
// among tp's 8 board symmetries.
func (TicTacToe) GetCanonicalPosition(tp tiertype.TierPosition) tiertype.Position {
	b := decode(tp.Position)
	best := tp.Position
	for _, perm := range symmetries {
		enc := encode(applySymmetry(b, perm))
		if enc < best {
			best = enc
		}
	}
	return best
}
