// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ticgame

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

func TestEmptyBoardIsLegalAndUndecided(t *testing.T) {
	g := TicTacToe{}
	tp := tiertype.TierPosition{Tier: 0, Position: 0}
	assert.True(t, g.IsLegalPosition(tp))
	assert.Equal(t, tiertype.Undecided, g.Primitive(tp))
	assert.Len(t, g.GenerateMoves(tp), 9)
}

func TestCompletedRowIsLosePrimitive(t *testing.T) {
	g := TicTacToe{}
	// X at 0,1,2 (top row); O at 3,4 (two moves). Tier 5 is odd, so O
	// is to move and X moved last (tier%2==0 => X to move); X's top
	// row therefore means the mover has lost.
	var b [boardSize]int8
	b[0], b[1], b[2] = 1, 1, 1
	b[3], b[4] = 2, 2
	tp := tiertype.TierPosition{Tier: 5, Position: encode(b)}

	assert.True(t, g.IsLegalPosition(tp))
	assert.Equal(t, tiertype.Lose, g.Primitive(tp))
}

func TestFullBoardNoLineIsTie(t *testing.T) {
	g := TicTacToe{}
	// A known drawn tic-tac-toe board.
	// X O X
	// X O O
	// O X X
	b := [boardSize]int8{1, 2, 1, 1, 2, 2, 2, 1, 1}
	tp := tiertype.TierPosition{Tier: 9, Position: encode(b)}

	assert.True(t, g.IsLegalPosition(tp))
	assert.Equal(t, tiertype.Tie, g.Primitive(tp))
}

func TestCanonicalPositionIsSymmetryInvariant(t *testing.T) {
	g := TicTacToe{}
	var b [boardSize]int8
	b[0] = 1 // X in a corner
	tp := tiertype.TierPosition{Tier: 1, Position: encode(b)}
	canon := g.GetCanonicalPosition(tp)

	for _, perm := range symmetries {
		rotated := applySymmetry(b, perm)
		rtp := tiertype.TierPosition{Tier: 1, Position: encode(rotated)}
		assert.Equal(t, canon, g.GetCanonicalPosition(rtp),
			"every symmetric image of a corner-X board must share the same canonical position")
	}
}

func TestDoMoveAdvancesTier(t *testing.T) {
	g := TicTacToe{}
	tp := tiertype.TierPosition{Tier: 0, Position: 0}
	child := g.DoMove(tp, 4)
	assert.EqualValues(t, 1, child.Tier)
	b := decode(child.Position)
	assert.EqualValues(t, 1, b[4])
}
