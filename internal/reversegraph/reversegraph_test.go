// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reversegraph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

func TestAddAndPop(t *testing.T) {
	g := Init(nil, 0, nil)
	child := tiertype.TierPosition{Tier: 1, Position: 2}

	g.Add(child, 10)
	g.Add(child, 11)
	g.Add(tiertype.TierPosition{Tier: 1, Position: 3}, 99)

	parents := g.PopParentsOf(child)
	assert.ElementsMatch(t, []tiertype.Position{10, 11}, parents)

	// Second pop returns nothing: the bag was moved out.
	assert.Empty(t, g.PopParentsOf(child))
}

func TestConcurrentAdd(t *testing.T) {
	g := Init(nil, 0, nil)
	child := tiertype.TierPosition{Tier: 4, Position: 4}

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(p tiertype.Position) {
			defer wg.Done()
			g.Add(child, p)
		}(tiertype.Position(i))
	}
	wg.Wait()

	assert.Len(t, g.PopParentsOf(child), 200)
}

func TestDeterministicTwoPass(t *testing.T) {
	d := NewDeterministic()
	child := tiertype.TierPosition{Tier: 1, Position: 1}

	d.CountParent(child)
	d.CountParent(child)
	d.CountParent(child)

	d.BeginFill()

	d.Add(child, 7)
	d.Add(child, 8)
	d.Add(child, 9)

	assert.Equal(t, []tiertype.Position{7, 8, 9}, d.PopParentsOf(child))
}

func TestDeterministicCountAfterFillPanics(t *testing.T) {
	d := NewDeterministic()
	d.BeginFill()
	assert.Panics(t, func() {
		d.CountParent(tiertype.TierPosition{Tier: 1, Position: 1})
	})
}
