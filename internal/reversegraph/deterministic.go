// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reversegraph

import (
	"sync"

	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

// Deterministic is a two-pass reverse graph construction: a first
// pass only counts how many parents each child has, then a second
// pass fills preallocated, exact-size slices. Unlike Graph, insertion
// order within a child's bag is
// therefore identical across runs regardless of goroutine scheduling,
// which matters for compare mode against a byte-exact reference dump.
type Deterministic struct {
	mu       sync.Mutex
	counts   map[tiertype.TierPosition]int64
	bags     map[tiertype.TierPosition][]tiertype.Position
	cursors  map[tiertype.TierPosition]int64
	counting bool
}

// NewDeterministic starts the graph in counting mode: calls to
// CountParent increment a child's expected parent count but do not
// store any parent yet.
func NewDeterministic() *Deterministic {
	return &Deterministic{
		counts:   make(map[tiertype.TierPosition]int64),
		counting: true,
	}
}

// CountParent records that child has one more parent than previously
// known. Called during the count pass.
func (d *Deterministic) CountParent(child tiertype.TierPosition) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.counting {
		panic("reversegraph: CountParent called after BeginFill")
	}
	d.counts[child]++
}

// BeginFill ends the counting pass and preallocates exact-capacity
// bags for every child seen so far. No further CountParent calls are
// permitted once BeginFill has run.
func (d *Deterministic) BeginFill() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counting = false
	d.bags = make(map[tiertype.TierPosition][]tiertype.Position, len(d.counts))
	d.cursors = make(map[tiertype.TierPosition]int64, len(d.counts))
	for child, n := range d.counts {
		d.bags[child] = make([]tiertype.Position, n)
	}
}

// Add places parent into child's bag at the next deterministic slot.
// Must be called during the fill pass, in exactly the same relative
// order across repeated runs of the same game for determinism to
// hold — the caller (internal/solver's tier scan) guarantees this by
// iterating positions in ascending order.
func (d *Deterministic) Add(child tiertype.TierPosition, parent tiertype.Position) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.cursors[child]
	d.bags[child][i] = parent
	d.cursors[child] = i + 1
}

// PopParentsOf returns and removes child's parent bag.
func (d *Deterministic) PopParentsOf(child tiertype.TierPosition) []tiertype.Position {
	d.mu.Lock()
	defer d.mu.Unlock()
	bag := d.bags[child]
	delete(d.bags, child)
	return bag
}

// Destroy releases all remaining bags.
func (d *Deterministic) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bags = nil
	d.counts = nil
	d.cursors = nil
}
