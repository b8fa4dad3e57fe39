// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package solver

import "sync/atomic"

// MaxChildren is the per-position undecided-children cap of the
// default (narrow, 8-bit) counter width. A game producing more
// canonical children for one position than this needs WideCounters.
const MaxChildren = 254

// MaxChildrenWide is the cap of the wide (16-bit) counter width.
const MaxChildrenWide = 65534

// counters is the dense undecided-children array: one cell per
// position in the tier being solved, each holding the number of
// children whose value is not yet known to this solver. The two
// implementations differ only in cell width; Config.WideCounters
// selects between them.
type counters interface {
	// Set stores an initial value. Safe to call concurrently for
	// distinct positions before any propagation has begun.
	Set(pos int64, n uint32)
	// Get reads the current value.
	Get(pos int64) uint32
	// ZeroOut atomically exchanges the cell at pos to 0 and reports
	// whether the previous value was non-zero, i.e. whether the caller
	// is the unique goroutine that just zeroed this cell and so owns
	// the single write of this position's value.
	ZeroOut(pos int64) (wasNonZero bool)
	// DecrementIfNonZero atomically decrements the cell at pos unless
	// it is already zero, and reports whether this call observed the
	// 1->0 transition uniquely. A CAS loop is required rather than a
	// bare fetch-and-subtract, which would wrap past zero if two
	// goroutines raced to decrement the same already-zero cell.
	DecrementIfNonZero(pos int64) (reachedZero bool)
	// Cap is the largest child count a cell can hold.
	Cap() uint32
}

func newCounters(size int64, wide bool) counters {
	if wide {
		return newLaneCounters(size, 16)
	}
	return newLaneCounters(size, 8)
}

// laneCounters packs fixed-width cells into words of atomic.Uint32
// (Go's sync/atomic has no 8- or 16-bit atomic type), so the narrow
// variant really does cost one byte per position. Every mutation is a
// CAS loop on the containing word, masked to the cell's lane;
// neighboring cells in the same word never observe each other's
// updates.
type laneCounters struct {
	words    []atomic.Uint32
	laneBits uint // 8 or 16
	perWord  int64
	mask     uint32
}

func newLaneCounters(size int64, laneBits uint) *laneCounters {
	perWord := int64(32 / laneBits)
	return &laneCounters{
		words:    make([]atomic.Uint32, (size+perWord-1)/perWord),
		laneBits: laneBits,
		perWord:  perWord,
		mask:     uint32(1)<<laneBits - 1,
	}
}

func (c *laneCounters) lane(pos int64) (word *atomic.Uint32, shift uint) {
	return &c.words[pos/c.perWord], uint(pos%c.perWord) * c.laneBits
}

func (c *laneCounters) Set(pos int64, n uint32) {
	word, shift := c.lane(pos)
	for {
		old := word.Load()
		val := old&^(c.mask<<shift) | (n&c.mask)<<shift
		if word.CompareAndSwap(old, val) {
			return
		}
	}
}

func (c *laneCounters) Get(pos int64) uint32 {
	word, shift := c.lane(pos)
	return word.Load() >> shift & c.mask
}

func (c *laneCounters) ZeroOut(pos int64) (wasNonZero bool) {
	word, shift := c.lane(pos)
	for {
		old := word.Load()
		cell := old >> shift & c.mask
		if cell == 0 {
			return false
		}
		if word.CompareAndSwap(old, old&^(c.mask<<shift)) {
			return true
		}
	}
}

func (c *laneCounters) DecrementIfNonZero(pos int64) (reachedZero bool) {
	word, shift := c.lane(pos)
	for {
		old := word.Load()
		cell := old >> shift & c.mask
		if cell == 0 {
			return false
		}
		if word.CompareAndSwap(old, old-1<<shift) {
			return cell == 1
		}
	}
}

// Cap leaves the all-ones lane value unused so a cell can never be
// confused with its own overflow.
func (c *laneCounters) Cap() uint32 {
	return c.mask - 1
}
