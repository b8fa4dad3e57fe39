// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package frontier implements a bucketed, append-only store of solved
// positions, keyed by remoteness and tagged with the index of the
// child tier they were discovered in.
//
// A Frontier is owned by exactly one worker goroutine for its entire
// lifetime; Add is never safe to share across goroutines. Bucket
// storage is append-only: append to a preallocated slice, let append
// reallocate past that, never copy across a lock.
//
// Records carry their child-tier index directly rather than through a
// separately-accumulated prefix-sum (dividers) table: the solver
// keeps adding records to a bucket during frontier propagation, after
// the tier-scan phase that would have finalized such a table, so a
// once-computed prefix sum would go stale the moment propagation
// appends its own self-tier records.
package frontier

import (
	"fmt"

	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

// DefaultBucketCap is the initial capacity reserved per remoteness
// bucket, large enough that most tiers never reallocate a bucket's
// backing array.
const DefaultBucketCap = 256

// ErrAlloc is returned by Add when a record cannot be stored: its
// remoteness is out of range, its bucket was already freed, or its
// child index is out of range. The solver treats this as fatal for the
// current tier.
type ErrAlloc struct {
	Op string
}

func (e *ErrAlloc) Error() string {
	return fmt.Sprintf("frontier: allocation failed during %s", e.Op)
}

type record struct {
	position   tiertype.Position
	childIndex int
}

// bucket holds every record discovered at one remoteness level.
type bucket struct {
	records []record
	freed   bool
}

func newBucket() *bucket {
	return &bucket{
		records: make([]record, 0, DefaultBucketCap),
	}
}

// Frontier is one worker thread's bucketed record store.
type Frontier struct {
	numDividers int
	buckets     []*bucket // indexed by remoteness, len == rMax+1
}

// Init allocates rMax+1 buckets, each able to record insertions tagged
// with one of numDividers child indices.
func Init(rMax tiertype.Remoteness, numDividers int) *Frontier {
	f := &Frontier{
		numDividers: numDividers,
		buckets:     make([]*bucket, rMax+1),
	}
	for r := range f.buckets {
		f.buckets[r] = newBucket()
	}
	return f
}

// Add appends position into the bucket for remoteness, tagged with
// childIndex. Unlike a prefix-sum dividers scheme, Add has no ordering
// requirement on childIndex: a bucket may receive records for child
// index i, then later (e.g. once frontier propagation starts writing
// newly-decided self-tier positions back into remoteness r+1) more
// records for the same or a different index, without invalidating
// lookups already made against earlier records.
func (f *Frontier) Add(position tiertype.Position, remoteness tiertype.Remoteness, childIndex int) error {
	if int(remoteness) < 0 || int(remoteness) >= len(f.buckets) {
		return &ErrAlloc{Op: fmt.Sprintf("Add(remoteness=%d out of range)", remoteness)}
	}
	b := f.buckets[remoteness]
	if b.freed {
		return &ErrAlloc{Op: "Add(bucket already freed)"}
	}
	if childIndex < 0 || childIndex >= f.numDividers {
		return &ErrAlloc{Op: fmt.Sprintf("Add(childIndex=%d out of range)", childIndex)}
	}
	b.records = append(b.records, record{position: position, childIndex: childIndex})
	return nil
}

// Len reports how many records are stored at remoteness.
func (f *Frontier) Len(remoteness tiertype.Remoteness) int {
	b := f.buckets[remoteness]
	if b == nil {
		return 0
	}
	return len(b.records)
}

// GetPosition reads the position stored at the given linear offset
// within remoteness's bucket.
func (f *Frontier) GetPosition(remoteness tiertype.Remoteness, indexInBucket int64) tiertype.Position {
	return f.buckets[remoteness].records[indexInBucket].position
}

// ChildIndexAt returns the child-tier index tagged to the record at
// indexInBucket within remoteness's bucket.
func (f *Frontier) ChildIndexAt(remoteness tiertype.Remoteness, indexInBucket int64) int {
	return f.buckets[remoteness].records[indexInBucket].childIndex
}

// FreeRemoteness releases bucket storage for remoteness once that
// level is fully processed.
func (f *Frontier) FreeRemoteness(remoteness tiertype.Remoteness) {
	b := f.buckets[remoteness]
	if b == nil {
		return
	}
	b.records = nil
	b.freed = true
}

// Destroy releases every bucket. Called during internal/solver's
// end-of-tier cleanup.
func (f *Frontier) Destroy() {
	for r := range f.buckets {
		f.FreeRemoteness(tiertype.Remoteness(r))
	}
}
