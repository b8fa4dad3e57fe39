// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package frontier

import (
	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

// Set is the collection of per-worker-thread Frontiers that together
// make up one of the solver's win/lose/tie frontiers (each worker
// goroutine owns exactly one slot). Set.Thread exposes the per-thread
// Frontier directly so internal/solver can walk each thread's bucket
// in its own goroutine.
type Set struct {
	perThread []*Frontier
}

// NewSet allocates numThreads independent Frontiers, each sized for
// remoteness 0 through rMax and numDividers child-tier indices.
func NewSet(numThreads int, rMax tiertype.Remoteness, numDividers int) *Set {
	s := &Set{perThread: make([]*Frontier, numThreads)}
	for i := range s.perThread {
		s.perThread[i] = Init(rMax, numDividers)
	}
	return s
}

// NumThreads returns the number of per-thread Frontiers in the set.
func (s *Set) NumThreads() int { return len(s.perThread) }

// Thread returns the Frontier owned by worker goroutine i. Only that
// goroutine may call Add on the returned Frontier.
func (s *Set) Thread(i int) *Frontier { return s.perThread[i] }

// Len returns the total number of records across all threads at
// remoteness.
func (s *Set) Len(remoteness tiertype.Remoteness) int64 {
	var n int64
	for _, f := range s.perThread {
		n += int64(f.Len(remoteness))
	}
	return n
}

// FreeRemoteness releases remoteness's bucket on every thread.
func (s *Set) FreeRemoteness(remoteness tiertype.Remoteness) {
	for _, f := range s.perThread {
		f.FreeRemoteness(remoteness)
	}
}

// Destroy releases every thread's storage.
func (s *Set) Destroy() {
	for _, f := range s.perThread {
		f.Destroy()
	}
}
