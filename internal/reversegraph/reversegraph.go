// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package reversegraph implements an in-memory child→parents multimap
// substituting for a game's GetCanonicalParentPositions when it does
// not supply one. Its lifetime is exactly one tier solve.
//
// The map is sharded: each shard guards its own bucket with a mutex
// so that the parallel tier scan can register parents from many
// goroutines without serializing on one global lock.
package reversegraph

import (
	"hash/maphash"
	"sync"

	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

// numShards is fixed rather than derived from GOMAXPROCS: the shard
// count only needs to be large enough to keep contention low, and a
// fixed power of two keeps the modulo a mask.
const numShards = 64

type shard struct {
	mu   sync.Mutex
	bags map[tiertype.TierPosition][]tiertype.Position
}

// Graph is the reverse graph for one tier solve. Parent bags are keyed
// by the child's TierPosition, for children in the solving tier and in
// its child tiers alike.
type Graph struct {
	seed   maphash.Seed
	shards [numShards]*shard
}

// Init allocates an empty reverse graph. sizeFn and childTiers are
// accepted so a caller can swap in a layout that preallocates per
// tier, but this sharded-map implementation does not need tier sizes
// up front.
func Init(childTiers []tiertype.Tier, thisTier tiertype.Tier, sizeFn func(tiertype.Tier) int64) *Graph {
	g := &Graph{seed: maphash.MakeSeed()}
	for i := range g.shards {
		g.shards[i] = &shard{bags: make(map[tiertype.TierPosition][]tiertype.Position)}
	}
	return g
}

func (g *Graph) shardFor(tp tiertype.TierPosition) *shard {
	var h maphash.Hash
	h.SetSeed(g.seed)
	var buf [16]byte
	putInt64(buf[0:8], int64(tp.Tier))
	putInt64(buf[8:16], int64(tp.Position))
	h.Write(buf[:])
	return g.shards[h.Sum64()%uint64(numShards)]
}

func putInt64(b []byte, v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
}

// Add appends parent to child's parent bag. Safe for concurrent use
// across goroutines registering different (or the same) child.
func (g *Graph) Add(child tiertype.TierPosition, parent tiertype.Position) {
	s := g.shardFor(child)
	s.mu.Lock()
	s.bags[child] = append(s.bags[child], parent)
	s.mu.Unlock()
}

// PopParentsOf returns and removes child's parent bag. Frontier
// propagation calls this exactly once per child; calling it again on
// the same child returns nil.
func (g *Graph) PopParentsOf(child tiertype.TierPosition) []tiertype.Position {
	s := g.shardFor(child)
	s.mu.Lock()
	defer s.mu.Unlock()
	bag := s.bags[child]
	delete(s.bags, child)
	return bag
}

// Destroy releases all remaining bags.
func (g *Graph) Destroy() {
	for _, s := range g.shards {
		s.mu.Lock()
		s.bags = nil
		s.mu.Unlock()
	}
}
