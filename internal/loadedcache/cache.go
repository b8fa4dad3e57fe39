// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package loadedcache bounds the value-iteration solver's in-RAM
// child-tier set. Without a bound, a long chain of SolveTier calls
// over loop-free tiers would retain every child tier it ever loaded
// for the lifetime of the process; loadedcache wraps pkg/lrucache's
// LRU-with-byte-budget container, sized by an estimate of a loaded
// tier's byte footprint.
package loadedcache

import (
	"fmt"
	"time"

	"github.com/gamescrafters/tiersolver/pkg/dbapi"
	"github.com/gamescrafters/tiersolver/pkg/lrucache"
	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

// noExpiry is long enough that entries are only ever evicted by the
// byte budget, never by wall-clock age — a solved tier's table does
// not go stale.
const noExpiry = 365 * 24 * time.Hour

// bytesPerPosition approximates a loaded tier's footprint: one
// tiertype.Value (int8) plus one tiertype.Remoteness (int32) slot,
// plus Go's per-slice-element overhead is negligible for these
// primitive element types.
const bytesPerPosition = 5

// Cache bounds the total bytes of dbapi.LoadedTier held in RAM at
// once, evicting least-recently-used tiers first.
type Cache struct {
	inner *lrucache.Cache
}

// New creates a Cache with a budget of maxBytes.
func New(maxBytes int) *Cache {
	return &Cache{inner: lrucache.New(maxBytes)}
}

// Key identifies one tier within one database, since a single Cache
// may be shared by workers solving against different dbapi.DbApi
// instances (e.g. a primary and a reference database in compare mode).
func Key(dbID string, tier tiertype.Tier) string {
	return fmt.Sprintf("%s:%d", dbID, int64(tier))
}

// Get returns the cached dbapi.LoadedTier for key, calling load on a
// miss. A LoadedTier returned from the cache must not be Unload()ed by
// the caller — the cache owns its lifetime and only releases it (via
// GC; dbapi.LoadedTier holds no OS resources, only slices) on
// eviction.
func (c *Cache) Get(key string, load func() (dbapi.LoadedTier, error)) (dbapi.LoadedTier, error) {
	var loadErr error
	v := c.inner.Get(key, func() (interface{}, time.Duration, int) {
		lt, err := load()
		if err != nil {
			loadErr = err
			return nil, 0, 0
		}
		return lt, noExpiry, int(lt.Size()) * bytesPerPosition
	})
	if loadErr != nil {
		return nil, loadErr
	}
	if v == nil {
		return nil, fmt.Errorf("loadedcache: load for %q returned nil", key)
	}
	return v.(dbapi.LoadedTier), nil
}

// Evict removes key from the cache immediately, for callers that know
// a cached tier will never be read again (e.g. a tier is being
// resolved with force=true).
func (c *Cache) Evict(key string) {
	c.inner.Del(key)
}
