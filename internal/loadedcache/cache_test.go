// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package loadedcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamescrafters/tiersolver/pkg/dbapi"
	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

type fakeLoaded struct {
	size int64
}

func (f *fakeLoaded) Value(tiertype.Position) tiertype.Value           { return tiertype.Win }
func (f *fakeLoaded) Remoteness(tiertype.Position) tiertype.Remoteness { return 1 }
func (f *fakeLoaded) Size() int64                                      { return f.size }
func (f *fakeLoaded) Unload() error                                    { return nil }

func TestGetCachesAcrossCalls(t *testing.T) {
	c := New(1 << 20)
	calls := 0
	load := func() (dbapi.LoadedTier, error) {
		calls++
		return &fakeLoaded{size: 10}, nil
	}

	key := Key("db1", tiertype.Tier(5))
	lt1, err := c.Get(key, load)
	require.NoError(t, err)
	lt2, err := c.Get(key, load)
	require.NoError(t, err)

	assert.Same(t, lt1, lt2)
	assert.Equal(t, 1, calls)
}

func TestEvictForcesReload(t *testing.T) {
	c := New(1 << 20)
	calls := 0
	load := func() (dbapi.LoadedTier, error) {
		calls++
		return &fakeLoaded{size: 10}, nil
	}

	key := Key("db1", tiertype.Tier(5))
	_, err := c.Get(key, load)
	require.NoError(t, err)
	c.Evict(key)
	_, err = c.Get(key, load)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestGetPropagatesLoadError(t *testing.T) {
	c := New(1 << 20)
	_, err := c.Get("bad", func() (dbapi.LoadedTier, error) {
		return nil, assert.AnError
	})
	assert.Error(t, err)
}
