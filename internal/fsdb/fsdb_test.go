// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fsdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamescrafters/tiersolver/pkg/dbapi"
	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

func TestRoundTrip(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "tiers"))
	require.NoError(t, err)

	status, err := db.TierStatus(tiertype.Tier(2000))
	require.NoError(t, err)
	assert.Equal(t, dbapi.Missing, status)

	st, err := db.CreateSolvingTier(tiertype.Tier(2000), 3)
	require.NoError(t, err)
	require.NoError(t, st.SetValue(0, tiertype.Win))
	require.NoError(t, st.SetRemoteness(0, 9))
	require.NoError(t, st.SetValue(1, tiertype.Draw))
	require.NoError(t, st.SetValue(2, tiertype.Tie))
	require.NoError(t, st.SetRemoteness(2, 1))
	require.NoError(t, st.Flush())
	require.NoError(t, st.Free())

	status, err = db.TierStatus(tiertype.Tier(2000))
	require.NoError(t, err)
	assert.Equal(t, dbapi.Solved, status)

	probe, err := db.ProbeInit(tiertype.Tier(2000))
	require.NoError(t, err)
	defer probe.Close()

	v, err := probe.Value(tiertype.TierPosition{Tier: 2000, Position: 0})
	require.NoError(t, err)
	assert.Equal(t, tiertype.Win, v)
	r, err := probe.Remoteness(tiertype.TierPosition{Tier: 2000, Position: 0})
	require.NoError(t, err)
	assert.Equal(t, tiertype.Remoteness(9), r)

	loaded, err := db.LoadTier(tiertype.Tier(2000))
	require.NoError(t, err)
	assert.Equal(t, int64(3), loaded.Size())
	assert.Equal(t, tiertype.Tie, loaded.Value(2))
	assert.Equal(t, tiertype.Remoteness(1), loaded.Remoteness(2))
}

func TestBucketingSpreadsAcrossDirectories(t *testing.T) {
	root := t.TempDir()
	assert.NotEqual(t, directory(root, tiertype.Tier(1)), directory(root, tiertype.Tier(1001)))
	assert.Equal(t, directory(root, tiertype.Tier(1)), directory(root, tiertype.Tier(1)))
}
