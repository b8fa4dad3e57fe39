// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package frontier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

func TestAddAndChildIndexAt(t *testing.T) {
	f := Init(10, 3)

	require.NoError(t, f.Add(5, 2, 0))
	require.NoError(t, f.Add(6, 2, 0))
	require.NoError(t, f.Add(7, 2, 1))
	require.NoError(t, f.Add(8, 2, 2))

	assert.Equal(t, 4, f.Len(2))
	assert.Equal(t, 0, f.Len(3))

	assert.Equal(t, tiertype.Position(5), f.GetPosition(2, 0))
	assert.Equal(t, tiertype.Position(8), f.GetPosition(2, 3))

	assert.Equal(t, 0, f.ChildIndexAt(2, 0))
	assert.Equal(t, 0, f.ChildIndexAt(2, 1))
	assert.Equal(t, 1, f.ChildIndexAt(2, 2))
	assert.Equal(t, 2, f.ChildIndexAt(2, 3))
}

// TestChildIndexAtSurvivesLateAdds reproduces the propagation phase's
// access pattern: a bucket receives more records (self-tier positions
// newly decided during frontier propagation) after earlier records at
// the same remoteness have already been queried. A frozen prefix-sum
// table would go stale here; per-record tagging must not.
func TestChildIndexAtSurvivesLateAdds(t *testing.T) {
	f := Init(10, 3)

	require.NoError(t, f.Add(5, 2, 0))
	require.NoError(t, f.Add(6, 2, 1))

	assert.Equal(t, 0, f.ChildIndexAt(2, 0))
	assert.Equal(t, 1, f.ChildIndexAt(2, 1))

	// Simulate propagation appending a self-tier record (child index 2)
	// after the above records were already read.
	require.NoError(t, f.Add(9, 2, 2))

	assert.Equal(t, 3, f.Len(2))
	assert.Equal(t, tiertype.Position(9), f.GetPosition(2, 2))
	assert.Equal(t, 2, f.ChildIndexAt(2, 2))
	// Earlier lookups remain correct.
	assert.Equal(t, 0, f.ChildIndexAt(2, 0))
	assert.Equal(t, 1, f.ChildIndexAt(2, 1))
}

func TestAddRejectsOutOfRange(t *testing.T) {
	f := Init(4, 2)

	err := f.Add(0, 5, 0)
	assert.Error(t, err)

	err = f.Add(0, 0, 9)
	assert.Error(t, err)
}

func TestFreeRemotenessRejectsFurtherAdds(t *testing.T) {
	f := Init(4, 1)
	require.NoError(t, f.Add(1, 0, 0))

	f.FreeRemoteness(0)
	assert.Equal(t, 0, f.Len(0))

	err := f.Add(2, 0, 0)
	assert.Error(t, err)
}

func TestSetPerThreadIsolation(t *testing.T) {
	s := NewSet(2, 4, 1)

	require.NoError(t, s.Thread(0).Add(1, 0, 0))
	require.NoError(t, s.Thread(1).Add(2, 0, 0))
	require.NoError(t, s.Thread(1).Add(3, 0, 0))

	assert.Equal(t, int64(3), s.Len(0))

	assert.Equal(t, tiertype.Position(1), s.Thread(0).GetPosition(0, 0))
	assert.Equal(t, tiertype.Position(3), s.Thread(1).GetPosition(0, 1))

	s.Destroy()
	assert.Equal(t, int64(0), s.Len(0))
}
