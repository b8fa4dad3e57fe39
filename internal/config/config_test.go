// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMissingFileIsNotError(t *testing.T) {
	saved := Config
	defer func() { Config = saved }()

	err := Init(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
}

func TestInitOverridesDefaults(t *testing.T) {
	saved := Config
	defer func() { Config = saved }()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"num-workers":4,"backend":"fs"}`), 0o644))

	require.NoError(t, Init(path))
	assert.Equal(t, 4, Config.NumWorkers)
	assert.Equal(t, "fs", Config.Backend)
}

func TestInitRejectsUnknownField(t *testing.T) {
	saved := Config
	defer func() { Config = saved }()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not-a-real-key":1}`), 0o644))

	err := Init(path)
	assert.Error(t, err)
}

func TestInitRejectsBadBackend(t *testing.T) {
	saved := Config
	defer func() { Config = saved }()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"backend":"s3"}`), 0o644))

	err := Init(path)
	assert.Error(t, err)
}
