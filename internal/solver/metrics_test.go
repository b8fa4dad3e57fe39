// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package solver

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeSolved(1)
		m.observeScanned(10)
		m.observeFrontierPushed(2)
		m.observeInFlight(3)
		m.observeIdle()
	})
}

func TestSolveTierRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	db := newMemDB()
	w := NewWorker(twoTierGame{}, db, Config{})
	w.Metrics = m

	require.NoError(t, w.SolveTier(context.Background(), 1, false, false))
	require.NoError(t, w.SolveTier(context.Background(), 0, false, false))

	mf, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, f := range mf {
		if f.GetName() == "tiersolver_tiers_solved_total" {
			found = true
			assert.Equal(t, float64(2), f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found, "expected tiersolver_tiers_solved_total to be registered")
}
