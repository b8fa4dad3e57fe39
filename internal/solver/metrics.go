// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package solver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

// Metrics instruments a Worker with the counters and gauges an
// operator watches a running solve through, exported with
// prometheus/client_golang. Metrics is nil-safe: a
// Worker with a nil Metrics simply skips instrumentation.
type Metrics struct {
	TiersSolved      prometheus.Counter
	PositionsScanned prometheus.Counter
	FrontierPushed   prometheus.Counter
	TierInFlight     prometheus.Gauge
}

// NewMetrics registers a fresh Metrics set against reg. Passing
// prometheus.DefaultRegisterer matches the package-level registry
// promhttp.Handler() serves by default.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TiersSolved: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tiersolver",
			Name:      "tiers_solved_total",
			Help:      "Number of tiers fully solved by this worker.",
		}),
		PositionsScanned: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tiersolver",
			Name:      "positions_scanned_total",
			Help:      "Number of positions (every position of each solved tier, legal or not) examined across all SolveTier calls.",
		}),
		FrontierPushed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tiersolver",
			Name:      "frontier_records_pushed_total",
			Help:      "Number of (value, remoteness) records pushed onto frontiers during retrograde propagation.",
		}),
		TierInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "tiersolver",
			Name:      "tier_in_flight",
			Help:      "Tier number currently being solved, or -1 when idle.",
		}),
	}
}

func (m *Metrics) observeSolved(tier tiertype.Tier) {
	if m == nil {
		return
	}
	m.TiersSolved.Inc()
	_ = tier
}

func (m *Metrics) observeScanned(n int64) {
	if m == nil {
		return
	}
	m.PositionsScanned.Add(float64(n))
}

func (m *Metrics) observeFrontierPushed(n int64) {
	if m == nil {
		return
	}
	m.FrontierPushed.Add(float64(n))
}

func (m *Metrics) observeInFlight(tier tiertype.Tier) {
	if m == nil {
		return
	}
	m.TierInFlight.Set(float64(tier))
}

func (m *Metrics) observeIdle() {
	if m == nil {
		return
	}
	m.TierInFlight.Set(-1)
}
