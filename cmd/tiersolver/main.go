// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command tiersolver drives a complete backward-induction solve of a
// GameApi, tier by tier from the highest tier (typically terminal
// positions) down to the initial tier, reporting progress the same way
// a long-running background task would.
package main

import (
	"context"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/gops/agent"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gamescrafters/tiersolver/internal/config"
	"github.com/gamescrafters/tiersolver/internal/fsdb"
	"github.com/gamescrafters/tiersolver/internal/loadedcache"
	"github.com/gamescrafters/tiersolver/internal/solver"
	"github.com/gamescrafters/tiersolver/internal/sqlitedb"
	"github.com/gamescrafters/tiersolver/internal/tester"
	"github.com/gamescrafters/tiersolver/internal/ticgame"
	"github.com/gamescrafters/tiersolver/pkg/dbapi"
	cclog "github.com/gamescrafters/tiersolver/pkg/log"
	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

func main() {
	var flagConfigFile string
	var flagGops, flagTest, flagForce bool
	var flagMetricsAddr string
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Overwrite the default options with those in `config.json`")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.BoolVar(&flagTest, "test", false, "Run internal/tester.TestTier against every tier before solving it")
	flag.BoolVar(&flagForce, "force", false, "Re-solve tiers even if already marked solved")
	flag.StringVar(&flagMetricsAddr, "metrics-addr", ":2112", "Address to serve /metrics on; empty disables it")
	flag.Parse()

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			cclog.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		cclog.Fatalf("loading .env failed: %s", err.Error())
	}

	if err := config.Init(flagConfigFile); err != nil {
		cclog.Fatalf("config: %s", err.Error())
	}
	cclog.SetLogLevel(config.Config.LogLevel)

	db, err := openDB()
	if err != nil {
		cclog.Fatalf("opening database: %s", err.Error())
	}
	if c, ok := db.(io.Closer); ok {
		defer c.Close()
	}

	metrics := solver.NewMetrics(nil)
	if flagMetricsAddr != "" {
		metrics = serveMetrics(flagMetricsAddr)
	}

	w := solver.NewWorker(ticgame.TicTacToe{}, db, solver.Config{
		NumWorkers:         config.Config.NumWorkers,
		DBChunkSize:        config.Config.DBChunkSize,
		ScanChunkSize:      config.Config.ScanChunkSize,
		PropagateChunkSize: config.Config.PropagateChunkSize,
		RMax:               tiertype.Remoteness(config.Config.RMax),
		WideCounters:       config.Config.WideCounters,
	})
	w.Metrics = metrics
	w.Cache = loadedcache.New(256 << 20)

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cclog.Info("tiersolver: received shutdown signal")
		cancel()
	}()

	s, err := gocron.NewScheduler()
	if err != nil {
		cclog.Fatalf("gocron.NewScheduler: %s", err.Error())
	}

	done := make(chan struct{})
	_, err = s.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartImmediately()),
		gocron.NewTask(func() {
			defer close(done)
			if err := solveAll(ctx, w, ticgame.TicTacToe{}, flagTest, flagForce); err != nil {
				cclog.Errorf("tiersolver: solve failed: %s", err.Error())
				return
			}
			cclog.Info("tiersolver: solve complete")
		}),
	)
	if err != nil {
		cclog.Fatalf("gocron.NewJob: %s", err.Error())
	}

	s.Start()
	select {
	case <-done:
	case <-ctx.Done():
	}
	if err := s.Shutdown(); err != nil {
		cclog.Errorf("gocron.Shutdown: %s", err.Error())
	}
}

// openDB wires internal/sqlitedb or internal/fsdb per config.Config.Backend.
func openDB() (dbapi.DbApi, error) {
	switch config.Config.Backend {
	case "fs":
		return fsdb.New(config.Config.TierDir)
	default:
		return sqlitedb.New(config.Config.SqlitePath)
	}
}

// serveMetrics registers a Metrics set against
// prometheus.DefaultRegisterer and serves it over HTTP, the idiomatic pairing for
// prometheus/client_golang/prometheus/promhttp.
func serveMetrics(addr string) *solver.Metrics {
	m := solver.NewMetrics(prometheus.DefaultRegisterer)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			cclog.Errorf("tiersolver: metrics server: %s", err.Error())
		}
	}()
	cclog.Infof("tiersolver: serving metrics on %s/metrics", addr)
	return m
}

// solveAll walks tiers from the game's highest reachable tier down to
// its initial tier, solving (and optionally testing) each in turn.
func solveAll(ctx context.Context, w *solver.Worker, game ticgame.TicTacToe, runTest, force bool) error {
	top := highestTier(game)
	for tier := top; tier >= game.GetInitialTier(); tier-- {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if runTest {
			if err := tester.TestTier(game, tier, uint64(tier), parentTiersOf(game, top, tier)); err != nil {
				return err
			}
		}
		if err := w.SolveTier(ctx, tier, force, false); err != nil {
			return err
		}
		cclog.Infof("tiersolver: tier %d solved", tier)
	}
	return nil
}

func highestTier(game ticgame.TicTacToe) tiertype.Tier {
	var top tiertype.Tier
	for t := game.GetInitialTier(); ; t++ {
		if game.GetTierSize(t) <= 0 {
			return top
		}
		top = t
	}
}

func parentTiersOf(game ticgame.TicTacToe, top, tier tiertype.Tier) []tiertype.Tier {
	var parents []tiertype.Tier
	for t := game.GetInitialTier(); t <= top; t++ {
		for _, c := range game.GetChildTiers(t) {
			if c == tier {
				parents = append(parents, t)
			}
		}
	}
	return parents
}
