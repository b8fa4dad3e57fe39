// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command tierworker is the distributed worker: it connects to a NATS
// message bus, cooperatively polls a manager for work, and runs
// internal/solver.Worker.SolveTier as instructed, as a long-running
// background process.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/joho/godotenv"

	"github.com/gamescrafters/tiersolver/internal/config"
	"github.com/gamescrafters/tiersolver/internal/fsdb"
	"github.com/gamescrafters/tiersolver/internal/solver"
	"github.com/gamescrafters/tiersolver/internal/sqlitedb"
	"github.com/gamescrafters/tiersolver/internal/ticgame"
	"github.com/gamescrafters/tiersolver/pkg/dbapi"
	cclog "github.com/gamescrafters/tiersolver/pkg/log"
	"github.com/gamescrafters/tiersolver/pkg/nats"
	"github.com/gamescrafters/tiersolver/pkg/shim"
	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

func main() {
	var flagConfigFile, flagCheckSubject string
	var flagGops bool
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Overwrite the default options with those in `config.json`")
	flag.StringVar(&flagCheckSubject, "subject", "tiersolver.check", "NATS subject the manager listens for check requests on")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
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

	client, err := nats.NewClient(&nats.NatsConfig{Address: config.Config.NatsAddress})
	if err != nil {
		cclog.Fatalf("connecting to NATS at %s: %s", config.Config.NatsAddress, err.Error())
	}
	defer client.Close()

	w := solver.NewWorker(ticgame.TicTacToe{}, db, solver.Config{
		NumWorkers:         config.Config.NumWorkers,
		DBChunkSize:        config.Config.DBChunkSize,
		ScanChunkSize:      config.Config.ScanChunkSize,
		PropagateChunkSize: config.Config.PropagateChunkSize,
		RMax:               tiertype.Remoteness(config.Config.RMax),
		WideCounters:       config.Config.WideCounters,
	})

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cclog.Infof("tierworker %s: received shutdown signal", config.Config.WorkerID)
		cancel()
	}()

	solveFn := func(ctx context.Context, tier tiertype.Tier, force bool) (shim.ReplyType, error) {
		if !force {
			if status, err := db.TierStatus(tier); err == nil && status == dbapi.Solved {
				return shim.ReplyLoaded, nil
			}
		}
		if err := w.SolveTier(ctx, tier, force, false); err != nil {
			return shim.ReplyError, err
		}
		return shim.ReplySolved, nil
	}

	cclog.Infof("tierworker %s: connected to %s, polling subject %q", config.Config.WorkerID, config.Config.NatsAddress, flagCheckSubject)
	if err := shim.Run(ctx, shim.NATSTransport{Client: client}, solveFn, shim.Config{
		CheckSubject: flagCheckSubject,
	}); err != nil && err != context.Canceled {
		cclog.Fatalf("tierworker %s: shim.Run failed: %s", config.Config.WorkerID, err.Error())
	}
}

func openDB() (dbapi.DbApi, error) {
	switch config.Config.Backend {
	case "fs":
		return fsdb.New(config.Config.TierDir)
	default:
		return sqlitedb.New(config.Config.SqlitePath)
	}
}
