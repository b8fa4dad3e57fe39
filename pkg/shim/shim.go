// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package shim implements the worker-side cooperative loop used when
// internal/solver runs as a worker in a multi-node deployment. It
// translates dispatcher Commands received over a transport into
// SolveTier calls and reports back a Reply.
package shim

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/time/rate"

	cclog "github.com/gamescrafters/tiersolver/pkg/log"
	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

// CommandType enumerates the manager->worker commands.
type CommandType int8

const (
	CmdSleep CommandType = iota
	CmdTerminate
	CmdSolve
	CmdForceSolve
)

// Command is one manager->worker message. Tier is meaningful only for
// CmdSolve/CmdForceSolve.
type Command struct {
	Type CommandType   `json:"type"`
	Tier tiertype.Tier `json:"tier,omitempty"`
}

// ReplyType enumerates the worker->manager reply kinds.
type ReplyType int8

const (
	ReplyCheck ReplyType = iota
	ReplySolved
	ReplyLoaded
	ReplyError
)

// Reply is one worker->manager message.
type Reply struct {
	Type      ReplyType     `json:"type"`
	Tier      tiertype.Tier `json:"tier,omitempty"`
	ErrorCode string        `json:"error_code,omitempty"`
}

// Transport is the minimal request/reply seam the shim needs from a
// messaging client. pkg/nats.Client.Request satisfies this directly
// (see NATSTransport); any request/reply transport can be adapted.
type Transport interface {
	// Request sends data to subject and returns the reply payload,
	// honoring ctx's deadline.
	Request(subject string, data []byte, ctx context.Context) ([]byte, error)
}

// SolveFunc invokes internal/solver.Worker.SolveTier for one tier and
// translates its outcome into a Reply. Implementations distinguish
// "already solved, skipped" (force=false no-op) from a fresh solve by
// returning ReplyLoaded vs ReplySolved.
type SolveFunc func(ctx context.Context, tier tiertype.Tier, force bool) (ReplyType, error)

// Config tunes the shim's polling behavior.
type Config struct {
	// CheckSubject is the NATS subject (or equivalent) the manager
	// listens for Check requests on.
	CheckSubject string
	// SleepInterval paces repeated Sleep->re-check cycles. Defaults to
	// one second.
	SleepInterval time.Duration
}

// Run executes the cooperative check/act loop until the manager
// sends Terminate or ctx is canceled.
func Run(ctx context.Context, transport Transport, solve SolveFunc, cfg Config) error {
	interval := cfg.SleepInterval
	if interval <= 0 {
		interval = time.Second
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		cmd, err := check(ctx, transport, cfg.CheckSubject)
		if err != nil {
			cclog.Errorf("shim: check failed: %v", err)
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			continue
		}

		switch cmd.Type {
		case CmdTerminate:
			cclog.Info("shim: received Terminate, exiting")
			return nil

		case CmdSleep:
			if err := limiter.Wait(ctx); err != nil {
				return err
			}

		case CmdSolve, CmdForceSolve:
			force := cmd.Type == CmdForceSolve
			replyType, solveErr := solve(ctx, cmd.Tier, force)
			reply := Reply{Type: replyType, Tier: cmd.Tier}
			if solveErr != nil {
				reply.Type = ReplyError
				reply.ErrorCode = solveErr.Error()
				cclog.Errorf("shim: SolveTier(%d, force=%v) failed: %v", cmd.Tier, force, solveErr)
			}
			if err := report(ctx, transport, cfg.CheckSubject, reply); err != nil {
				cclog.Errorf("shim: reporting reply failed: %v", err)
			}
		}
	}
}

// check sends a ReplyCheck-shaped request and parses the manager's
// Command response.
func check(ctx context.Context, transport Transport, subject string) (Command, error) {
	payload, err := json.Marshal(Reply{Type: ReplyCheck})
	if err != nil {
		return Command{}, err
	}
	resp, err := transport.Request(subject, payload, ctx)
	if err != nil {
		return Command{}, err
	}
	var cmd Command
	if err := json.Unmarshal(resp, &cmd); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// report sends a terminal Reply (Solved/Loaded/Error) to the manager.
func report(ctx context.Context, transport Transport, subject string, reply Reply) error {
	payload, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	_, err = transport.Request(subject, payload, ctx)
	return err
}
