// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shim

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

// scriptedTransport replays a fixed sequence of Commands, one per
// Request call, and records every Reply sent back to it.
type scriptedTransport struct {
	commands []Command
	i        int
	replies  []Reply
}

func (s *scriptedTransport) Request(subject string, data []byte, ctx context.Context) ([]byte, error) {
	var r Reply
	if err := json.Unmarshal(data, &r); err == nil && r.Type != ReplyCheck {
		s.replies = append(s.replies, r)
	}
	cmd := s.commands[s.i]
	if s.i < len(s.commands)-1 {
		s.i++
	}
	return json.Marshal(cmd)
}

func TestRunSolvesThenTerminates(t *testing.T) {
	transport := &scriptedTransport{commands: []Command{
		{Type: CmdSolve, Tier: 5},
		{Type: CmdTerminate},
	}}

	solve := func(ctx context.Context, tier tiertype.Tier, force bool) (ReplyType, error) {
		assert.Equal(t, tiertype.Tier(5), tier)
		assert.False(t, force)
		return ReplySolved, nil
	}

	err := Run(context.Background(), transport, solve, Config{CheckSubject: "tier.solve"})
	require.NoError(t, err)
	require.Len(t, transport.replies, 1)
	assert.Equal(t, ReplySolved, transport.replies[0].Type)
	assert.Equal(t, tiertype.Tier(5), transport.replies[0].Tier)
}

func TestRunForceSolveReportsError(t *testing.T) {
	transport := &scriptedTransport{commands: []Command{
		{Type: CmdForceSolve, Tier: 9},
		{Type: CmdTerminate},
	}}

	solve := func(ctx context.Context, tier tiertype.Tier, force bool) (ReplyType, error) {
		assert.True(t, force)
		return ReplySolved, assertErr("boom")
	}

	err := Run(context.Background(), transport, solve, Config{CheckSubject: "tier.solve"})
	require.NoError(t, err)
	require.Len(t, transport.replies, 1)
	assert.Equal(t, ReplyError, transport.replies[0].Type)
	assert.Equal(t, "boom", transport.replies[0].ErrorCode)
}

func TestRunSleepPacesBeforeTerminate(t *testing.T) {
	transport := &scriptedTransport{commands: []Command{
		{Type: CmdSleep},
		{Type: CmdSleep},
		{Type: CmdTerminate},
	}}

	start := time.Now()
	err := Run(context.Background(), transport, nil, Config{
		CheckSubject:  "tier.solve",
		SleepInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
