// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads and validates the tier solver's process-level
// configuration: a package-level variable seeded with defaults,
// overridden by a JSON file validated against a JSON Schema
// (github.com/santhosh-tekuri/jsonschema/v5, see
// internal/config/validate.go), with optional .env overrides loaded
// separately via godotenv (see cmd/tiersolver/main.go).
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gamescrafters/tiersolver/pkg/log"
)

// Keys holds every tunable the solver's ambient stack needs: the
// fields solver.Config names plus database and distributed-shim
// addressing.
type Keys struct {
	NumWorkers         int   `json:"num-workers"`
	DBChunkSize        int64 `json:"db-chunk-size"`
	ScanChunkSize      int64 `json:"scan-chunk-size"`
	PropagateChunkSize int64 `json:"propagate-chunk-size"`
	RMax               int32 `json:"r-max"`
	// WideCounters selects 16-bit undecided-children cells for games
	// whose positions can have more than 254 canonical children.
	WideCounters bool `json:"wide-counters"`

	// TierDir roots the on-disk table layout for internal/fsdb.
	TierDir string `json:"tier-dir"`
	// SqlitePath is the internal/sqlitedb database file.
	SqlitePath string `json:"sqlite-path"`
	// Backend selects which dbapi.DbApi implementation cmd/tiersolver
	// wires up: "sqlite" or "fs".
	Backend string `json:"backend"`

	// NatsAddress is the distributed shim's message-bus address
	// (pkg/shim/nats_transport.go).
	NatsAddress string `json:"nats-address"`
	// WorkerID identifies this process to the manager in distributed
	// mode.
	WorkerID string `json:"worker-id"`

	LogLevel string `json:"log-level"`
}

// Config is the process-wide configuration instance, mutated once by
// Init at startup and read thereafter: defaults assigned at
// declaration, then overridden in place by Init.
var Config = Keys{
	NumWorkers:         0, // 0 == runtime.GOMAXPROCS(0); see solver.DefaultConfig
	DBChunkSize:        1024,
	ScanChunkSize:      1024,
	PropagateChunkSize: 16,
	RMax:               1023,
	TierDir:            "./var/tiers",
	SqlitePath:         "./var/tiers.db",
	Backend:            "sqlite",
	NatsAddress:        "nats://127.0.0.1:4222",
	WorkerID:           "worker-0",
	LogLevel:           "info",
}

// Init overrides Config with the contents of flagConfigFile, validated
// against the embedded JSON Schema. A missing file is not an error
// (the defaults above are used as-is).
func Init(flagConfigFile string) error {
	raw, err := os.ReadFile(flagConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", flagConfigFile, err)
	}

	if err := Validate(raw); err != nil {
		return fmt.Errorf("config: validate %s: %w", flagConfigFile, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Config); err != nil {
		return fmt.Errorf("config: decode %s: %w", flagConfigFile, err)
	}

	log.SetLogLevel(Config.LogLevel)
	return nil
}
