// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dbapi declares the contract the tier solver requires of its
// database collaborator. The on-disk layout and codec are the
// collaborator's own concern — dbapi.DbApi is the seam the solver is
// written against; internal/sqlitedb and internal/fsdb are two
// concrete, interchangeable implementations used by tests and by
// cmd/tiersolver.
package dbapi

import "github.com/gamescrafters/tiersolver/pkg/tiertype"

// Status is the solved-state of a tier as known to the database.
type Status int8

const (
	Missing Status = iota
	Solved
	Corrupted
	CheckError
)

func (s Status) String() string {
	switch s {
	case Missing:
		return "missing"
	case Solved:
		return "solved"
	case Corrupted:
		return "corrupted"
	case CheckError:
		return "check-error"
	default:
		return "unknown"
	}
}

// Probe is a read-only, per-tier handle for querying already-solved
// positions. The solver opens one Probe per worker thread per tier
// while loading children and during compare mode; DbApi
// implementations must allow concurrent Probes over the same tier.
type Probe interface {
	// Value returns the solved value of a position.
	Value(tp tiertype.TierPosition) (tiertype.Value, error)
	// Remoteness returns the solved remoteness of a position. Only
	// meaningful when Value != Draw.
	Remoteness(tp tiertype.TierPosition) (tiertype.Remoteness, error)
	// Close releases the probe's resources.
	Close() error
}

// SolvingTier is the in-memory, write-only handle to the table being
// produced for one tier. SetValue/SetRemoteness may
// be called concurrently for disjoint positions — the counter
// protocol in internal/solver guarantees each position is written by
// at most one goroutine.
type SolvingTier interface {
	SetValue(pos tiertype.Position, v tiertype.Value) error
	SetRemoteness(pos tiertype.Position, r tiertype.Remoteness) error
	// Flush materializes the table durably. After Flush returns, a
	// Probe opened on this tier must observe every write made through
	// this SolvingTier.
	Flush() error
	// Free releases in-memory resources. Safe to call after Flush, and
	// safe to call instead of Flush (e.g. on an aborted solve).
	Free() error
}

// LoadedTier is an entire tier's table held in RAM, used by the
// value-iteration solver, which needs random access to every child
// tier's positions without a Probe round-trip per lookup.
type LoadedTier interface {
	Value(pos tiertype.Position) tiertype.Value
	Remoteness(pos tiertype.Position) tiertype.Remoteness
	Size() int64
	// Unload releases the in-memory table.
	Unload() error
}

// DbApi is the database collaborator consumed by internal/solver.
type DbApi interface {
	// ProbeInit opens a read-only probe on tier. Returns an error if
	// the tier is not Solved.
	ProbeInit(tier tiertype.Tier) (Probe, error)

	// CreateSolvingTier allocates size records for tier, ready to be
	// populated via SetValue/SetRemoteness.
	CreateSolvingTier(tier tiertype.Tier, size int64) (SolvingTier, error)

	// LoadTier reads an entire already-solved tier into RAM.
	LoadTier(tier tiertype.Tier) (LoadedTier, error)

	// TierStatus reports whether tier has already been solved, so that
	// SolveTier(tier, force=false) on a Solved tier can be a no-op.
	TierStatus(tier tiertype.Tier) (Status, error)
}

// Comparer is an optional DbApi extension used by compare mode: a
// second, read-only database holding a trusted reference solve to
// diff a fresh solve against.
type Comparer interface {
	DbApi
	// ReferenceProbeInit opens a probe on the reference database
	// mirror of tier.
	ReferenceProbeInit(tier tiertype.Tier) (Probe, error)
}
