// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package solver

import "fmt"

// ErrKind classifies solver failures so callers can decide whether a
// failure is retryable, a config problem, or a corrupt-database condition worth
// escalating to ForceSolve.
type ErrKind int8

const (
	ErrUnknown ErrKind = iota
	ErrBadConfig
	ErrMissingCallback
	ErrChildNotReady
	ErrCounterOverflow
	ErrCorruptDatabase
	ErrCompareMismatch
	ErrOutOfMemory
	ErrGameApi
)

func (k ErrKind) String() string {
	switch k {
	case ErrBadConfig:
		return "bad_config"
	case ErrMissingCallback:
		return "missing_callback"
	case ErrChildNotReady:
		return "child_not_ready"
	case ErrCounterOverflow:
		return "counter_overflow"
	case ErrCorruptDatabase:
		return "corrupt_database"
	case ErrCompareMismatch:
		return "compare_mismatch"
	case ErrOutOfMemory:
		return "out_of_memory"
	case ErrGameApi:
		return "game_api"
	default:
		return "unknown"
	}
}

// Error is the solver package's error type. Op names the failing
// operation (e.g. "SolveTier", "valueIter.flush"), and Kind lets
// callers branch without string-matching.
type Error struct {
	Op   string
	Kind ErrKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("solver: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("solver: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(op string, kind ErrKind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}
