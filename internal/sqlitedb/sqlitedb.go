// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sqlitedb is the SQLite-backed dbapi.DbApi implementation:
// per-tier value/remoteness tables persisted as rows, queried through
// jmoiron/sqlx with Masterminds/squirrel query building over the
// mattn/go-sqlite3 driver, and golang-migrate/migrate/v4 (iofs
// source, sqlite3 driver) for schema setup.
package sqlitedb

import (
	"database/sql"
	"fmt"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/gamescrafters/tiersolver/pkg/dbapi"
	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

// DB is a dbapi.DbApi backed by one SQLite file. It satisfies
// dbapi.Comparer when constructed with NewComparer, which additionally
// attaches a second, reference database: compare mode reads it through
// ReferenceProbeInit, and only ReferenceSolvingTier writes to it.
type DB struct {
	sqlx    *sqlx.DB
	stmt    *sq.StmtCache
	mu      sync.Mutex // serializes writes; sqlite3 allows one writer
	ref     *sqlx.DB
	refStmt *sq.StmtCache
}

// New opens (creating if necessary) a SQLite database at path and
// ensures the tier_position/tier_size tables exist.
func New(path string) (*DB, error) {
	sx, err := open(path)
	if err != nil {
		return nil, err
	}
	return &DB{sqlx: sx, stmt: sq.NewStmtCache(sx.DB)}, nil
}

// NewComparer opens path as the primary database and referencePath as
// the reference mirror, the pairing dbapi.Comparer needs for
// compare mode.
func NewComparer(path, referencePath string) (*DB, error) {
	db, err := New(path)
	if err != nil {
		return nil, err
	}
	rx, err := open(referencePath)
	if err != nil {
		return nil, err
	}
	db.ref = rx
	db.refStmt = sq.NewStmtCache(rx.DB)
	return db, nil
}

func open(path string) (*sqlx.DB, error) {
	sx, err := sqlx.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("sqlitedb: open %s: %w", path, err)
	}
	// sqlite3 does not multiplex writers; serialize at the connection
	// pool level.
	sx.SetMaxOpenConns(1)

	if err := runMigrations(sx.DB); err != nil {
		sx.Close()
		return nil, err
	}
	return sx, nil
}

// Close releases the underlying connections.
func (db *DB) Close() error {
	var firstErr error
	if db.ref != nil {
		if err := db.ref.Close(); err != nil {
			firstErr = err
		}
	}
	if err := db.sqlx.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// ProbeInit opens a read-only probe on tier. Returns an error if the
// tier is not Solved, matching dbapi.DbApi's contract.
func (db *DB) ProbeInit(tier tiertype.Tier) (dbapi.Probe, error) {
	status, err := db.TierStatus(tier)
	if err != nil {
		return nil, err
	}
	if status != dbapi.Solved {
		return nil, fmt.Errorf("sqlitedb: tier %d is %s, not solved", tier, status)
	}
	return &probe{stmt: db.stmt, tier: tier}, nil
}

// ReferenceProbeInit opens a probe on the reference mirror.
func (db *DB) ReferenceProbeInit(tier tiertype.Tier) (dbapi.Probe, error) {
	if db.ref == nil {
		return nil, fmt.Errorf("sqlitedb: no reference database configured")
	}
	var size int64
	err := sq.Select("size").From("tier_size").Where(sq.Eq{"tier": int64(tier)}).
		RunWith(db.ref).QueryRow().Scan(&size)
	if err != nil {
		return nil, fmt.Errorf("sqlitedb: reference database has no tier %d: %w", tier, err)
	}
	return &probe{stmt: db.refStmt, tier: tier}, nil
}

// TierStatus reports Missing when tier has no size row or no
// tier_position rows, and Solved otherwise. Both kinds of row are
// written by solvingTier.Flush in one transaction, so a tier whose
// flushed table held no decided position reads back as Missing.
func (db *DB) TierStatus(tier tiertype.Tier) (dbapi.Status, error) {
	var size int64
	err := sq.Select("size").From("tier_size").Where(sq.Eq{"tier": int64(tier)}).
		RunWith(db.sqlx).QueryRow().Scan(&size)
	if err == sql.ErrNoRows {
		return dbapi.Missing, nil
	}
	if err != nil {
		return dbapi.CheckError, fmt.Errorf("sqlitedb: TierStatus: %w", err)
	}

	var count int64
	err = sq.Select("count(*)").From("tier_position").Where(sq.Eq{"tier": int64(tier)}).
		RunWith(db.sqlx).QueryRow().Scan(&count)
	if err != nil {
		return dbapi.CheckError, fmt.Errorf("sqlitedb: TierStatus count: %w", err)
	}

	if count == 0 {
		return dbapi.Missing, nil
	}
	return dbapi.Solved, nil
}

// CreateSolvingTier allocates an in-memory table for tier, to be
// populated via SetValue/SetRemoteness and materialized by Flush.
func (db *DB) CreateSolvingTier(tier tiertype.Tier, size int64) (dbapi.SolvingTier, error) {
	if size < 0 {
		return nil, fmt.Errorf("sqlitedb: negative tier size %d", size)
	}
	values := make([]tiertype.Value, size)
	remotenesses := make([]tiertype.Remoteness, size)
	return &solvingTier{
		db:           db,
		tier:         tier,
		values:       values,
		remotenesses: remotenesses,
	}, nil
}

// ReferenceSolvingTier allocates a solving tier against the reference
// mirror rather than the primary database, for tooling that
// populates a trusted reference corpus ahead of compare mode.
func (db *DB) ReferenceSolvingTier(tier tiertype.Tier, size int64) (dbapi.SolvingTier, error) {
	if db.ref == nil {
		return nil, fmt.Errorf("sqlitedb: no reference database configured")
	}
	if size < 0 {
		return nil, fmt.Errorf("sqlitedb: negative tier size %d", size)
	}
	return &solvingTier{
		db:           db,
		useRef:       true,
		tier:         tier,
		values:       make([]tiertype.Value, size),
		remotenesses: make([]tiertype.Remoteness, size),
	}, nil
}

// LoadTier reads an entire already-solved tier into RAM for the
// value-iteration solver.
func (db *DB) LoadTier(tier tiertype.Tier) (dbapi.LoadedTier, error) {
	var size int64
	err := sq.Select("size").From("tier_size").Where(sq.Eq{"tier": int64(tier)}).
		RunWith(db.sqlx).QueryRow().Scan(&size)
	if err != nil {
		return nil, fmt.Errorf("sqlitedb: LoadTier: tier %d has no recorded size: %w", tier, err)
	}

	values := make([]tiertype.Value, size)
	remotenesses := make([]tiertype.Remoteness, size)

	rows, err := sq.Select("position", "value", "remoteness").From("tier_position").
		Where(sq.Eq{"tier": int64(tier)}).RunWith(db.sqlx).Query()
	if err != nil {
		return nil, fmt.Errorf("sqlitedb: LoadTier query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pos int64
		var v int8
		var r int32
		if err := rows.Scan(&pos, &v, &r); err != nil {
			return nil, fmt.Errorf("sqlitedb: LoadTier scan: %w", err)
		}
		if pos < 0 || pos >= size {
			continue
		}
		values[pos] = tiertype.Value(v)
		remotenesses[pos] = tiertype.Remoteness(r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &loadedTier{values: values, remotenesses: remotenesses}, nil
}
