// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fsdb is the file-backed dbapi.DbApi implementation: one
// gzip-compressed table file per tier, bucketed into tier/1000,
// tier%1000 subdirectories so a solve over many tiers does not dump
// thousands of files into one directory.
package fsdb

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gamescrafters/tiersolver/pkg/dbapi"
	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

// recordSize is the on-disk width of one position: 1 byte value, 4
// bytes remoteness (little-endian int32).
const recordSize = 5

// DB is a dbapi.DbApi rooted at a directory.
type DB struct {
	root    string
	refRoot string
	mu      sync.Mutex
}

// New roots a DB at dir, creating it if necessary.
func New(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("fsdb: mkdir %s: %w", dir, err)
	}
	return &DB{root: dir}, nil
}

// NewComparer roots a primary DB at dir and a reference mirror at
// refDir, for dbapi.Comparer / compare mode.
func NewComparer(dir, refDir string) (*DB, error) {
	db, err := New(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(refDir, 0o755); err != nil {
		return nil, fmt.Errorf("fsdb: mkdir %s: %w", refDir, err)
	}
	db.refRoot = refDir
	return db, nil
}

// directory buckets tiers thousand-way across two directory levels.
func directory(root string, tier tiertype.Tier) string {
	lvl1 := strconv.FormatInt(int64(tier)/1000, 10)
	lvl2 := fmt.Sprintf("%03d", int64(tier)%1000)
	return filepath.Join(root, lvl1, lvl2)
}

func tableFile(root string, tier tiertype.Tier) string {
	return filepath.Join(directory(root, tier), "positions.bin.gz")
}

func writeTable(root string, tier tiertype.Tier, values []tiertype.Value, remotenesses []tiertype.Remoteness) error {
	dir := directory(root, tier)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("fsdb: mkdir %s: %w", dir, err)
	}

	f, err := os.Create(tableFile(root, tier))
	if err != nil {
		return fmt.Errorf("fsdb: create: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	w := bufio.NewWriter(gz)

	var header [8]byte
	binary.LittleEndian.PutUint64(header[:], uint64(len(values)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("fsdb: write header: %w", err)
	}

	var rec [recordSize]byte
	for i := range values {
		rec[0] = byte(int8(values[i]))
		binary.LittleEndian.PutUint32(rec[1:], uint32(int32(remotenesses[i])))
		if _, err := w.Write(rec[:]); err != nil {
			return fmt.Errorf("fsdb: write record %d: %w", i, err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("fsdb: flush: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("fsdb: gzip close: %w", err)
	}
	return nil
}

func readTable(root string, tier tiertype.Tier) ([]tiertype.Value, []tiertype.Remoteness, error) {
	f, err := os.Open(tableFile(root, tier))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, nil, fmt.Errorf("fsdb: gzip reader: %w", err)
	}
	defer gz.Close()
	r := bufio.NewReader(gz)

	var header [8]byte
	if _, err := readFull(r, header[:]); err != nil {
		return nil, nil, fmt.Errorf("fsdb: read header: %w", err)
	}
	size := binary.LittleEndian.Uint64(header[:])

	values := make([]tiertype.Value, size)
	remotenesses := make([]tiertype.Remoteness, size)
	var rec [recordSize]byte
	for i := uint64(0); i < size; i++ {
		if _, err := readFull(r, rec[:]); err != nil {
			return nil, nil, fmt.Errorf("fsdb: read record %d: %w", i, err)
		}
		values[i] = tiertype.Value(int8(rec[0]))
		remotenesses[i] = tiertype.Remoteness(int32(binary.LittleEndian.Uint32(rec[1:])))
	}
	return values, remotenesses, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		k, err := r.Read(buf[n:])
		n += k
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// Close is a no-op: fsdb holds no open file handles between calls.
// It exists so callers can treat internal/fsdb.DB and
// internal/sqlitedb.DB uniformly through an io.Closer assertion.
func (db *DB) Close() error { return nil }

// TierStatus reports Missing when no table file exists, Corrupted
// when the file exists but cannot be decoded, Solved otherwise.
func (db *DB) TierStatus(tier tiertype.Tier) (dbapi.Status, error) {
	if _, err := os.Stat(tableFile(db.root, tier)); err != nil {
		if os.IsNotExist(err) {
			return dbapi.Missing, nil
		}
		return dbapi.CheckError, err
	}
	if _, _, err := readTable(db.root, tier); err != nil {
		return dbapi.Corrupted, nil
	}
	return dbapi.Solved, nil
}

// ProbeInit opens a read-only probe on tier.
func (db *DB) ProbeInit(tier tiertype.Tier) (dbapi.Probe, error) {
	values, remotenesses, err := readTable(db.root, tier)
	if err != nil {
		return nil, fmt.Errorf("fsdb: ProbeInit: %w", err)
	}
	return &probe{values: values, remotenesses: remotenesses}, nil
}

// ReferenceProbeInit opens a probe on the reference mirror.
func (db *DB) ReferenceProbeInit(tier tiertype.Tier) (dbapi.Probe, error) {
	if db.refRoot == "" {
		return nil, fmt.Errorf("fsdb: no reference database configured")
	}
	values, remotenesses, err := readTable(db.refRoot, tier)
	if err != nil {
		return nil, fmt.Errorf("fsdb: ReferenceProbeInit: %w", err)
	}
	return &probe{values: values, remotenesses: remotenesses}, nil
}

// CreateSolvingTier allocates an in-memory table for tier.
func (db *DB) CreateSolvingTier(tier tiertype.Tier, size int64) (dbapi.SolvingTier, error) {
	if size < 0 {
		return nil, fmt.Errorf("fsdb: negative tier size %d", size)
	}
	return &solvingTier{
		db:           db,
		tier:         tier,
		values:       make([]tiertype.Value, size),
		remotenesses: make([]tiertype.Remoteness, size),
	}, nil
}

// ReferenceSolvingTier allocates a solving tier against the reference
// mirror, for tooling that populates a trusted reference corpus.
func (db *DB) ReferenceSolvingTier(tier tiertype.Tier, size int64) (dbapi.SolvingTier, error) {
	if db.refRoot == "" {
		return nil, fmt.Errorf("fsdb: no reference database configured")
	}
	if size < 0 {
		return nil, fmt.Errorf("fsdb: negative tier size %d", size)
	}
	return &solvingTier{
		db:           db,
		useRef:       true,
		tier:         tier,
		values:       make([]tiertype.Value, size),
		remotenesses: make([]tiertype.Remoteness, size),
	}, nil
}

// LoadTier reads an entire already-solved tier into RAM.
func (db *DB) LoadTier(tier tiertype.Tier) (dbapi.LoadedTier, error) {
	values, remotenesses, err := readTable(db.root, tier)
	if err != nil {
		return nil, fmt.Errorf("fsdb: LoadTier: %w", err)
	}
	return &loadedTier{values: values, remotenesses: remotenesses}, nil
}
