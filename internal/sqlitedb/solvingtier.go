// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sqlitedb

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

// solvingTier is the in-memory, write-only handle dbapi.SolvingTier
// describes: SetValue/SetRemoteness write into disjoint slice cells
// (the solver guarantees no two goroutines write the same position,
// so no synchronization is needed), and Flush batches every written
// position into tier_position inside one transaction.
type solvingTier struct {
	db           *DB
	useRef       bool
	tier         tiertype.Tier
	values       []tiertype.Value
	remotenesses []tiertype.Remoteness
}

func (st *solvingTier) SetValue(pos tiertype.Position, v tiertype.Value) error {
	if pos < 0 || int64(pos) >= int64(len(st.values)) {
		return fmt.Errorf("sqlitedb: SetValue: position %d out of range", pos)
	}
	st.values[pos] = v
	return nil
}

func (st *solvingTier) SetRemoteness(pos tiertype.Position, r tiertype.Remoteness) error {
	if pos < 0 || int64(pos) >= int64(len(st.remotenesses)) {
		return fmt.Errorf("sqlitedb: SetRemoteness: position %d out of range", pos)
	}
	st.remotenesses[pos] = r
	return nil
}

// flushBatch is the number of rows inserted per statement; keeps a
// single INSERT's placeholder count well under sqlite3's default
// SQLITE_MAX_VARIABLE_NUMBER.
const flushBatch = 500

// Flush materializes the table: a size row plus one row per position
// that was actually decided. Undecided is transient and must never
// appear in a flushed table.
func (st *solvingTier) Flush() error {
	st.db.mu.Lock()
	defer st.db.mu.Unlock()

	conn := st.db.sqlx
	if st.useRef {
		conn = st.db.ref
	}
	tx, err := conn.Beginx()
	if err != nil {
		return fmt.Errorf("sqlitedb: Flush: begin: %w", err)
	}

	if _, err := tx.Exec(`INSERT OR REPLACE INTO tier_size(tier, size) VALUES(?, ?)`,
		int64(st.tier), int64(len(st.values))); err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlitedb: Flush: tier_size: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM tier_position WHERE tier = ?`, int64(st.tier)); err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlitedb: Flush: clear: %w", err)
	}

	ins := sq.Insert("tier_position").Columns("tier", "position", "value", "remoteness")
	pending := 0
	flushBuilder := func() error {
		if pending == 0 {
			return nil
		}
		if _, err := ins.RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("sqlitedb: Flush: insert: %w", err)
		}
		ins = sq.Insert("tier_position").Columns("tier", "position", "value", "remoteness")
		pending = 0
		return nil
	}

	for pos := range st.values {
		if st.values[pos] == tiertype.Undecided {
			continue
		}
		ins = ins.Values(int64(st.tier), int64(pos), int8(st.values[pos]), int32(st.remotenesses[pos]))
		pending++
		if pending >= flushBatch {
			if err := flushBuilder(); err != nil {
				tx.Rollback()
				return err
			}
		}
	}
	if err := flushBuilder(); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitedb: Flush: commit: %w", err)
	}
	return nil
}

// Free releases the in-memory table. Flush already copied everything
// needed to disk, so this only drops references for GC.
func (st *solvingTier) Free() error {
	st.values = nil
	st.remotenesses = nil
	return nil
}
