// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sqlitedb

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

// probe is a read-only handle over one tier's rows, safe for
// concurrent use by multiple solver worker goroutines through the
// shared squirrel statement cache (dbapi.DbApi requires concurrent
// Probes over the same tier).
type probe struct {
	stmt *sq.StmtCache
	tier tiertype.Tier
}

func (p *probe) row(pos tiertype.Position) (tiertype.Value, tiertype.Remoteness, error) {
	var v int8
	var r int32
	err := sq.Select("value", "remoteness").From("tier_position").
		Where(sq.Eq{"tier": int64(p.tier), "position": int64(pos)}).
		RunWith(p.stmt).QueryRow().Scan(&v, &r)
	if err == sql.ErrNoRows {
		// Illegal and non-canonical positions are never flushed; to a
		// probe they read back as Undecided, not as a failure.
		return tiertype.Undecided, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("sqlitedb: probe: %w", err)
	}
	return tiertype.Value(v), tiertype.Remoteness(r), nil
}

func (p *probe) Value(tp tiertype.TierPosition) (tiertype.Value, error) {
	v, _, err := p.row(tp.Position)
	return v, err
}

func (p *probe) Remoteness(tp tiertype.TierPosition) (tiertype.Remoteness, error) {
	_, r, err := p.row(tp.Position)
	return r, err
}

func (p *probe) Close() error { return nil }
