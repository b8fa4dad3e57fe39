// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fsdb

import (
	"fmt"

	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

type solvingTier struct {
	db           *DB
	useRef       bool
	tier         tiertype.Tier
	values       []tiertype.Value
	remotenesses []tiertype.Remoteness
}

func (st *solvingTier) SetValue(pos tiertype.Position, v tiertype.Value) error {
	if pos < 0 || int64(pos) >= int64(len(st.values)) {
		return fmt.Errorf("fsdb: SetValue: position %d out of range", pos)
	}
	st.values[pos] = v
	return nil
}

func (st *solvingTier) SetRemoteness(pos tiertype.Position, r tiertype.Remoteness) error {
	if pos < 0 || int64(pos) >= int64(len(st.remotenesses)) {
		return fmt.Errorf("fsdb: SetRemoteness: position %d out of range", pos)
	}
	st.remotenesses[pos] = r
	return nil
}

// Flush writes the whole table as one gzip-compressed file. fsdb
// serializes writes the same way sqlitedb does (one writer at a time
// per database root), since two tiers sharing a bucket directory
// could otherwise race on MkdirAll.
func (st *solvingTier) Flush() error {
	st.db.mu.Lock()
	defer st.db.mu.Unlock()

	root := st.db.root
	if st.useRef {
		root = st.db.refRoot
	}
	return writeTable(root, st.tier, st.values, st.remotenesses)
}

func (st *solvingTier) Free() error {
	st.values = nil
	st.remotenesses = nil
	return nil
}
