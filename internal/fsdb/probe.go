// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fsdb

import (
	"fmt"

	"github.com/gamescrafters/tiersolver/pkg/tiertype"
)

// probe holds one tier's decompressed table in memory. A tier table
// fits on disk at a few bytes per record, so reading the whole file
// per Probe is simple and, for the games this module targets, cheap.
type probe struct {
	values       []tiertype.Value
	remotenesses []tiertype.Remoteness
}

func (p *probe) Value(tp tiertype.TierPosition) (tiertype.Value, error) {
	if tp.Position < 0 || int64(tp.Position) >= int64(len(p.values)) {
		return tiertype.Undecided, fmt.Errorf("fsdb: probe: position %d out of range", tp.Position)
	}
	return p.values[tp.Position], nil
}

func (p *probe) Remoteness(tp tiertype.TierPosition) (tiertype.Remoteness, error) {
	if tp.Position < 0 || int64(tp.Position) >= int64(len(p.remotenesses)) {
		return 0, fmt.Errorf("fsdb: probe: position %d out of range", tp.Position)
	}
	return p.remotenesses[tp.Position], nil
}

func (p *probe) Close() error { return nil }
