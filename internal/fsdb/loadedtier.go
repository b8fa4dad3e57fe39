// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fsdb

import "github.com/gamescrafters/tiersolver/pkg/tiertype"

type loadedTier struct {
	values       []tiertype.Value
	remotenesses []tiertype.Remoteness
}

func (lt *loadedTier) Value(pos tiertype.Position) tiertype.Value {
	if pos < 0 || int64(pos) >= int64(len(lt.values)) {
		return tiertype.Undecided
	}
	return lt.values[pos]
}

func (lt *loadedTier) Remoteness(pos tiertype.Position) tiertype.Remoteness {
	if pos < 0 || int64(pos) >= int64(len(lt.remotenesses)) {
		return 0
	}
	return lt.remotenesses[pos]
}

func (lt *loadedTier) Size() int64 { return int64(len(lt.values)) }

func (lt *loadedTier) Unload() error {
	lt.values = nil
	lt.remotenesses = nil
	return nil
}
