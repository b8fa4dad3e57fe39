// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shim

import (
	"context"

	"github.com/gamescrafters/tiersolver/pkg/nats"
)

// NATSTransport adapts pkg/nats.Client's request/reply call to the
// shim's Transport seam.
type NATSTransport struct {
	Client *nats.Client
}

// Request implements Transport.
func (t NATSTransport) Request(subject string, data []byte, ctx context.Context) ([]byte, error) {
	return t.Client.Request(subject, data, ctx)
}
