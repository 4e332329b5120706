// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sampling

import (
	"errors"

	"github.com/ClusterCockpit/katcpd/internal/sensor"
)

// ErrUnknownStrategy is returned by Construct when kind names no known
// sampling strategy.
var ErrUnknownStrategy = errors.New("Unknown strategy name.")

// Construct builds the named strategy kind, validating params against
// the target sensor. It never attaches the result; the caller (normally
// the sensor-sampling request handler, via the Reactor) does that.
func Construct(kind string, emit Emit, sen *sensor.Sensor, params ...string) (Strategy, error) {
	switch kind {
	case "none":
		if len(params) != 0 {
			return nil, errors.New("Incorrect number of parameters.")
		}
		return NewNone(sen), nil
	case "auto":
		if len(params) != 0 {
			return nil, errors.New("Incorrect number of parameters.")
		}
		return NewAuto(emit, sen), nil
	case "event":
		if len(params) != 0 {
			return nil, errors.New("Incorrect number of parameters.")
		}
		return NewEvent(emit, sen), nil
	case "differential":
		return newDifferential(emit, sen, params)
	case "period":
		return newPeriod(emit, sen, params)
	default:
		return nil, ErrUnknownStrategy
	}
}
