// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sampling

import (
	"errors"
	"math"
	"strconv"
	"sync"

	"github.com/ClusterCockpit/katcpd/internal/sensor"
)

// Differential emits once on attach, recording the emitted value as
// last. Thereafter it emits whenever the new value differs from last by
// at least threshold, and records the new value as last when it does.
type Differential struct {
	emit      Emit
	sen       *sensor.Sensor
	threshold float64
	isInt     bool

	mu   sync.Mutex
	last float64
	init bool
}

// newDifferential parses threshold against the sensor's type: integer
// sensors require an integer threshold, float sensors a float one; both
// require threshold >= 0 and only apply to numeric sensor kinds.
func newDifferential(emit Emit, sen *sensor.Sensor, params []string) (*Differential, error) {
	if len(params) != 1 {
		return nil, errors.New("Incorrect number of parameters.")
	}
	var threshold float64
	var isInt bool
	switch sen.Kind() {
	case sensor.Integer:
		v, err := strconv.ParseInt(params[0], 10, 64)
		if err != nil {
			return nil, errors.New("Invalid parameter.")
		}
		threshold = float64(v)
		isInt = true
	case sensor.Float:
		v, err := strconv.ParseFloat(params[0], 64)
		if err != nil {
			return nil, errors.New("Invalid parameter.")
		}
		threshold = v
	default:
		return nil, errors.New("Differential strategy only valid for numeric sensors.")
	}
	if threshold < 0 {
		return nil, errors.New("Invalid parameter.")
	}
	return &Differential{emit: emit, sen: sen, threshold: threshold, isInt: isInt}, nil
}

func (d *Differential) numericValue() float64 {
	switch v := d.sen.Value().(type) {
	case int64:
		return float64(v)
	case float64:
		return v
	default:
		return 0
	}
}

func (d *Differential) Attach() {
	d.sen.Attach(d)
	d.mu.Lock()
	d.last = d.numericValue()
	d.init = true
	d.mu.Unlock()
	emitStatus(d.emit, d.sen)
}

func (d *Differential) Detach() { d.sen.Detach(d) }

func (d *Differential) Update(s *sensor.Sensor) {
	current := d.numericValue()

	d.mu.Lock()
	delta := math.Abs(current - d.last)
	shouldEmit := delta >= d.threshold
	if shouldEmit {
		d.last = current
	}
	d.mu.Unlock()

	if shouldEmit {
		emitStatus(d.emit, d.sen)
	}
}

func (d *Differential) Periodic(now float64) (float64, bool) { return 0, false }

func (d *Differential) Formatted() (string, []string) {
	if d.isInt {
		return "differential", []string{strconv.FormatInt(int64(d.threshold), 10)}
	}
	return "differential", []string{strconv.FormatFloat(d.threshold, 'g', -1, 64)}
}
