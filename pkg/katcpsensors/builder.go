// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package katcpsensors is the setup-hook surface: a small, typed
// builder an embedder uses to populate a sensor.Registry before
// calling server.New, mirroring the role of the original protocol's
// DeviceServer.setup_sensors() override.
package katcpsensors

import (
	"fmt"
	"strconv"

	"github.com/ClusterCockpit/katcpd/internal/sensor"
)

// Builder accumulates sensors into a Registry. Construct one with
// NewBuilder; the zero value has no Registry and is not usable.
type Builder struct {
	reg  *sensor.Registry
	errs []error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{reg: sensor.NewRegistry()}
}

func (b *Builder) add(s *sensor.Sensor, err error) *Builder {
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	if err := b.reg.Add(s); err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Integer registers an INTEGER sensor with inclusive range [min, max]
// and initial value def.
func (b *Builder) Integer(name, description, units string, min, max, def int64) *Builder {
	s, err := sensor.New(sensor.Integer, name, description, units,
		[]string{strconv.FormatInt(min, 10), strconv.FormatInt(max, 10)}, def)
	return b.add(s, err)
}

// Float registers a FLOAT sensor with inclusive range [min, max] and
// initial value def.
func (b *Builder) Float(name, description, units string, min, max, def float64) *Builder {
	s, err := sensor.New(sensor.Float, name, description, units,
		[]string{strconv.FormatFloat(min, 'g', -1, 64), strconv.FormatFloat(max, 'g', -1, 64)}, def)
	return b.add(s, err)
}

// Boolean registers a BOOLEAN sensor with initial value def.
func (b *Builder) Boolean(name, description, units string, def bool) *Builder {
	s, err := sensor.New(sensor.Boolean, name, description, units, nil, def)
	return b.add(s, err)
}

// LRU registers an LRU sensor (permitted values "nominal"/"error")
// with initial value def.
func (b *Builder) LRU(name, description, units, def string) *Builder {
	s, err := sensor.New(sensor.LRU, name, description, units, nil, def)
	return b.add(s, err)
}

// Discrete registers a DISCRETE sensor whose value must be one of
// values, defaulting to def (which must itself be one of values, per
// the original's Sensor.discrete constructor).
func (b *Builder) Discrete(name, description, units string, values []string, def string) *Builder {
	if len(values) == 0 {
		b.errs = append(b.errs, fmt.Errorf("katcpsensors: discrete sensor %q needs at least one allowed value", name))
		return b
	}
	s, err := sensor.New(sensor.Discrete, name, description, units, values, def)
	return b.add(s, err)
}

// String registers a STRING sensor with initial value def.
func (b *Builder) String(name, description, units, def string) *Builder {
	s, err := sensor.New(sensor.String, name, description, units, nil, def)
	return b.add(s, err)
}

// Timestamp registers a TIMESTAMP sensor (in-memory seconds since the
// Unix epoch, as a float) with initial value def.
func (b *Builder) Timestamp(name, description, units string, def float64) *Builder {
	s, err := sensor.New(sensor.Timestamp, name, description, units, nil, def)
	return b.add(s, err)
}

// Build returns the populated Registry, or the first error encountered
// while constructing or registering a sensor.
func (b *Builder) Build() (*sensor.Registry, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	return b.reg, nil
}
