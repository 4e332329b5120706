// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sampling implements the per-(client,sensor) emission policies
// that decide when a #sensor-status inform is pushed to a client, and
// the reactor that drives the periodic ones.
package sampling

import (
	"strconv"

	"github.com/ClusterCockpit/katcpd/internal/metrics"
	"github.com/ClusterCockpit/katcpd/internal/sensor"
	"github.com/ClusterCockpit/katcpd/internal/wire"
)

// Emit delivers a fully formed message to the strategy's owning client.
// It is bound to that client's writer at construction time.
type Emit func(msg *wire.Message)

// Mirror optionally re-publishes every #sensor-status emission to an
// external sink (internal/eventbus), independent of which client (or
// how many clients) actually hold a strategy on the sensor.
type Mirror interface {
	PublishSensorStatus(name, status, value string, ts float64)
}

var mirror Mirror

// SetMirror installs the package-wide sensor-status mirror. Called once
// at server wiring time, the same way internal/corelog.Hook lets a
// single registration observe every subsequent call site rather than
// threading an extra parameter through every strategy constructor.
func SetMirror(m Mirror) { mirror = m }

// Strategy is the common shape shared by every sampling policy. For
// Auto, Event and Differential, Attach and Detach register/deregister
// the strategy as a sensor.Observer; None and Period register nothing.
// Update is the sensor.Observer callback. Periodic is only meaningful
// for the Period strategy -- every other kind returns (0, false) and is
// never scheduled by the Reactor.
type Strategy interface {
	sensor.Observer

	Attach()
	Detach()
	Periodic(now float64) (next float64, scheduled bool)

	// Formatted returns the wire name of the strategy kind and its
	// formatted params, as reported by ?sensor-sampling with no
	// strategy argument.
	Formatted() (kind string, params []string)
}

func emitStatus(emit Emit, sen *sensor.Sensor) {
	tsMS, status, value, err := sen.ReadFormatted()
	if err != nil {
		return
	}
	metrics.SensorUpdatesTotal.WithLabelValues(sen.Name()).Inc()
	emit(wire.NewInform("sensor-status", tsMS, "1", sen.Name(), status, value))
	if mirror != nil {
		ts, _ := strconv.ParseFloat(tsMS, 64)
		mirror.PublishSensorStatus(sen.Name(), status, value, ts/1000.0)
	}
}

// None is the strategy installed implicitly when no other strategy has
// ever been set for a (client, sensor) pair. It never emits.
type None struct {
	sen *sensor.Sensor
}

func NewNone(sen *sensor.Sensor) *None { return &None{sen: sen} }

func (n *None) Attach()                              {}
func (n *None) Detach()                              {}
func (n *None) Update(s *sensor.Sensor)               {}
func (n *None) Periodic(now float64) (float64, bool) { return 0, false }
func (n *None) Formatted() (string, []string)        { return "none", nil }

// Auto emits once on attach and on every subsequent update.
type Auto struct {
	emit Emit
	sen  *sensor.Sensor
}

func NewAuto(emit Emit, sen *sensor.Sensor) *Auto { return &Auto{emit: emit, sen: sen} }

func (a *Auto) Attach() {
	a.sen.Attach(a)
	emitStatus(a.emit, a.sen)
}
func (a *Auto) Detach()                             { a.sen.Detach(a) }
func (a *Auto) Update(s *sensor.Sensor)              { emitStatus(a.emit, a.sen) }
func (a *Auto) Periodic(now float64) (float64, bool) { return 0, false }
func (a *Auto) Formatted() (string, []string)        { return "auto", nil }

// Event emits once on attach and on every subsequent update. Per the
// protocol's emission table it is observably identical to Auto; the two
// kinds are kept distinct because the wire vocabulary distinguishes
// them and a client may legitimately ask for either by name.
type Event struct {
	emit Emit
	sen  *sensor.Sensor
}

func NewEvent(emit Emit, sen *sensor.Sensor) *Event { return &Event{emit: emit, sen: sen} }

func (e *Event) Attach() {
	e.sen.Attach(e)
	emitStatus(e.emit, e.sen)
}
func (e *Event) Detach()                             { e.sen.Detach(e) }
func (e *Event) Update(s *sensor.Sensor)              { emitStatus(e.emit, e.sen) }
func (e *Event) Periodic(now float64) (float64, bool) { return 0, false }
func (e *Event) Formatted() (string, []string)        { return "event", nil }
