// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sampling

import (
	"errors"
	"strconv"
	"sync"

	"github.com/ClusterCockpit/katcpd/internal/sensor"
)

// Period emits on a fixed schedule, independent of sensor mutation. It
// ignores Update entirely; the Reactor drives it by calling Periodic,
// but Periodic itself only emits once the stored deadline has passed --
// the Reactor's own gocron tick rate is only approximately periodMS, so
// the deadline is what actually enforces the schedule.
type Period struct {
	emit     Emit
	sen      *sensor.Sensor
	periodMS int64

	mu   sync.Mutex
	next float64
}

func newPeriod(emit Emit, sen *sensor.Sensor, params []string) (*Period, error) {
	if len(params) != 1 {
		return nil, errors.New("Incorrect number of parameters.")
	}
	ms, err := strconv.ParseInt(params[0], 10, 64)
	if err != nil {
		return nil, errors.New("Invalid parameter.")
	}
	if ms <= 0 {
		return nil, errors.New("Invalid parameter.")
	}
	return &Period{emit: emit, sen: sen, periodMS: ms}, nil
}

// PeriodMS is the configured tick interval, exposed so the Reactor can
// schedule a job at the matching interval.
func (p *Period) PeriodMS() int64 { return p.periodMS }

// Attach arms the strategy without emitting; the next call to Periodic
// whose now has reached the (initially already-due) deadline fires the
// first emission.
func (p *Period) Attach() {
	p.mu.Lock()
	p.next = 0
	p.mu.Unlock()
}
func (p *Period) Detach()                {}
func (p *Period) Update(s *sensor.Sensor) {}

// Periodic is called by the Reactor on every tick of its gocron job,
// which only approximates periodMS. It only emits once now has reached
// the stored deadline, then reschedules for now+period; an early call
// (the Reactor ticking faster than periodMS, or a second call before
// the deadline) is a no-op.
func (p *Period) Periodic(now float64) (float64, bool) {
	p.mu.Lock()
	due := now >= p.next
	if due {
		p.next = now + float64(p.periodMS)/1000.0
	}
	next := p.next
	p.mu.Unlock()

	if due {
		emitStatus(p.emit, p.sen)
	}
	return next, true
}

func (p *Period) Formatted() (string, []string) {
	return "period", []string{strconv.FormatInt(p.periodMS, 10)}
}
