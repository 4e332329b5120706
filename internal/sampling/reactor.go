// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sampling

import (
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/ClusterCockpit/katcpd/internal/metrics"
)

// nowSeconds mirrors the in-memory timestamp convention used by
// internal/sensor: seconds since the Unix epoch as a float.
func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// Reactor hosts every currently armed strategy and drives the periodic
// ones. Where the original design calls for a single hand-rolled
// deadline loop, this is realized as one gocron job per Period
// strategy -- gocron already solves "wake me up every N and let me
// cancel early", which is exactly the reactor's job, grounded on the
// teacher's own scheduler wiring in its background task runner.
type Reactor struct {
	scheduler gocron.Scheduler

	mu   sync.Mutex
	jobs map[Strategy]uuid.UUID
}

// NewReactor creates and starts a Reactor. Call Stop to shut it down.
func NewReactor() (*Reactor, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	r := &Reactor{scheduler: s, jobs: make(map[Strategy]uuid.UUID)}
	r.scheduler.Start()
	return r, nil
}

// AddStrategy attaches s to its sensor and, if s exposes a fixed tick
// period, schedules a recurring job that calls its Periodic method.
func (r *Reactor) AddStrategy(s Strategy) error {
	s.Attach()
	metrics.StrategiesArmed.Inc()

	period, ok := s.(*Period)
	if !ok {
		return nil
	}

	job, err := r.scheduler.NewJob(
		gocron.DurationJob(time.Duration(period.PeriodMS())*time.Millisecond),
		gocron.NewTask(func() {
			period.Periodic(nowSeconds())
		}),
	)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.jobs[s] = job.ID()
	r.mu.Unlock()
	return nil
}

// RemoveStrategy detaches s and cancels its reactor job, if any.
func (r *Reactor) RemoveStrategy(s Strategy) {
	s.Detach()
	metrics.StrategiesArmed.Dec()

	r.mu.Lock()
	id, scheduled := r.jobs[s]
	delete(r.jobs, s)
	r.mu.Unlock()

	if scheduled {
		_ = r.scheduler.RemoveJob(id)
	}
}

// Stop shuts the reactor's scheduler down, cancelling every outstanding
// job.
func (r *Reactor) Stop() error {
	return r.scheduler.Shutdown()
}
