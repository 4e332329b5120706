// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntSensor(t *testing.T) *Sensor {
	t.Helper()
	s, err := New(Integer, "an.int", "an integer sensor", "", []string{"-4", "3"}, int64(3))
	require.NoError(t, err)
	return s
}

func TestIntegerSensorRangeCheck(t *testing.T) {
	s := newIntSensor(t)

	err := s.SetValue(int64(4), Nominal, nil)
	assert.Error(t, err)

	err = s.SetValue(int64(3), Nominal, nil)
	assert.NoError(t, err)
	_, status, value := s.Read()
	assert.Equal(t, Nominal, status)
	assert.Equal(t, int64(3), value)
}

type countingObserver struct {
	updates int
}

func (o *countingObserver) Update(s *Sensor) { o.updates++ }

func TestObserverReceivesOneUpdatePerSet(t *testing.T) {
	s := newIntSensor(t)
	obs := &countingObserver{}

	s.Attach(obs)
	require.NoError(t, s.SetValue(int64(1), Nominal, nil))
	require.NoError(t, s.SetValue(int64(2), Nominal, nil))
	assert.Equal(t, 2, obs.updates)

	s.Detach(obs)
	require.NoError(t, s.SetValue(int64(3), Nominal, nil))
	assert.Equal(t, 2, obs.updates, "detached observer must not see further updates")
}

func TestObserverAttachDuringNotifyAffectsOnlySubsequentRounds(t *testing.T) {
	s := newIntSensor(t)
	second := &countingObserver{}
	first := attachFunc(func(sn *Sensor) {
		s.Attach(second)
	})

	s.Attach(first)
	require.NoError(t, s.SetValue(int64(1), Nominal, nil))
	assert.Equal(t, 0, second.updates, "attaching mid-round must not affect the current round")

	require.NoError(t, s.SetValue(int64(2), Nominal, nil))
	assert.Equal(t, 1, second.updates)
}

type attachFunc func(*Sensor)

func (f attachFunc) Update(s *Sensor) { f(s) }

func TestReadFormattedEncodesTimestampAsMilliseconds(t *testing.T) {
	s := newIntSensor(t)
	require.NoError(t, s.SetValue(int64(1), Nominal, floatPtr(12.345)))
	tsMS, status, value, err := s.ReadFormatted()
	require.NoError(t, err)
	assert.Equal(t, "12345", tsMS)
	assert.Equal(t, "nominal", status)
	assert.Equal(t, "1", value)
}

func floatPtr(f float64) *float64 { return &f }

func TestDiscreteSensorValidatesAllowedValues(t *testing.T) {
	s, err := New(Discrete, "mode", "operating mode", "", []string{"idle", "running", "fault"}, "idle")
	require.NoError(t, err)

	assert.Error(t, s.SetValue("bogus", Nominal, nil))
	assert.NoError(t, s.SetValue("running", Nominal, nil))
}

func TestRegistryListsInLexicographicOrder(t *testing.T) {
	r := NewRegistry()
	b, _ := New(Boolean, "b.sensor", "", "", nil, nil)
	a, _ := New(Boolean, "a.sensor", "", "", nil, nil)
	require.NoError(t, r.Add(b))
	require.NoError(t, r.Add(a))

	assert.Equal(t, []string{"a.sensor", "b.sensor"}, r.Names())
}
