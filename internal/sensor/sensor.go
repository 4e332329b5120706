// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sensor

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Observer is notified every time a Sensor's value is set.
type Observer interface {
	Update(s *Sensor)
}

// Sensor holds a typed, timestamped value plus a set of observers. All
// mutation goes through Set/SetValue/SetFormatted; Read/ReadFormatted
// never block on the notification path.
type Sensor struct {
	name        string
	description string
	units       string
	kind        Type
	params      []string

	minInt, maxInt     int64
	minFloat, maxFloat float64
	discreteValues     []string

	// notifyMu serializes whole set-then-notify rounds: the next Set
	// may not begin until the previous one has finished delivering to
	// its observer snapshot.
	notifyMu sync.Mutex

	// mu guards value/status/timestamp and the observer set.
	mu        sync.Mutex
	value     any
	status    Status
	timestamp float64
	observers map[Observer]struct{}
}

// New constructs a Sensor of the given kind. params is interpreted per
// kind: for Integer/Float it is a two-element [min, max] pair; for
// Discrete it is the non-empty set of allowed values; it is ignored for
// Boolean, LRU, String, and Timestamp. default, if non-nil, must satisfy
// the type's domain and becomes the sensor's initial value; otherwise
// the initial value is the type's natural zero (params[0] for numeric
// and discrete types).
func New(kind Type, name, description, units string, params []string, def any) (*Sensor, error) {
	s := &Sensor{
		name:        name,
		description: description,
		units:       units,
		kind:        kind,
		params:      append([]string(nil), params...),
		status:      Unknown,
		timestamp:   nowSeconds(),
		observers:   make(map[Observer]struct{}),
	}

	switch kind {
	case Integer:
		min, max, err := parseIntRange(params)
		if err != nil {
			return nil, err
		}
		s.minInt, s.maxInt = min, max
		s.value = min
	case Float:
		min, max, err := parseFloatRange(params)
		if err != nil {
			return nil, err
		}
		s.minFloat, s.maxFloat = min, max
		s.value = min
	case Discrete:
		if len(params) == 0 {
			return nil, fmt.Errorf("sensor: discrete sensor %q needs at least one allowed value", name)
		}
		s.discreteValues = append([]string(nil), params...)
		s.value = params[0]
	case Boolean:
		s.value = false
	case LRU:
		s.value = "nominal"
	case String:
		s.value = ""
	case Timestamp:
		s.value = 0.0
	default:
		return nil, fmt.Errorf("sensor: unknown sensor type %d", kind)
	}

	if def != nil {
		if err := s.check(def); err != nil {
			return nil, fmt.Errorf("sensor: default value for %q: %w", name, err)
		}
		s.value = def
	}

	return s, nil
}

func parseIntRange(params []string) (int64, int64, error) {
	if len(params) != 2 {
		return 0, 0, fmt.Errorf("sensor: integer sensor needs [min, max] params, got %v", params)
	}
	min, err := strconv.ParseInt(params[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("sensor: invalid integer min %q", params[0])
	}
	max, err := strconv.ParseInt(params[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("sensor: invalid integer max %q", params[1])
	}
	if min > max {
		return 0, 0, fmt.Errorf("sensor: integer sensor min %d exceeds max %d", min, max)
	}
	return min, max, nil
}

func parseFloatRange(params []string) (float64, float64, error) {
	if len(params) != 2 {
		return 0, 0, fmt.Errorf("sensor: float sensor needs [min, max] params, got %v", params)
	}
	min, err := strconv.ParseFloat(params[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("sensor: invalid float min %q", params[0])
	}
	max, err := strconv.ParseFloat(params[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("sensor: invalid float max %q", params[1])
	}
	if min > max {
		return 0, 0, fmt.Errorf("sensor: float sensor min %g exceeds max %g", min, max)
	}
	return min, max, nil
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// Name, Description, Units, Kind, and Params expose the sensor's static
// metadata, as listed by #sensor-list.
func (s *Sensor) Name() string        { return s.name }
func (s *Sensor) Description() string { return s.description }
func (s *Sensor) Units() string       { return s.units }
func (s *Sensor) Kind() Type          { return s.kind }
func (s *Sensor) Params() []string    { return append([]string(nil), s.params...) }

// check reports whether value satisfies this sensor's type and params.
func (s *Sensor) check(value any) error {
	switch s.kind {
	case Integer:
		v, ok := value.(int64)
		if !ok {
			return fmt.Errorf("sensor: expected int64, got %T", value)
		}
		if v < s.minInt || v > s.maxInt {
			return fmt.Errorf("sensor: value %d outside range [%d, %d]", v, s.minInt, s.maxInt)
		}
	case Float:
		v, ok := value.(float64)
		if !ok {
			return fmt.Errorf("sensor: expected float64, got %T", value)
		}
		if v < s.minFloat || v > s.maxFloat {
			return fmt.Errorf("sensor: value %g outside range [%g, %g]", v, s.minFloat, s.maxFloat)
		}
	case Boolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("sensor: expected bool, got %T", value)
		}
	case LRU:
		v, ok := value.(string)
		if !ok || !isLRUValue(v) {
			return fmt.Errorf("sensor: invalid lru value %v", value)
		}
	case Discrete:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("sensor: expected string, got %T", value)
		}
		found := false
		for _, allowed := range s.discreteValues {
			if allowed == v {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("sensor: value %q not in allowed set %v", v, s.discreteValues)
		}
	case String:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("sensor: expected string, got %T", value)
		}
	case Timestamp:
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("sensor: expected float64 seconds, got %T", value)
		}
	}
	return nil
}

// Attach registers o as an observer. Idempotent.
func (s *Sensor) Attach(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers[o] = struct{}{}
}

// Detach deregisters o. Idempotent.
func (s *Sensor) Detach(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.observers, o)
}

// Set installs (timestamp, status, value) and notifies every currently
// attached observer exactly once, against a snapshot taken before the
// round begins. Set does not validate value against the sensor's type
// or params; callers that need validation use SetValue.
func (s *Sensor) Set(timestamp float64, status Status, value any) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.timestamp, s.status, s.value = timestamp, status, value
	snapshot := make([]Observer, 0, len(s.observers))
	for o := range s.observers {
		snapshot = append(snapshot, o)
	}
	s.mu.Unlock()

	for _, o := range snapshot {
		o.Update(s)
	}
}

// SetValue checks value against the sensor's type and params, then sets
// it with the given status at the given timestamp (now, if timestamp is
// nil).
func (s *Sensor) SetValue(value any, status Status, timestamp *float64) error {
	if err := s.check(value); err != nil {
		return err
	}
	ts := nowSeconds()
	if timestamp != nil {
		ts = *timestamp
	}
	s.Set(ts, status, value)
	return nil
}

// SetFormatted decodes a KATCP-formatted (timestamp, status, value)
// triple, exactly as it would arrive in a #sensor-status inform or a
// ?sensor-value reply used to drive this sensor, and installs it.
func (s *Sensor) SetFormatted(rawTimestamp, rawStatus, rawValue string) error {
	tsType := Timestamp
	tsValue, err := tsType.unpack(rawTimestamp)
	if err != nil {
		return err
	}
	status, err := ParseStatus(rawStatus)
	if err != nil {
		return err
	}
	value, err := s.kind.unpack(rawValue)
	if err != nil {
		return err
	}
	s.Set(tsValue.(float64), status, value)
	return nil
}

// Read returns the sensor's current (timestamp, status, value) triple.
func (s *Sensor) Read() (float64, Status, any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timestamp, s.status, s.value
}

// Value returns only the current value, discarding timestamp and status.
func (s *Sensor) Value() any {
	_, _, v := s.Read()
	return v
}

// ReadFormatted returns the canonical #sensor-status/#sensor-value
// inform payload: (timestamp-ms string, status name, packed value).
func (s *Sensor) ReadFormatted() (string, string, string, error) {
	ts, status, value := s.Read()
	tsMS, err := Timestamp.pack(ts)
	if err != nil {
		return "", "", "", err
	}
	packed, err := s.kind.pack(value)
	if err != nil {
		return "", "", "", err
	}
	return tsMS, status.String(), packed, nil
}
