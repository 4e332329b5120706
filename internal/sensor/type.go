// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sensor implements typed, observable KATCP sensors: the value,
// status, and timestamp a server exposes under a name, plus the set of
// observers (sampling strategies) notified on every update.
package sensor

import (
	"fmt"
	"strconv"
)

// Type is the KATCP sensor type tag. Go has no tagged unions, so a
// Sensor carries one Type and stores its value in an interface{},
// checked by a type switch keyed on this field at construction, in
// SetValue, and in pack/unpack. Sensor.Set stores its value unchecked.
type Type int

const (
	Integer Type = iota
	Float
	Boolean
	LRU
	Discrete
	String
	Timestamp
)

func (t Type) String() string {
	switch t {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Boolean:
		return "boolean"
	case LRU:
		return "lru"
	case Discrete:
		return "discrete"
	case String:
		return "string"
	case Timestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// ParseType parses a wire type name as it appears in a #sensor-list
// inform back into a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "integer":
		return Integer, nil
	case "float":
		return Float, nil
	case "boolean":
		return Boolean, nil
	case "lru":
		return LRU, nil
	case "discrete":
		return Discrete, nil
	case "string":
		return String, nil
	case "timestamp":
		return Timestamp, nil
	default:
		return 0, fmt.Errorf("sensor: invalid sensor type string %q", s)
	}
}

// lruNames mirrors the original protocol's two permitted LRU values.
var lruNames = []string{"nominal", "error"}

func isLRUValue(s string) bool {
	for _, v := range lruNames {
		if v == s {
			return true
		}
	}
	return false
}

// pack renders value in its wire representation.
func (t Type) pack(value any) (string, error) {
	switch t {
	case Integer:
		v, ok := value.(int64)
		if !ok {
			return "", fmt.Errorf("sensor: expected int64 for integer sensor, got %T", value)
		}
		return strconv.FormatInt(v, 10), nil
	case Float:
		v, ok := value.(float64)
		if !ok {
			return "", fmt.Errorf("sensor: expected float64 for float sensor, got %T", value)
		}
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case Boolean:
		v, ok := value.(bool)
		if !ok {
			return "", fmt.Errorf("sensor: expected bool for boolean sensor, got %T", value)
		}
		if v {
			return "1", nil
		}
		return "0", nil
	case LRU, Discrete, String:
		v, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("sensor: expected string for %s sensor, got %T", t, value)
		}
		return v, nil
	case Timestamp:
		v, ok := value.(float64)
		if !ok {
			return "", fmt.Errorf("sensor: expected float64 seconds for timestamp sensor, got %T", value)
		}
		return strconv.FormatInt(int64(v*1000), 10), nil
	default:
		return "", fmt.Errorf("sensor: unknown sensor type %d", t)
	}
}

// unpack parses a wire token into the type's in-memory representation.
func (t Type) unpack(s string) (any, error) {
	switch t {
	case Integer:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sensor: invalid integer value %q", s)
		}
		return v, nil
	case Float:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("sensor: invalid float value %q", s)
		}
		return v, nil
	case Boolean:
		switch s {
		case "1":
			return true, nil
		case "0":
			return false, nil
		default:
			return nil, fmt.Errorf("sensor: invalid boolean value %q", s)
		}
	case LRU:
		if !isLRUValue(s) {
			return nil, fmt.Errorf("sensor: invalid lru value %q", s)
		}
		return s, nil
	case Discrete, String:
		return s, nil
	case Timestamp:
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sensor: invalid timestamp value %q", s)
		}
		return float64(ms) / 1000.0, nil
	default:
		return nil, fmt.Errorf("sensor: unknown sensor type %d", t)
	}
}
