// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sensor

import "fmt"

// Status is a sensor's health/validity indicator, independent of its
// type.
type Status int

const (
	Unknown Status = iota
	Nominal
	Warn
	Error
	Failure
)

var statusNames = [...]string{"unknown", "nominal", "warn", "error", "failure"}

func (s Status) String() string {
	if int(s) < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// ParseStatus parses a wire status name back into a Status.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("sensor: invalid status name %q", name)
}
