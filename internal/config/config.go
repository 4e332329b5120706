// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads and validates the server's JSON configuration.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ClusterCockpit/katcpd/internal/eventbus"
)

// Keys holds the effective configuration, populated with defaults and
// optionally overridden by Init.
var Keys = Config{
	Addr:             ":1235",
	IfaceName:        "katcpd",
	IfaceVersion:     "1.0",
	BuildName:        "katcpd",
	BuildVersion:     "1.0",
	LogLevel:         "warn",
	RestartQueueSize: 0,
	MetricsAddr:      "",
	Gops:             false,
	User:             "",
	Group:            "",
}

// Config is the full set of server-level settings.
type Config struct {
	// Addr is the host:port the KATCP listener binds.
	Addr string `json:"addr"`

	// IfaceName/IfaceVersion feed the #version inform sent on connect,
	// formatted as "<iface-name>-<iface-version>".
	IfaceName    string `json:"iface-name"`
	IfaceVersion string `json:"iface-version"`

	// BuildName/BuildVersion/BuildExtra feed #build-state, formatted as
	// "<build-name>-<build-version><build-extra>".
	BuildName    string `json:"build-name"`
	BuildVersion string `json:"build-version"`
	BuildExtra   string `json:"build-extra,omitempty"`

	// LogLevel is the logger bridge's initial client-visible threshold.
	LogLevel string `json:"log-level"`

	// RestartQueueSize is the capacity of the channel pushed to on
	// ?restart. Zero disables ?restart entirely.
	RestartQueueSize int `json:"restart-queue-size"`

	// MetricsAddr, if non-empty, starts the Prometheus/health HTTP
	// listener at this host:port.
	MetricsAddr string `json:"metrics-addr,omitempty"`

	// Gops enables the gops diagnostics agent.
	Gops bool `json:"gops,omitempty"`

	// User/Group, if set, are dropped into after the listener is bound --
	// KATCP devices are commonly started as root to bind a privileged
	// port and then relinquish it.
	User  string `json:"user,omitempty"`
	Group string `json:"group,omitempty"`

	// EventBus optionally mirrors log/sensor events to NATS.
	EventBus eventbus.Config `json:"eventbus,omitempty"`
}

// Init reads and validates the config file at path, if it exists,
// overriding the defaults in Keys. A missing file is not an error: the
// defaults stand.
func Init(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: reading %q: %w", path, err)
	}

	if err := Validate(raw); err != nil {
		return fmt.Errorf("config: validating %q: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		return fmt.Errorf("config: decoding %q: %w", path, err)
	}
	return nil
}
