// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package eventbus optionally mirrors server-side events (log lines,
// sensor-status updates) onto NATS subjects, so an external collector
// can observe a device without holding a KATCP socket open.
package eventbus

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/ClusterCockpit/katcpd/internal/corelog"
)

// Config configures the optional NATS mirror. A zero-value Config (no
// Address) means the mirror is disabled.
type Config struct {
	Address       string `json:"address"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	CredsFilePath string `json:"creds-file-path"`
	LogSubject    string `json:"log-subject"`
	SensorSubject string `json:"sensor-subject"`
}

// Bus wraps a NATS connection used to mirror device events.
type Bus struct {
	conn          *nats.Conn
	logSubject    string
	sensorSubject string
	mu            sync.Mutex
}

// Connect dials the configured NATS server. If cfg.Address is empty, it
// returns (nil, nil): the mirror is simply disabled.
func Connect(cfg Config) (*Bus, error) {
	if cfg.Address == "" {
		return nil, nil
	}

	var opts []nats.Option
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.CredsFilePath != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFilePath))
	}
	opts = append(opts, nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
		if err != nil {
			corelog.Warnf("eventbus: disconnected: %v", err)
		}
	}))
	opts = append(opts, nats.ReconnectHandler(func(nc *nats.Conn) {
		corelog.Infof("eventbus: reconnected to %s", nc.ConnectedUrl())
	}))
	opts = append(opts, nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
		corelog.Errorf("eventbus: error: %v", err)
	}))

	nc, err := nats.Connect(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("eventbus: connect to %q failed: %w", cfg.Address, err)
	}

	logSubject := cfg.LogSubject
	if logSubject == "" {
		logSubject = "katcpd.log"
	}
	sensorSubject := cfg.SensorSubject
	if sensorSubject == "" {
		sensorSubject = "katcpd.sensor-status"
	}

	corelog.Infof("eventbus: connected to %s", cfg.Address)
	return &Bus{conn: nc, logSubject: logSubject, sensorSubject: sensorSubject}, nil
}

type logEvent struct {
	Level string  `json:"level"`
	Name  string  `json:"name"`
	Msg   string  `json:"msg"`
	TS    float64 `json:"ts"`
}

// PublishLog implements internal/logger.Mirror.
func (b *Bus) PublishLog(level, name, msg string, ts float64) {
	if b == nil {
		return
	}
	data, err := json.Marshal(logEvent{Level: level, Name: name, Msg: msg, TS: ts})
	if err != nil {
		return
	}
	b.publish(b.logSubject, data)
}

type sensorEvent struct {
	Name   string  `json:"name"`
	Status string  `json:"status"`
	Value  string  `json:"value"`
	TS     float64 `json:"ts"`
}

// PublishSensorStatus mirrors a #sensor-status inform.
func (b *Bus) PublishSensorStatus(name, status, value string, ts float64) {
	if b == nil {
		return
	}
	data, err := json.Marshal(sensorEvent{Name: name, Status: status, Value: value, TS: ts})
	if err != nil {
		return
	}
	b.publish(b.sensorSubject, data)
}

func (b *Bus) publish(subject string, data []byte) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return
	}
	if err := conn.Publish(subject, data); err != nil {
		corelog.Warnf("eventbus: publish to %q failed: %v", subject, err)
	}
}

// IsConnected reports whether the underlying NATS connection is up. A
// nil Bus (mirror disabled) is never connected.
func (b *Bus) IsConnected() bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.conn.IsConnected()
}

// Close shuts the mirror connection down. Safe to call on a nil Bus.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		b.conn.Close()
		corelog.Infof("eventbus: connection closed")
	}
}
