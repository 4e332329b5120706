// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package logger bridges the process-wide logger (internal/corelog) to
// the KATCP wire: every log message at or above a client-visible
// threshold becomes a #log mass-inform.
package logger

import (
	"fmt"
	"sync"
	"time"

	"github.com/ClusterCockpit/katcpd/internal/corelog"
	"github.com/ClusterCockpit/katcpd/internal/wire"
)

// Broadcaster is the subset of internal/server.Server the bridge needs:
// the ability to inform every connected client.
type Broadcaster interface {
	MassInform(msg *wire.Message)
}

// Mirror optionally re-publishes log informs to an external sink
// (internal/eventbus) so an out-of-band collector can watch without
// holding a KATCP socket open.
type Mirror interface {
	PublishLog(level, name, msg string, ts float64)
}

// Bridge holds the client-visible log threshold and wires corelog into
// mass-informs. The zero value is not usable; construct with New.
type Bridge struct {
	broadcaster Broadcaster
	mirror      Mirror

	mu        sync.Mutex
	threshold corelog.Level
}

// New constructs a Bridge and registers it as a corelog hook, so any
// ambient corelog.Warnf/Errorf/etc. call anywhere in the server becomes
// a candidate #log inform under the process name "katcpd", gated by
// the bridge's own threshold (default Warn, matching the protocol
// default).
func New(broadcaster Broadcaster, mirror Mirror) *Bridge {
	b := &Bridge{broadcaster: broadcaster, mirror: mirror, threshold: corelog.Warn}
	corelog.Hook(b.onAmbientLog)
	return b
}

func (b *Bridge) onAmbientLog(level corelog.Level, msg string) {
	defer func() { recover() }()
	b.deliver(level, "katcpd", msg, nowMS())
}

// SetThreshold changes the minimum level that reaches connected
// clients. It does not affect what corelog itself writes to the
// process output.
func (b *Bridge) SetThreshold(level corelog.Level) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.threshold = level
}

// Threshold returns the current client-visible level.
func (b *Bridge) Threshold() corelog.Level {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.threshold
}

// Log records a message under name at level, writing it to the process
// log first (bypassing the ambient hook, since this call mass-informs
// under its own name below rather than the ambient "katcpd" name) and
// then, if level is at or above the current threshold, mass-informing
// #log to every connected client. ts defaults to now if nil.
func (b *Bridge) Log(level corelog.Level, msg, name string, ts *float64) {
	defer func() { recover() }()

	corelog.RawLog(level, fmt.Sprintf("[%s] %s", name, msg))

	when := nowMS()
	if ts != nil {
		when = int64(*ts * 1000)
	}
	b.deliver(level, name, msg, when)
}

func (b *Bridge) deliver(level corelog.Level, name, msg string, tsMS int64) {
	b.mu.Lock()
	threshold := b.threshold
	b.mu.Unlock()

	if level < threshold {
		return
	}

	b.broadcaster.MassInform(wire.NewInform("log", level.String(), fmt.Sprintf("%d", tsMS), name, msg))
	if b.mirror != nil {
		b.mirror.PublishLog(level.String(), name, msg, float64(tsMS)/1000.0)
	}
}

func (b *Bridge) Tracef(name, format string, v ...any) { b.Log(corelog.Trace, fmt.Sprintf(format, v...), name, nil) }
func (b *Bridge) Debugf(name, format string, v ...any) { b.Log(corelog.Debug, fmt.Sprintf(format, v...), name, nil) }
func (b *Bridge) Infof(name, format string, v ...any)  { b.Log(corelog.Info, fmt.Sprintf(format, v...), name, nil) }
func (b *Bridge) Warnf(name, format string, v ...any)  { b.Log(corelog.Warn, fmt.Sprintf(format, v...), name, nil) }
func (b *Bridge) Errorf(name, format string, v ...any) { b.Log(corelog.Error, fmt.Sprintf(format, v...), name, nil) }
func (b *Bridge) Fatalf(name, format string, v ...any) { b.Log(corelog.Fatal, fmt.Sprintf(format, v...), name, nil) }

func nowMS() int64 { return time.Now().UnixNano() / int64(time.Millisecond) }
