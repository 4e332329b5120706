// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package requests implements the built-in KATCP requests every device
// server supports: ?halt, ?restart, ?watchdog, ?help, ?client-list,
// ?sensor-list, ?sensor-value, ?sensor-sampling, and ?log-level.
package requests

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ClusterCockpit/katcpd/internal/corelog"
	"github.com/ClusterCockpit/katcpd/internal/sampling"
	"github.com/ClusterCockpit/katcpd/internal/sensor"
	"github.com/ClusterCockpit/katcpd/internal/server"
	"github.com/ClusterCockpit/katcpd/internal/wire"
)

// Register installs every built-in request on s.
func Register(s *server.Server) {
	s.RegisterRequest("halt", "Halt the device server.", halt)
	s.RegisterRequest("restart", "Restart the device server.", restart)
	s.RegisterRequest("watchdog", "Check that the server is still alive.", watchdog)
	s.RegisterRequest("help", "Return help on the available requests.", help)
	s.RegisterRequest("client-list", "Request the list of connected clients.", clientList)
	s.RegisterRequest("sensor-list", "Request the list of sensors.", sensorList)
	s.RegisterRequest("sensor-value", "Request the value of a sensor or sensors.", sensorValue)
	s.RegisterRequest("sensor-sampling", "Configure or query the way a sensor is sampled.", sensorSampling)
	s.RegisterRequest("log-level", "Query or set the current logging level.", logLevel)
}

// halt starts Server.Stop in its own goroutine and replies ok. Stop only
// clears the running flag and closes the listener; it does not close
// client connections, so the reply reaches this client whether Stop
// runs before or after the reply is written.
func halt(ctx context.Context, s *server.Server, cl *server.Client, msg *wire.Message) server.Result {
	go s.Stop()
	return server.Reply(wire.NewReply("halt", "ok"))
}

func restart(ctx context.Context, s *server.Server, cl *server.Client, msg *wire.Message) server.Result {
	sink := s.RestartSink()
	if sink == nil {
		return server.Fail("No restart queue registered -- cannot restart.")
	}
	select {
	case sink <- s:
	default:
		return server.Fail("Restart queue is full.")
	}
	return server.Reply(wire.NewReply("restart", "ok"))
}

func watchdog(ctx context.Context, s *server.Server, cl *server.Client, msg *wire.Message) server.Result {
	return server.Reply(wire.NewReply("watchdog", "ok"))
}

func help(ctx context.Context, s *server.Server, cl *server.Client, msg *wire.Message) server.Result {
	if len(msg.Arguments) == 0 {
		names := s.RequestNames()
		for _, name := range names {
			doc, _ := s.RequestHelp(name)
			cl.Send(wire.NewInform("help", name, doc))
		}
		return server.Reply(wire.NewReply("help", "ok", strconv.Itoa(len(names))))
	}

	name := msg.Arguments[0]
	doc, ok := s.RequestHelp(name)
	if !ok {
		return server.Fail("Unknown request method.")
	}
	cl.Send(wire.NewInform("help", name, doc))
	return server.Reply(wire.NewReply("help", "ok", "1"))
}

func clientList(ctx context.Context, s *server.Server, cl *server.Client, msg *wire.Message) server.Result {
	clients := s.Clients()
	for _, c := range clients {
		cl.Send(wire.NewInform("client-list", c.Description()))
	}
	return server.Reply(wire.NewReply("client-list", "ok", strconv.Itoa(len(clients))))
}

func sensorListInform(cl *server.Client, name string, sen *sensor.Sensor) {
	args := []string{name, sen.Description(), sen.Units(), sen.Kind().String()}
	args = append(args, sen.Params()...)
	cl.Send(wire.NewInform("sensor-list", args...))
}

func sensorList(ctx context.Context, s *server.Server, cl *server.Client, msg *wire.Message) server.Result {
	if len(msg.Arguments) == 0 {
		names := s.Sensors.Names()
		for _, name := range names {
			sen, _ := s.Sensors.Get(name)
			sensorListInform(cl, name, sen)
		}
		return server.Reply(wire.NewReply("sensor-list", "ok", strconv.Itoa(len(names))))
	}

	name := msg.Arguments[0]
	sen, ok := s.Sensors.Get(name)
	if !ok {
		return server.Fail("Unknown sensor name.")
	}
	sensorListInform(cl, name, sen)
	return server.Reply(wire.NewReply("sensor-list", "ok", "1"))
}

func sensorValueInform(cl *server.Client, name string, sen *sensor.Sensor) error {
	tsMS, status, value, err := sen.ReadFormatted()
	if err != nil {
		return err
	}
	cl.Send(wire.NewInform("sensor-value", tsMS, "1", name, status, value))
	return nil
}

func sensorValue(ctx context.Context, s *server.Server, cl *server.Client, msg *wire.Message) server.Result {
	if len(msg.Arguments) == 0 {
		names := s.Sensors.Names()
		for _, name := range names {
			sen, _ := s.Sensors.Get(name)
			if err := sensorValueInform(cl, name, sen); err != nil {
				corelog.Errorf("requests: sensor-value: %s: %v", name, err)
			}
		}
		return server.Reply(wire.NewReply("sensor-value", "ok", strconv.Itoa(len(names))))
	}

	name := msg.Arguments[0]
	sen, ok := s.Sensors.Get(name)
	if !ok {
		return server.Fail("Unknown sensor name.")
	}
	if err := sensorValueInform(cl, name, sen); err != nil {
		return server.Fail(err.Error())
	}
	return server.Reply(wire.NewReply("sensor-value", "ok", "1"))
}

func sensorSampling(ctx context.Context, s *server.Server, cl *server.Client, msg *wire.Message) server.Result {
	if len(msg.Arguments) == 0 {
		return server.Fail("No sensor name given.")
	}
	name := msg.Arguments[0]

	sen, ok := s.Sensors.Get(name)
	if !ok {
		return server.Fail("Unknown sensor name.")
	}

	if len(msg.Arguments) > 1 {
		kind := msg.Arguments[1]
		params := msg.Arguments[2:]

		newStrategy, err := sampling.Construct(kind, cl.Send, sen, params...)
		if err != nil {
			return server.Fail(err.Error())
		}

		if prev, had := cl.SetStrategy(name, newStrategy); had {
			s.Reactor.RemoveStrategy(prev)
		}
		if err := s.Reactor.AddStrategy(newStrategy); err != nil {
			return server.Fail(fmt.Sprintf("Could not arm strategy: %v", err))
		}
	}

	current, ok := cl.Strategy(name)
	if !ok {
		current = sampling.NewNone(sen)
	}
	kind, params := current.Formatted()
	args := append([]string{"ok", name, kind}, params...)
	return server.Reply(wire.NewReply("sensor-sampling", args...))
}

func logLevel(ctx context.Context, s *server.Server, cl *server.Client, msg *wire.Message) server.Result {
	if s.Logger == nil {
		return server.Fail("Logging is not configured.")
	}
	if len(msg.Arguments) > 0 {
		level, err := corelog.ParseLevel(msg.Arguments[0])
		if err != nil {
			return server.Fail(err.Error())
		}
		s.Logger.SetThreshold(level)
	}
	return server.Reply(wire.NewReply("log-level", "ok", s.Logger.Threshold().String()))
}
