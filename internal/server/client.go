// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package server

import (
	"io"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/ClusterCockpit/katcpd/internal/sampling"
	"github.com/ClusterCockpit/katcpd/internal/wire"
)

// Client is one accepted TCP connection: a socket, a write mutex
// (serializing concurrent writers to the same connection), and the
// set of sampling strategies this client has installed, keyed by
// sensor name.
type Client struct {
	conn net.Conn
	id   string // opaque fallback identifier, used when RemoteAddr is unavailable

	writeMu sync.Mutex
	onFail  func(*Client)

	stratMu    sync.Mutex
	strategies map[string]sampling.Strategy
}

func newClient(conn net.Conn, onFail func(*Client)) *Client {
	return &Client{
		conn:       conn,
		id:         uuid.NewString(),
		onFail:     onFail,
		strategies: make(map[string]sampling.Strategy),
	}
}

// Description is the identifier used in #client-list and
// #client-connected: the peer address if known, otherwise an opaque
// unique id for the socket.
func (c *Client) Description() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		if s := addr.String(); s != "" {
			return s
		}
	}
	return c.id
}

// Send serializes and writes msg, terminated by a single LF. A write
// error or a zero-byte write marks the client as failed: the server's
// onFail callback (registered at accept time) detaches its strategies,
// drops it from the client table, and fires the disconnect hook exactly
// once. Send itself never returns an error -- it is used directly as a
// sampling.Emit callback and from mass-inform fan-out, neither of which
// has a meaningful per-call error path.
func (c *Client) Send(msg *wire.Message) {
	c.writeMu.Lock()
	line := wire.Serialize(msg) + "\n"
	n, err := io.WriteString(c.conn, line)
	c.writeMu.Unlock()

	if err != nil || n == 0 {
		if c.onFail != nil {
			c.onFail(c)
		}
	}
}

// Strategy returns the strategy currently installed for sensor name, if
// any.
func (c *Client) Strategy(sensorName string) (sampling.Strategy, bool) {
	c.stratMu.Lock()
	defer c.stratMu.Unlock()
	s, ok := c.strategies[sensorName]
	return s, ok
}

// SetStrategy installs s for sensorName, returning the strategy it
// replaces (if any) so the caller can detach it from the reactor.
func (c *Client) SetStrategy(sensorName string, s sampling.Strategy) (previous sampling.Strategy, hadPrevious bool) {
	c.stratMu.Lock()
	defer c.stratMu.Unlock()
	previous, hadPrevious = c.strategies[sensorName]
	c.strategies[sensorName] = s
	return previous, hadPrevious
}

// ClearStrategies removes and returns every strategy this client has
// installed, used on disconnect.
func (c *Client) ClearStrategies() []sampling.Strategy {
	c.stratMu.Lock()
	defer c.stratMu.Unlock()
	out := make([]sampling.Strategy, 0, len(c.strategies))
	for _, s := range c.strategies {
		out = append(out, s)
	}
	c.strategies = make(map[string]sampling.Strategy)
	return out
}
