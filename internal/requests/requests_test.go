// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package requests

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClusterCockpit/katcpd/internal/logger"
	"github.com/ClusterCockpit/katcpd/internal/sampling"
	"github.com/ClusterCockpit/katcpd/internal/sensor"
	"github.com/ClusterCockpit/katcpd/internal/server"
)

func newTestServer(t *testing.T) (*server.Server, func()) {
	t.Helper()
	reactor, err := sampling.NewReactor()
	require.NoError(t, err)

	registry := sensor.NewRegistry()
	sen, err := sensor.New(sensor.Integer, "device.power", "Device power draw.", "W", []string{"-4", "3"}, nil)
	require.NoError(t, err)
	require.NoError(t, registry.Add(sen))

	s := server.New(server.Config{
		Sensors:      registry,
		Reactor:      reactor,
		IfaceName:    "katcpd",
		IfaceVersion: "1.0",
		BuildName:    "katcpd",
		BuildVersion: "1.0",
	})
	s.Logger = logger.New(s, nil)
	Register(s)
	require.NoError(t, s.Listen("127.0.0.1:0"))

	ctx, cancel := context.WithCancel(context.Background())
	go s.Serve(ctx)

	return s, func() {
		cancel()
		s.Stop()
		reactor.Stop()
	}
}

func dial(t *testing.T, s *server.Server) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	r := bufio.NewReader(conn)
	for i := 0; i < 3; i++ {
		readLine(t, conn, r)
	}
	return conn, r
}

func readLine(t *testing.T, conn net.Conn, r *bufio.Reader) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return line[:len(line)-1]
}

func TestHaltReplies(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()
	conn, r := dial(t, s)
	defer conn.Close()

	_, err := conn.Write([]byte("?halt\n"))
	require.NoError(t, err)
	assert.Equal(t, "!halt ok", readLine(t, conn, r))
}

func TestRestartWithoutQueueFails(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()
	conn, r := dial(t, s)
	defer conn.Close()

	_, err := conn.Write([]byte("?restart\n"))
	require.NoError(t, err)
	line := readLine(t, conn, r)
	assert.Contains(t, line, "!restart fail")
}

func TestWatchdog(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()
	conn, r := dial(t, s)
	defer conn.Close()

	_, err := conn.Write([]byte("?watchdog\n"))
	require.NoError(t, err)
	assert.Equal(t, "!watchdog ok", readLine(t, conn, r))
}

func TestHelpListsEveryRequest(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()
	conn, r := dial(t, s)
	defer conn.Close()

	_, err := conn.Write([]byte("?help\n"))
	require.NoError(t, err)
	for i := 0; i < 9; i++ {
		assert.Contains(t, readLine(t, conn, r), "#help")
	}
	assert.Equal(t, "!help ok 9", readLine(t, conn, r))
}

func TestHelpUnknownRequestFails(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()
	conn, r := dial(t, s)
	defer conn.Close()

	_, err := conn.Write([]byte("?help nonesuch\n"))
	require.NoError(t, err)
	assert.Contains(t, readLine(t, conn, r), "!help fail")
}

func TestClientListReportsConnectedPeers(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()
	conn, r := dial(t, s)
	defer conn.Close()

	_, err := conn.Write([]byte("?client-list\n"))
	require.NoError(t, err)
	assert.Contains(t, readLine(t, conn, r), "#client-list")
	assert.Equal(t, "!client-list ok 1", readLine(t, conn, r))
}

func TestSensorListUnknownSensorFails(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()
	conn, r := dial(t, s)
	defer conn.Close()

	_, err := conn.Write([]byte("?sensor-list nonesuch\n"))
	require.NoError(t, err)
	assert.Equal(t, `!sensor-list fail Unknown\_sensor\_name.`, readLine(t, conn, r))
}

func TestSensorListKnownSensor(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()
	conn, r := dial(t, s)
	defer conn.Close()

	_, err := conn.Write([]byte("?sensor-list device.power\n"))
	require.NoError(t, err)
	line := readLine(t, conn, r)
	assert.Contains(t, line, "#sensor-list device.power")
	assert.Contains(t, line, "integer")
	assert.Equal(t, "!sensor-list ok 1", readLine(t, conn, r))
}

func TestSensorValueKnownSensor(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()
	conn, r := dial(t, s)
	defer conn.Close()

	_, err := conn.Write([]byte("?sensor-value device.power\n"))
	require.NoError(t, err)
	assert.Contains(t, readLine(t, conn, r), "#sensor-value")
	assert.Equal(t, "!sensor-value ok 1", readLine(t, conn, r))
}

func TestSensorSamplingQueryDefaultsToNone(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()
	conn, r := dial(t, s)
	defer conn.Close()

	_, err := conn.Write([]byte("?sensor-sampling device.power\n"))
	require.NoError(t, err)
	assert.Equal(t, "!sensor-sampling ok device.power none", readLine(t, conn, r))
}

func TestSensorSamplingSetPeriod(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()
	conn, r := dial(t, s)
	defer conn.Close()

	_, err := conn.Write([]byte("?sensor-sampling device.power period 500\n"))
	require.NoError(t, err)
	assert.Equal(t, "!sensor-sampling ok device.power period 500", readLine(t, conn, r))
}

func TestSensorSamplingUnknownSensorFails(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()
	conn, r := dial(t, s)
	defer conn.Close()

	_, err := conn.Write([]byte("?sensor-sampling nonesuch\n"))
	require.NoError(t, err)
	assert.Equal(t, `!sensor-sampling fail Unknown\_sensor\_name.`, readLine(t, conn, r))
}

func TestSensorSamplingUnknownStrategyFails(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()
	conn, r := dial(t, s)
	defer conn.Close()

	_, err := conn.Write([]byte("?sensor-sampling device.power bogus\n"))
	require.NoError(t, err)
	assert.Contains(t, readLine(t, conn, r), "fail")
}

func TestLogLevelQueryAndSet(t *testing.T) {
	s, stop := newTestServer(t)
	defer stop()
	conn, r := dial(t, s)
	defer conn.Close()

	_, err := conn.Write([]byte("?log-level\n"))
	require.NoError(t, err)
	assert.Equal(t, "!log-level ok warn", readLine(t, conn, r))

	_, err = conn.Write([]byte("?log-level info\n"))
	require.NoError(t, err)
	assert.Equal(t, "!log-level ok info", readLine(t, conn, r))
}
