// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package server implements the connection multiplexer: accepting TCP
// clients, framing inbound byte streams into messages, dispatching
// typed handlers, and serializing outbound writes per client.
//
// Where the original design describes a single-threaded select/poll
// readiness loop, this implementation accepts connections in a loop and
// hands each to its own goroutine that blocks in Read -- idiomatic Go's
// equivalent of "never let one client's slow peer starve another's
// reads". The contracts survive unchanged: one partial-line buffer per
// client, one write mutex per client, the disconnect hook fires exactly
// once, and the client table is guarded by a single mutex.
package server

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ClusterCockpit/katcpd/internal/corelog"
	"github.com/ClusterCockpit/katcpd/internal/logger"
	"github.com/ClusterCockpit/katcpd/internal/metrics"
	"github.com/ClusterCockpit/katcpd/internal/sampling"
	"github.com/ClusterCockpit/katcpd/internal/sensor"
	"github.com/ClusterCockpit/katcpd/internal/wire"
)

// HandlerFunc implements one built-in or embedder-supplied request.
type HandlerFunc func(ctx context.Context, s *Server, cl *Client, msg *wire.Message) Result

// InformFunc implements handling of an inbound inform or reply message.
// Dispatch never elicits a reply for these; unexpected errors are
// logged and dropped.
type InformFunc func(s *Server, cl *Client, msg *wire.Message)

type registeredRequest struct {
	handler HandlerFunc
	help    string
}

// Server owns the sensor catalog, the reactor, the logger bridge, and
// every currently connected client.
type Server struct {
	Sensors *sensor.Registry
	Reactor *sampling.Reactor
	Logger  *logger.Bridge

	ifaceName    string
	ifaceVersion string
	buildName    string
	buildVersion string
	buildExtra   string

	listener net.Listener

	mu      sync.Mutex
	clients map[*Client]struct{}

	requests map[string]registeredRequest
	informs  map[string]InformFunc

	restartCh chan<- *Server

	running atomic.Bool
	wg      sync.WaitGroup

	connectHook    func(*Client)
	disconnectHook func(*Client, bool)
}

// Config carries the pieces of Server that come from the embedder
// rather than from a fixed construction order.
type Config struct {
	Sensors      *sensor.Registry
	Reactor      *sampling.Reactor
	Logger       *logger.Bridge
	IfaceName    string
	IfaceVersion string
	BuildName    string
	BuildVersion string
	BuildExtra   string
	RestartChan  chan<- *Server
}

// New constructs a Server. Built-in requests are not registered here;
// call internal/requests.Register(s) (or an embedder's own
// registrations) before Serve.
func New(cfg Config) *Server {
	return &Server{
		Sensors:      cfg.Sensors,
		Reactor:      cfg.Reactor,
		Logger:       cfg.Logger,
		ifaceName:    cfg.IfaceName,
		ifaceVersion: cfg.IfaceVersion,
		buildName:    cfg.BuildName,
		buildVersion: cfg.BuildVersion,
		buildExtra:   cfg.BuildExtra,
		clients:      make(map[*Client]struct{}),
		requests:     make(map[string]registeredRequest),
		informs:      make(map[string]InformFunc),
		restartCh:    cfg.RestartChan,
	}
}

// RegisterRequest registers a request handler under name (dashes, as on
// the wire). help is shown by ?help.
func (s *Server) RegisterRequest(name, help string, h HandlerFunc) {
	s.requests[name] = registeredRequest{handler: h, help: help}
}

// RegisterInform registers a handler for an inbound inform or reply
// under name.
func (s *Server) RegisterInform(name string, h InformFunc) {
	s.informs[name] = h
}

// RequestNames returns every registered request name in lexicographic
// order, as used by ?help with no argument.
func (s *Server) RequestNames() []string {
	names := make([]string, 0, len(s.requests))
	for name := range s.requests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RequestHelp returns the help string registered for name.
func (s *Server) RequestHelp(name string) (string, bool) {
	r, ok := s.requests[name]
	return r.help, ok
}

// OnConnect registers fn to run once per newly accepted client, after
// the #client-connected mass-inform has gone to the other clients, the
// new client has been added to the client table, and its version/build
// informs have been sent.
func (s *Server) OnConnect(fn func(*Client)) { s.connectHook = fn }

// OnDisconnect registers fn to run exactly once per client, when it is
// dropped for any reason. sockValid reports whether the socket was
// still writable at drop time.
func (s *Server) OnDisconnect(fn func(*Client, bool)) { s.disconnectHook = fn }

// RestartSink returns the configured restart channel, or nil if none
// was configured (which makes ?restart fail).
func (s *Server) RestartSink() chan<- *Server { return s.restartCh }

// Listen binds addr. Call Serve afterward to run the accept loop.
func (s *Server) Listen(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen on %q: %w", addr, err)
	}
	s.listener = l
	return nil
}

// Addr returns the bound listener's address. Valid only after Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve runs the accept loop until Stop is called, then waits for every
// client goroutine to finish before returning nil. An Accept error while
// the server is running is logged and Accept is retried on the same
// listener; the listener is not re-bound and Serve does not return on
// such an error. Each accepted connection is served by its own
// goroutine.
func (s *Server) Serve(ctx context.Context) error {
	s.running.Store(true)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				s.wg.Wait()
				return nil
			}
			corelog.Warnf("server: accept failed, retrying: %v", err)
			continue
		}

		cl := newClient(conn, func(c *Client) { s.dropClient(c, false) })

		s.MassInform(wire.NewInform("client-connected", "New client connected from "+cl.Description()))
		s.addClient(cl)
		s.sendConnectInforms(cl)
		if s.connectHook != nil {
			s.connectHook(cl)
		}

		s.wg.Add(1)
		go s.serveClient(ctx, cl)
	}
}

// Stop clears the running flag and closes the listener, which ends
// Serve's accept loop. It returns without waiting; Serve is the one that
// waits for the client goroutines. Stop does not close client
// connections.
func (s *Server) Stop() error {
	s.running.Store(false)
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) addClient(cl *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[cl] = struct{}{}
	metrics.ClientsConnected.Inc()
}

// Clients returns a snapshot of connected clients, ordered by their
// Description, as used by ?client-list.
func (s *Server) Clients() []*Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Description() < out[j].Description() })
	return out
}

// MassInform sends msg to every currently connected client.
func (s *Server) MassInform(msg *wire.Message) {
	s.mu.Lock()
	snapshot := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		snapshot = append(snapshot, c)
	}
	s.mu.Unlock()

	for _, c := range snapshot {
		c.Send(msg)
	}
}

// Disconnect unicasts #disconnect and drops cl.
func (s *Server) Disconnect(cl *Client, reason string) {
	cl.Send(wire.NewInform("disconnect", reason))
	s.dropClient(cl, true)
}

func (s *Server) sendConnectInforms(cl *Client) {
	cl.Send(wire.NewInform("version-connect", "katcp-protocol", "5.0-MI"))
	cl.Send(wire.NewInform("version", fmt.Sprintf("%s-%s", s.ifaceName, s.ifaceVersion)))
	cl.Send(wire.NewInform("build-state", fmt.Sprintf("%s-%s%s", s.buildName, s.buildVersion, s.buildExtra)))
}

func (s *Server) dropClient(cl *Client, sockValid bool) {
	strategies := cl.ClearStrategies()
	if s.Reactor != nil {
		for _, st := range strategies {
			s.Reactor.RemoveStrategy(st)
		}
	}

	s.mu.Lock()
	_, present := s.clients[cl]
	delete(s.clients, cl)
	s.mu.Unlock()
	if !present {
		// Already dropped by a previous call (e.g. Disconnect then EOF).
		return
	}
	metrics.ClientsConnected.Dec()

	cl.conn.Close()
	if s.disconnectHook != nil {
		s.disconnectHook(cl, sockValid)
	}
}

func (s *Server) serveClient(ctx context.Context, cl *Client) {
	defer s.wg.Done()

	buf := make([]byte, 4096)
	var partial []byte

	for {
		n, err := cl.conn.Read(buf)
		if n > 0 {
			chunk := bytes.ReplaceAll(buf[:n], []byte{'\r'}, []byte{'\n'})
			partial = append(partial, chunk...)
			for {
				idx := bytes.IndexByte(partial, '\n')
				if idx < 0 {
					break
				}
				line := string(partial[:idx])
				partial = partial[idx+1:]
				s.handleLine(ctx, cl, line)
			}
		}
		if err != nil {
			s.dropClient(cl, false)
			return
		}
	}
}

func (s *Server) handleLine(ctx context.Context, cl *Client, line string) {
	if line == "" {
		return
	}
	msg, err := wire.Parse(line)
	if err != nil {
		cl.Send(wire.NewInform("log", "error", nowMS(), "katcpd", err.Error()))
		return
	}
	s.dispatch(ctx, cl, msg)
}

func (s *Server) dispatch(ctx context.Context, cl *Client, msg *wire.Message) {
	switch msg.Kind {
	case wire.Request:
		s.dispatchRequest(ctx, cl, msg)
	case wire.Inform, wire.Reply:
		h, ok := s.informs[msg.Name]
		if !ok {
			return
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					corelog.Errorf("server: inform handler %q panicked: %v", msg.Name, r)
				}
			}()
			h(s, cl, msg)
		}()
	}
}

func (s *Server) dispatchRequest(ctx context.Context, cl *Client, msg *wire.Message) {
	reg, ok := s.requests[msg.Name]
	if !ok {
		metrics.RequestsTotal.WithLabelValues(msg.Name, "invalid").Inc()
		cl.Send(wire.NewReply(msg.Name, "invalid", "Unknown request."))
		return
	}

	result := s.invokeHandler(ctx, reg.handler, cl, msg)
	switch result.kind {
	case kindReply:
		metrics.RequestsTotal.WithLabelValues(msg.Name, "ok").Inc()
		cl.Send(result.reply)
	case kindFail:
		metrics.RequestsTotal.WithLabelValues(msg.Name, "fail").Inc()
		cl.Send(wire.NewReply(msg.Name, "fail", result.reason))
	case kindAsync:
		metrics.RequestsTotal.WithLabelValues(msg.Name, "async").Inc()
		// Reply will be sent elsewhere.
	}
}

func (s *Server) invokeHandler(ctx context.Context, h HandlerFunc, cl *Client, msg *wire.Message) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			corelog.Errorf("server: request %q panicked: %v", msg.Name, r)
			result = Fail(fmt.Sprintf("%v", r))
		}
	}()
	return h(ctx, s, cl, msg)
}

func nowMS() string {
	return fmt.Sprintf("%d", time.Now().UnixNano()/int64(time.Millisecond))
}
