// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package wire implements the KATCP message codec: parsing and
// serialization of lines into typed (kind, name, arguments) messages,
// including the escape rules required to carry arbitrary bytes in an
// argument.
package wire

import (
	"fmt"
	"strings"
)

// Kind identifies whether a Message is a request, a reply, or an inform.
type Kind int

const (
	Request Kind = iota
	Reply
	Inform
)

func (k Kind) String() string {
	switch k {
	case Request:
		return "REQUEST"
	case Reply:
		return "REPLY"
	case Inform:
		return "INFORM"
	default:
		return "UNKNOWN"
	}
}

// symbol is the first byte of a serialized message.
func (k Kind) symbol() byte {
	switch k {
	case Request:
		return '?'
	case Reply:
		return '!'
	case Inform:
		return '#'
	default:
		panic(fmt.Sprintf("wire: invalid message kind %d", k))
	}
}

var symbolKind = map[byte]Kind{
	'?': Request,
	'!': Reply,
	'#': Inform,
}

// Reply-code constants from the original protocol. Dispatch never
// branches on these; the wire tokens it emits are the lowercase strings
// below. They exist purely as documentation, mirroring the source
// protocol's (unused) Message.OK/FAIL/INVALID constants.
const (
	ReplyOK      = "ok"
	ReplyFail    = "fail"
	ReplyInvalid = "invalid"
)

// SyntaxError is raised by Parse on malformed wire input.
type SyntaxError struct {
	Reason string
}

func (e *SyntaxError) Error() string { return e.Reason }

func syntaxErrorf(format string, args ...any) error {
	return &SyntaxError{Reason: fmt.Sprintf(format, args...)}
}

// Message is a (kind, name, arguments) triple. Construction validates the
// name against the wire grammar: non-empty, starts with a letter,
// contains only alphanumerics and dashes.
type Message struct {
	Kind      Kind
	Name      string
	Arguments []string
}

// NewMessage builds a Message, validating its name. Arguments are taken
// as-is: any byte sequence is legal inside an argument, escaping happens
// only at serialization/parse time.
func NewMessage(kind Kind, name string, arguments ...string) (*Message, error) {
	if name == "" {
		return nil, syntaxErrorf("command missing command name")
	}
	if !isAlpha(name[0]) {
		return nil, syntaxErrorf("command name should start with an alphabetic character (got %q)", name)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !isAlphaNum(c) && c != '-' {
			return nil, syntaxErrorf("command name should consist only of alphanumeric characters and dashes (got %q)", name)
		}
	}
	args := make([]string, len(arguments))
	copy(args, arguments)
	return &Message{Kind: kind, Name: name, Arguments: args}, nil
}

// MustMessage is NewMessage but panics on error; useful for constructing
// messages whose name is a compile-time constant known to be valid.
func MustMessage(kind Kind, name string, arguments ...string) *Message {
	m, err := NewMessage(kind, name, arguments...)
	if err != nil {
		panic(err)
	}
	return m
}

func NewRequest(name string, arguments ...string) *Message {
	return MustMessage(Request, name, arguments...)
}

func NewReply(name string, arguments ...string) *Message {
	return MustMessage(Reply, name, arguments...)
}

func NewInform(name string, arguments ...string) *Message {
	return MustMessage(Inform, name, arguments...)
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlphaNum(c byte) bool {
	return isAlpha(c) || (c >= '0' && c <= '9')
}

// RegisteredName returns the dash-separated wire name for a Go method
// name that uses underscores (e.g. "sensor_sampling" -> "sensor-sampling"),
// matching how the teacher's Python metaclass converted request_* method
// names into wire command names.
func RegisteredName(goName string) string {
	return strings.ReplaceAll(goName, "_", "-")
}
