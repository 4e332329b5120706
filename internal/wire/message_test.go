// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageValidatesName(t *testing.T) {
	_, err := NewMessage(Request, "")
	require.Error(t, err)

	_, err = NewMessage(Request, "1bad")
	require.Error(t, err)

	_, err = NewMessage(Request, "has space")
	require.Error(t, err)

	m, err := NewMessage(Request, "sensor-list", "an.int")
	require.NoError(t, err)
	assert.Equal(t, "sensor-list", m.Name)
	assert.Equal(t, []string{"an.int"}, m.Arguments)
}

func TestRegisteredName(t *testing.T) {
	assert.Equal(t, "sensor-sampling", RegisteredName("sensor_sampling"))
	assert.Equal(t, "halt", RegisteredName("halt"))
}

func TestKindSymbolRoundTrip(t *testing.T) {
	for sym, kind := range symbolKind {
		assert.Equal(t, sym, kind.symbol())
	}
}

func TestParseSerializeRoundTrip(t *testing.T) {
	cases := []*Message{
		NewRequest("watchdog"),
		NewReply("watchdog", "ok"),
		NewInform("sensor-status", "12345", "1", "an.int", "nominal", "3"),
		NewRequest("sensor-sampling", "an.int", "period", "500"),
		MustMessage(Request, "log-level", ""),
	}
	for _, m := range cases {
		line := Serialize(m)
		got, err := Parse(line)
		require.NoError(t, err, "line %q", line)
		assert.Equal(t, m.Kind, got.Kind)
		assert.Equal(t, m.Name, got.Name)
		assert.Equal(t, m.Arguments, got.Arguments)
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	cases := []string{
		"",
		"watchdog",            // missing type symbol
		"xwatchdog",           // bad type symbol
		"?1bad",                // name starts non-alpha
		"?bad!name",            // name has invalid char
		"?halt \\",             // trailing backslash
		"?halt \\q",            // invalid escape char
		"?halt " + "\x00",      // unescaped NUL
	}
	for _, line := range cases {
		_, err := Parse(line)
		assert.Error(t, err, "expected error for %q", line)
		var se *SyntaxError
		assert.ErrorAs(t, err, &se)
	}
}

func TestParseDiscardsTrailingWhitespaceField(t *testing.T) {
	m, err := Parse("?halt   ")
	require.NoError(t, err)
	assert.Equal(t, "halt", m.Name)
	assert.Empty(t, m.Arguments)
}

func TestEmptyArgumentRoundTrips(t *testing.T) {
	m := NewRequest("log-level", "")
	line := Serialize(m)
	assert.Contains(t, line, `\@`)

	got, err := Parse(line)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, got.Arguments)
}
