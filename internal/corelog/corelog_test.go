// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package corelog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevelRoundTrip(t *testing.T) {
	for _, name := range []string{"all", "trace", "debug", "info", "warn", "error", "fatal", "off"} {
		l, err := ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, name, l.String())
	}

	_, err := ParseLevel("bogus")
	assert.Error(t, err)
}

func TestLevelOrdering(t *testing.T) {
	assert.True(t, All < Trace)
	assert.True(t, Trace < Debug)
	assert.True(t, Debug < Info)
	assert.True(t, Info < Warn)
	assert.True(t, Warn < Error)
	assert.True(t, Error < Fatal)
	assert.True(t, Fatal < Off)
}

func TestHookReceivesEveryLoggedLineRegardlessOfThreshold(t *testing.T) {
	defer SetLevel(Warn)
	SetLevel(Off)

	var seen []string
	Hook(func(level Level, msg string) { seen = append(seen, msg) })

	Infof("hello %s", "world")
	require.Len(t, seen, 1)
	assert.Equal(t, "hello world", seen[0])
}
