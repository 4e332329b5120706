// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package katcpsensors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderRegistersEveryKind(t *testing.T) {
	reg, err := NewBuilder().
		Integer("an.int", "an integer sensor", "", -4, 3, 3).
		Float("a.float", "a float sensor", "C", -1.5, 1.5, 0).
		Boolean("a.bool", "a boolean sensor", "", true).
		LRU("a.lru", "an lru sensor", "", "nominal").
		Discrete("mode", "operating mode", "", []string{"idle", "running", "fault"}, "idle").
		String("a.string", "a string sensor", "", "hello").
		Timestamp("a.ts", "a timestamp sensor", "s", 0).
		Build()
	require.NoError(t, err)

	names := reg.Names()
	assert.Equal(t, []string{"a.bool", "a.float", "a.lru", "a.string", "a.ts", "an.int", "mode"}, names)
}

func TestBuilderSurfacesFirstError(t *testing.T) {
	_, err := NewBuilder().
		Integer("an.int", "", "", 3, -4, 3). // min > max
		Build()
	assert.Error(t, err)
}

func TestBuilderDiscreteRejectsBadDefault(t *testing.T) {
	_, err := NewBuilder().
		Discrete("mode", "", "", []string{"idle", "running"}, "bogus").
		Build()
	assert.Error(t, err)
}
