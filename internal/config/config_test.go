// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMissingFileKeepsDefaults(t *testing.T) {
	Keys = Config{Addr: ":1235", LogLevel: "warn"}
	require.NoError(t, Init(filepath.Join(t.TempDir(), "does-not-exist.json")))
	assert.Equal(t, ":1235", Keys.Addr)
}

func TestInitValidConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"addr": ":9000", "log-level": "debug"}`), 0o644))

	require.NoError(t, Init(path))
	assert.Equal(t, ":9000", Keys.Addr)
	assert.Equal(t, "debug", Keys.LogLevel)
}

func TestInitRejectsUnknownLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log-level": "bogus"}`), 0o644))

	assert.Error(t, Init(path))
}

func TestInitRejectsUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not-a-real-field": 1}`), 0o644))

	assert.Error(t, Init(path))
}
