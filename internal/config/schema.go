// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const configSchema = `{
    "type": "object",
    "description": "katcpd server configuration.",
    "properties": {
        "addr": {"type": "string"},
        "iface-name": {"type": "string"},
        "iface-version": {"type": "string"},
        "build-name": {"type": "string"},
        "build-version": {"type": "string"},
        "build-extra": {"type": "string"},
        "log-level": {
            "type": "string",
            "enum": ["all", "trace", "debug", "info", "warn", "error", "fatal", "off"]
        },
        "restart-queue-size": {"type": "integer", "minimum": 0},
        "metrics-addr": {"type": "string"},
        "gops": {"type": "boolean"},
        "user": {"type": "string"},
        "group": {"type": "string"},
        "eventbus": {
            "type": "object",
            "properties": {
                "address": {"type": "string"},
                "username": {"type": "string"},
                "password": {"type": "string"},
                "creds-file-path": {"type": "string"},
                "log-subject": {"type": "string"},
                "sensor-subject": {"type": "string"}
            }
        }
    }
}`

// Validate checks raw against the server's JSON schema before it is
// decoded into Config.
func Validate(raw []byte) error {
	s, err := jsonschema.CompileString("katcpd://config.schema.json", configSchema)
	if err != nil {
		return fmt.Errorf("config: compiling schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("config: parsing json: %w", err)
	}

	if err := s.Validate(v); err != nil {
		return fmt.Errorf("config: schema validation: %w", err)
	}
	return nil
}
