// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import "strings"

// Parse decodes a single line (no terminator) into a Message. line is
// the raw bytes between two LFs (or a CR treated as LF) as handed up by
// the connection multiplexer.
func Parse(line string) (*Message, error) {
	if line == "" {
		return nil, syntaxErrorf("empty message received")
	}

	kind, ok := symbolKind[line[0]]
	if !ok {
		return nil, syntaxErrorf("bad type character %q", string(line[0]))
	}

	fields := splitWhitespace(line[1:])
	if len(fields) == 0 {
		return nil, syntaxErrorf("command missing command name")
	}

	name := fields[0]
	args := make([]string, 0, len(fields)-1)
	for _, tok := range fields[1:] {
		arg, err := unescapeArgument(tok)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	return NewMessage(kind, name, args...)
}

// splitWhitespace splits on runs of spaces/tabs, discarding a trailing
// empty field produced by trailing whitespace; leading separators are
// skipped as well. Unlike strings.Fields, it does not split on other
// whitespace: the only separators recognized here are plain space and
// tab, matching the WHITESPACE_RE the wire grammar is built on, so a
// token containing, say, a CR is kept whole and then rejected by
// unescapeArgument.
func splitWhitespace(s string) []string {
	var fields []string
	start := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' {
			if start >= 0 {
				fields = append(fields, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		fields = append(fields, s[start:])
	}
	return fields
}

// Serialize renders m as it appears on the wire, without a line
// terminator. Callers writing to a socket append a single LF.
func Serialize(m *Message) string {
	var b strings.Builder
	b.WriteByte(m.Kind.symbol())
	b.WriteString(m.Name)
	for _, arg := range m.Arguments {
		b.WriteByte(' ')
		b.WriteString(escapeArgument(arg))
	}
	return b.String()
}
