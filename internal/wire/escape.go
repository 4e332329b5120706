// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

// escapeLookup maps an escape letter (the byte following a backslash) to
// the raw byte it represents. '@' is not in this map: unescapeArgument
// handles `\@` itself and decodes it to no byte at all -- it is how an
// empty argument is spelled on the wire.
var escapeLookup = map[byte]byte{
	'\\': '\\',
	'_':  ' ',
	'0':  0x00,
	'n':  '\n',
	'r':  '\r',
	'e':  0x1b,
	't':  '\t',
}

// reverseEscape maps a raw byte that must never appear unescaped in a
// serialized argument to the letter used after the backslash.
var reverseEscape = map[byte]byte{
	'\\': '\\',
	' ':  '_',
	0x00: '0',
	'\n': 'n',
	'\r': 'r',
	0x1b: 'e',
	'\t': 't',
}

// mustEscape reports whether b can never appear unescaped in a
// serialized argument.
func mustEscape(b byte) bool {
	_, ok := reverseEscape[b]
	return ok
}

// escapeArgument renders arg as it appears on the wire: every byte that
// must be escaped is rewritten as backslash+letter, and a wholly empty
// argument becomes the literal two bytes `\@`.
func escapeArgument(arg string) string {
	if arg == "" {
		return `\@`
	}
	out := make([]byte, 0, len(arg))
	for i := 0; i < len(arg); i++ {
		b := arg[i]
		if mustEscape(b) {
			out = append(out, '\\', reverseEscape[b])
		} else {
			out = append(out, b)
		}
	}
	return string(out)
}

// unescapeArgument reverses escapeArgument, failing with a SyntaxError if
// the token contains an unescaped special byte, a dangling backslash, or
// a backslash followed by a byte outside the escape alphabet.
func unescapeArgument(token string) (string, error) {
	out := make([]byte, 0, len(token))
	for i := 0; i < len(token); i++ {
		b := token[i]
		if b == '\\' {
			i++
			if i >= len(token) {
				return "", syntaxErrorf("escape slash at end of argument")
			}
			c := token[i]
			if c == '@' {
				// \@ decodes to nothing: the canonical empty argument.
				continue
			}
			raw, ok := escapeLookup[c]
			if !ok {
				return "", syntaxErrorf("invalid escape character %q", string(c))
			}
			out = append(out, raw)
			continue
		}
		if isSpecial(b) {
			return "", syntaxErrorf("unescaped special byte %q", string(b))
		}
		out = append(out, b)
	}
	return string(out), nil
}

// isSpecial reports whether b may never appear unescaped inside an
// argument token: NUL, LF, CR, ESC, TAB, or space.
func isSpecial(b byte) bool {
	switch b {
	case 0x00, '\n', '\r', 0x1b, '\t', ' ':
		return true
	default:
		return false
	}
}
