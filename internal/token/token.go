// Copyright 2024 github.com/ucirello
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package token implements the lexical layer of the manifest format: turning
// one declaration line (the text before its terminating colon) into a
// sequence of string tokens.
//
// Token classes, tried in order, mirror the grammar in the manifest
// specification: single-quoted strings, double-quoted strings with C-style
// escapes, bare words, and the literal "=" that lets option syntax
// (key = value) surface as three distinct tokens even when written without
// surrounding spaces.
package token

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnterminatedQuote is returned when a quoted token is never closed.
var ErrUnterminatedQuote = errors.New("unterminated quoted string")

// ErrNoColon is returned when a declaration line never reaches its
// terminating colon.
var ErrNoColon = errors.New("missing colon separator")

// Tokenize lexes line up to (but not including) the colon that ends the
// declaration, applying the embedded-colon rule: a colon only terminates
// the declaration when it is immediately followed by whitespace or end of
// line; any other colon is folded into the bare word being scanned.
//
// It returns the token sequence and rest, the text of line following the
// terminating colon (which may be empty, meaning the colon was the last
// character on the line).
func Tokenize(line string) (tokens []string, rest string, err error) {
	s := line
	for {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			return tokens, "", ErrNoColon
		}

		if s[0] == ':' {
			if isDeclTerminator(s) {
				return tokens, s[1:], nil
			}
			tok, next := scanBareWord(s)
			tokens = append(tokens, tok)
			s = next
			continue
		}

		switch s[0] {
		case '\'':
			tok, next, ok := scanSingleQuoted(s)
			if !ok {
				return nil, "", ErrUnterminatedQuote
			}
			tokens = append(tokens, tok)
			s = next
		case '"':
			tok, next, ok := scanDoubleQuoted(s)
			if !ok {
				return nil, "", ErrUnterminatedQuote
			}
			tokens = append(tokens, tok)
			s = next
		case '=':
			tokens = append(tokens, "=")
			s = s[1:]
		default:
			if !isBareWordChar(s[0]) {
				return nil, "", ErrNoColon
			}
			tok, next := scanBareWord(s)
			tokens = append(tokens, tok)
			s = next
		}
	}
}

// isDeclTerminator reports whether the colon at the front of s ends the
// declaration: it must be the last character on the line or be followed by
// whitespace.
func isDeclTerminator(s string) bool {
	if len(s) == 1 {
		return true
	}
	c := s[1]
	return c == ' ' || c == '\t' || c == '\r'
}

func isBareWordChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '_', '-', '/', '.', '*', '?', '[', ']', '{', '}', '!', ',':
		return true
	}
	return false
}

// scanBareWord consumes a run of bare-word characters, folding in any
// embedded (non-terminating) colons per the embedded-colon rule, and
// returns the token along with the unconsumed remainder of s.
func scanBareWord(s string) (tok string, rest string) {
	i := 0
	for i < len(s) {
		c := s[i]
		if isBareWordChar(c) {
			i++
			continue
		}
		if c == ':' && !isDeclTerminator(s[i:]) {
			i++
			continue
		}
		break
	}
	return s[:i], s[i:]
}

// ScanValue lexes a single value token that is not bounded by a terminating
// colon: the NAME=VALUE form used by global environment assignments. It
// tries the same quoted-string and bare-word classes as Tokenize, minus the
// colon handling that only applies to declaration lines.
func ScanValue(s string) (value string, rest string, err error) {
	s = strings.TrimLeft(s, " \t")
	if s == "" {
		return "", "", errors.New("empty value")
	}
	switch s[0] {
	case '\'':
		tok, next, ok := scanSingleQuoted(s)
		if !ok {
			return "", "", ErrUnterminatedQuote
		}
		return tok, next, nil
	case '"':
		tok, next, ok := scanDoubleQuoted(s)
		if !ok {
			return "", "", ErrUnterminatedQuote
		}
		return tok, next, nil
	default:
		if !isBareWordChar(s[0]) {
			return "", "", fmt.Errorf("invalid value at %q", s)
		}
		i := 0
		for i < len(s) && isBareWordChar(s[i]) {
			i++
		}
		return s[:i], s[i:], nil
	}
}

func scanSingleQuoted(s string) (tok string, rest string, ok bool) {
	end := strings.IndexByte(s[1:], '\'')
	if end < 0 {
		return "", "", false
	}
	end++ // account for the slice offset
	return s[1:end], s[end+1:], true
}

func scanDoubleQuoted(s string) (tok string, rest string, ok bool) {
	var b strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		if c == '"' {
			return b.String(), s[i+1:], true
		}
		if c == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(s[i+1])
			}
			i += 2
			continue
		}
		b.WriteByte(c)
		i++
	}
	return "", "", false
}
