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

package token

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTokenizeSimple(t *testing.T) {
	tokens, rest, err := Tokenize("api **/*.go after=db: go run ./cmd/api")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []string{"api", "**/*.go", "after", "=", "db"}
	if diff := cmp.Diff(want, tokens); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
	if rest != " go run ./cmd/api" {
		t.Errorf("rest = %q, want %q", rest, " go run ./cmd/api")
	}
}

func TestTokenizeEmbeddedColon(t *testing.T) {
	tokens, rest, err := Tokenize("api ready=exec:: true")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []string{"api", "ready", "=", "exec:"}
	if diff := cmp.Diff(want, tokens); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
	if rest != " true" {
		t.Errorf("rest = %q, want %q", rest, " true")
	}
}

func TestTokenizeEmbeddedColonInValue(t *testing.T) {
	tokens, rest, err := Tokenize("api ready=http:8080/health: cmd")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []string{"api", "ready", "=", "http:8080/health"}
	if diff := cmp.Diff(want, tokens); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
	if rest != " cmd" {
		t.Errorf("rest = %q, want %q", rest, " cmd")
	}
}

func TestTokenizeQuoted(t *testing.T) {
	tokens, rest, err := Tokenize(`api dir='my dir' ready="http: 8080": cmd`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []string{"api", "dir", "=", "my dir", "ready", "=", "http: 8080"}
	if diff := cmp.Diff(want, tokens); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
	if rest != " cmd" {
		t.Errorf("rest = %q, want %q", rest, " cmd")
	}
}

func TestTokenizeDoubleQuoteEscapes(t *testing.T) {
	tokens, rest, err := Tokenize(`api msg="line\nbreak\ttab": cmd`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if tokens[len(tokens)-1] != "line\nbreak\ttab" {
		t.Errorf("token = %q", tokens[len(tokens)-1])
	}
	if rest != " cmd" {
		t.Errorf("rest = %q", rest)
	}
}

func TestTokenizeColonAtEndOfLine(t *testing.T) {
	tokens, rest, err := Tokenize("migrate!:")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if diff := cmp.Diff([]string{"migrate!"}, tokens); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
	if rest != "" {
		t.Errorf("rest = %q, want empty", rest)
	}
}

func TestTokenizeMissingColon(t *testing.T) {
	_, _, err := Tokenize("api go run ./cmd/api")
	if err != ErrNoColon {
		t.Fatalf("err = %v, want ErrNoColon", err)
	}
}

func TestTokenizeUnterminatedSingleQuote(t *testing.T) {
	_, _, err := Tokenize("api dir='unterminated: cmd")
	if err != ErrUnterminatedQuote {
		t.Fatalf("err = %v, want ErrUnterminatedQuote", err)
	}
}

func TestTokenizeUnterminatedDoubleQuote(t *testing.T) {
	_, _, err := Tokenize(`api msg="unterminated: cmd`)
	if err != ErrUnterminatedQuote {
		t.Fatalf("err = %v, want ErrUnterminatedQuote", err)
	}
}

func TestTokenizeEmpty(t *testing.T) {
	tokens, _, err := Tokenize("")
	if err != ErrNoColon {
		t.Fatalf("err = %v, want ErrNoColon", err)
	}
	if len(tokens) != 0 {
		t.Errorf("tokens = %v, want empty", tokens)
	}
}

func TestTokenizeLiteralEqualsNoSpaces(t *testing.T) {
	tokens, _, err := Tokenize("worker after=api,db signal=term:")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []string{"worker", "after", "=", "api,db", "signal", "=", "term"}
	if diff := cmp.Diff(want, tokens); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}
