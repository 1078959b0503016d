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

// Package watch maps file-system events to per-process reload intents: a
// glob matcher decides which processes care about a path, and a debouncer
// collapses a burst of events into one reload per process per window.
package watch

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher pairs a process name with its include/exclude glob sets.
type Matcher struct {
	Name     string
	includes []string
	excludes []string
}

// NewMatcher builds a Matcher from a manifest process's watch patterns,
// normalizing each by stripping a leading "./".
func NewMatcher(name string, patterns []Pattern) *Matcher {
	m := &Matcher{Name: name}
	for _, p := range patterns {
		normalized := normalizePattern(p.Pattern)
		if p.Exclude {
			m.excludes = append(m.excludes, normalized)
		} else {
			m.includes = append(m.includes, normalized)
		}
	}
	return m
}

// Pattern is the minimal shape Matcher needs from a manifest watch pattern,
// kept independent of the manifest package to avoid an import cycle.
type Pattern struct {
	Pattern string
	Exclude bool
}

func normalizePattern(p string) string {
	return strings.TrimPrefix(p, "./")
}

// Matches reports whether relPath matches this process's watch set: at
// least one include glob matches and no exclude glob matches. A matcher
// with no include patterns matches nothing.
func (m *Matcher) Matches(relPath string) bool {
	if len(m.includes) == 0 {
		return false
	}
	relPath = filepathToSlash(relPath)

	matched := false
	for _, inc := range m.includes {
		if ok, _ := doublestar.Match(inc, relPath); ok {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, exc := range m.excludes {
		if ok, _ := doublestar.Match(exc, relPath); ok {
			return false
		}
	}
	return true
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
