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

// Package manifest parses a proctor manifest into a validated set of
// ProcessDef values plus global environment assignments, ready to be
// handed to the dependency graph and supervisor.
package manifest

import "time"

// Signal is a reload/terminate signal, restricted to the subset the
// manifest format accepts.
type Signal int

// Recognized reload signals.
const (
	SignalTERM Signal = iota
	SignalHUP
	SignalINT
	SignalKILL
	SignalUSR1
	SignalUSR2
)

func (s Signal) String() string {
	switch s {
	case SignalHUP:
		return "HUP"
	case SignalINT:
		return "INT"
	case SignalTERM:
		return "TERM"
	case SignalKILL:
		return "KILL"
	case SignalUSR1:
		return "USR1"
	case SignalUSR2:
		return "USR2"
	default:
		return "TERM"
	}
}

// ProbeKind tags the variant held by a Probe.
type ProbeKind int

const (
	ProbeTCP ProbeKind = iota
	ProbeHTTP
	ProbeExec
)

// Probe is a readiness probe specification, a tagged union over ProbeKind.
type Probe struct {
	Kind ProbeKind

	// Tcp, Http
	Port uint16

	// Http only
	Path           string
	ExpectedStatus *int

	// Exec only
	Command string
}

// WatchPattern is one glob entry in a process's watch set.
type WatchPattern struct {
	Pattern string
	Exclude bool
}

// Options holds the resolved, defaulted option set of a ProcessDef.
type Options struct {
	After    []string
	Ready    *Probe
	Signal   Signal
	Debounce time.Duration
	Dir      string
	Shutdown time.Duration
}

// DefaultOptions returns the option defaults applied before parsing
// overrides them: no dependencies, no probe, TERM, 500ms debounce, base
// directory, 5s shutdown grace.
func DefaultOptions() Options {
	return Options{
		Signal:   SignalTERM,
		Debounce: 500 * time.Millisecond,
		Shutdown: 5 * time.Second,
	}
}

// ProcessDef is one named process declaration, immutable once parsed.
type ProcessDef struct {
	Name          string
	Oneshot       bool
	Command       string
	WatchPatterns []WatchPattern
	Options       Options
	Line          int
}

// Manifest is the ordered sequence of process declarations plus the global
// environment assignments collected along the way.
type Manifest struct {
	Processes []*ProcessDef
	Env       map[string]string
}

// ByName returns the process with the given name, or nil.
func (m *Manifest) ByName(name string) *ProcessDef {
	for _, p := range m.Processes {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Names returns the process names in declaration order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Processes))
	for i, p := range m.Processes {
		names[i] = p.Name
	}
	return names
}
