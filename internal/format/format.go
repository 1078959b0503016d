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

// Package format renders output lines and control events into the
// prefixed, colorized text the supervisor prints to the terminal. Every
// exported function here is a pure function of its arguments: the package
// owns no process state, only a padded-prefix width and a start time for
// the optional elapsed-time column.
package format

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/muesli/termenv"
)

// Source identifies which stream an output line came from.
type Source int

const (
	Stdout Source = iota
	Stderr
)

// Event is a control-plane transition the supervisor reports about a
// process (readiness, exit, restart, ...), as opposed to its own stdout
// or stderr output.
type Event int

const (
	Starting Event = iota
	Ready
	Finished
	Stopped
	Crashed
	Restarting
	TimedOut
	Exec
)

var eventGlyph = map[Event]string{
	Starting:   "▶",
	Ready:      "●",
	Finished:   "✔",
	Stopped:    "☠",
	Crashed:    "✘",
	Restarting: "↻",
	TimedOut:   "⏱",
	Exec:       "$",
}

var eventColor = map[Event]termenv.Color{
	Starting:   termenv.ANSI256Color(6),
	Ready:      termenv.ANSI256Color(2),
	Finished:   termenv.ANSI256Color(2),
	Stopped:    termenv.ANSI256Color(1),
	Crashed:    termenv.ANSI256Color(1),
	Restarting: termenv.ANSI256Color(3),
	TimedOut:   termenv.ANSI256Color(1),
	Exec:       termenv.ANSI256Color(6),
}

// usablePalette is the 6x6x6 color cube (codes 17-231), filtered to drop
// cells that render too dark or too light to read comfortably on either a
// light or dark terminal background.
var usablePalette = buildPalette()

func buildPalette() []uint8 {
	var palette []uint8
	for c := 17; c <= 231; c++ {
		idx := c - 16
		r := idx / 36
		g := (idx % 36) / 6
		b := idx % 6
		sum := r + g + b
		if sum >= 3 && sum <= 12 {
			palette = append(palette, uint8(c))
		}
	}
	return palette
}

// colorForName deterministically hashes name onto the filtered palette, so
// the same process name always renders in the same color across a run.
func colorForName(name string) termenv.Color {
	h := fnv.New64a()
	h.Write([]byte(name))
	idx := h.Sum64() % uint64(len(usablePalette))
	return termenv.ANSI256Color(usablePalette[idx])
}

// Formatter renders output lines and control events with a shared,
// alignment-consistent prefix column.
type Formatter struct {
	maxNameLen int
	profile    termenv.Profile
	start      time.Time
	timestamp  bool
}

// New builds a Formatter whose prefix column is wide enough for the
// longest name in names. When timestamp is true, every rendered line is
// preceded by an elapsed-time column measured from start.
func New(names []string, timestamp bool, start time.Time) *Formatter {
	max := 0
	for _, n := range names {
		if len(n) > max {
			max = len(n)
		}
	}
	return &Formatter{
		maxNameLen: max,
		profile:    termenv.ANSI256,
		start:      start,
		timestamp:  timestamp,
	}
}

func (f *Formatter) prefix(name string) string {
	return fmt.Sprintf("%*s |", f.maxNameLen, name)
}

func (f *Formatter) elapsed() string {
	if !f.timestamp {
		return ""
	}
	return elapsedColumn(time.Since(f.start)) + " "
}

// elapsedColumn renders a duration in a compact, auto-scaling form: sub-
// second precision under a minute, minutes+seconds under an hour,
// hours+minutes beyond that.
func elapsedColumn(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("[%5.1fs]", d.Seconds())
	case d < time.Hour:
		m := int(d.Minutes())
		s := int(d.Seconds()) - m*60
		return fmt.Sprintf("[%dm%02ds]", m, s)
	default:
		h := int(d.Hours())
		m := int(d.Minutes()) - h*60
		return fmt.Sprintf("[%dh%02dm]", h, m)
	}
}

// Line renders one line of raw process output, dim+italic when it came
// from stderr.
func (f *Formatter) Line(name string, source Source, content string) string {
	color := colorForName(name)
	styledPrefix := f.profile.String(f.prefix(name)).Foreground(color)
	if source == Stderr {
		styledPrefix = styledPrefix.Faint().Italic()
		content = f.profile.String(content).Faint().Italic().String()
	}
	return f.continuation(content, func(first string) string {
		return f.elapsed() + styledPrefix.String() + " " + first
	})
}

// Control renders a control-plane transition: a glyph, the event name,
// and an optional detail string (e.g. an exit status or a restart delay).
func (f *Formatter) Control(name string, event Event, detail string) string {
	return f.control(name, event, detail, "")
}

// ControlSuffix is Control plus a trailing annotation appended after the
// closing paren, e.g. "Crashed(exit 1) (aborting)".
func (f *Formatter) ControlSuffix(name string, event Event, detail, suffix string) string {
	return f.control(name, event, detail, suffix)
}

func (f *Formatter) control(name string, event Event, detail, suffix string) string {
	color := colorForName(name)
	styledPrefix := f.profile.String(f.prefix(name)).Foreground(color).Faint()
	glyph := eventGlyph[event]
	msgColor := eventColor[event]

	msg := eventName(event)
	if detail != "" {
		msg = fmt.Sprintf("%s(%s)", msg, detail)
	}
	if suffix != "" {
		msg = fmt.Sprintf("%s (%s)", msg, suffix)
	}
	styledMsg := f.profile.String(glyph + " " + msg).Foreground(msgColor)

	return f.continuation(styledMsg.String(), func(first string) string {
		return f.elapsed() + styledPrefix.String() + " " + first
	})
}

// Error renders a supervisor-level error attributed to a process, e.g. a
// spawn failure, in bold red.
func (f *Formatter) Error(name string, message string) string {
	color := colorForName(name)
	styledPrefix := f.profile.String(f.prefix(name)).Foreground(color).Faint()
	styledMsg := f.profile.String(message).Foreground(termenv.ANSI256Color(1)).Bold()
	return f.elapsed() + styledPrefix.String() + " " + styledMsg.String()
}

// continuation renders content as a first line plus "↳"-prefixed
// continuation lines for every subsequent line in a multiline message.
func (f *Formatter) continuation(content string, renderFirst func(string) string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, len(lines))
	out[0] = renderFirst(lines[0])
	for i := 1; i < len(lines); i++ {
		out[i] = strings.Repeat(" ", f.maxNameLen+2) + "↳ " + lines[i]
	}
	return strings.Join(out, "\n")
}

func eventName(e Event) string {
	switch e {
	case Starting:
		return "Starting"
	case Ready:
		return "Ready"
	case Finished:
		return "Finished"
	case Stopped:
		return "Stopped"
	case Crashed:
		return "Crashed"
	case Restarting:
		return "Restarting"
	case TimedOut:
		return "TimedOut"
	case Exec:
		return "Exec"
	default:
		return "Unknown"
	}
}
