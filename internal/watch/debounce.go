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

package watch

import "time"

// ReadyIntent is one process's debounced reload intent: reload it because
// path last changed.
type ReadyIntent struct {
	Process string
	Path    string
}

type pending struct {
	recordedAt time.Time
	path       string
}

// defaultWindow is used only for a process SetWindow was never called for;
// it never overrides an explicitly configured window, including zero.
const defaultWindow = 500 * time.Millisecond

// Debouncer holds one pending reload intent per process, overwriting it
// every time a new matching event arrives, and the configured debounce
// window for each process.
type Debouncer struct {
	windows    map[string]time.Duration
	configured map[string]bool
	pending    map[string]pending
	now        func() time.Time
}

// NewDebouncer returns an empty debouncer. now defaults to time.Now; tests
// may override it.
func NewDebouncer() *Debouncer {
	return &Debouncer{
		windows:    make(map[string]time.Duration),
		configured: make(map[string]bool),
		pending:    make(map[string]pending),
		now:        time.Now,
	}
}

// SetWindow configures the debounce duration for process, including an
// explicit zero (no debounce at all) — distinct from a process that was
// never configured, which falls back to defaultWindow.
func (d *Debouncer) SetWindow(process string, window time.Duration) {
	d.windows[process] = window
	d.configured[process] = true
}

// Record overwrites the pending entry for process, resetting its clock to
// now and remembering path as the most recent one.
func (d *Debouncer) Record(process, path string) {
	d.pending[process] = pending{recordedAt: d.now(), path: path}
}

// Ready returns every process whose pending entry has sat for at least its
// debounce window, removing them from the pending set.
func (d *Debouncer) Ready() []ReadyIntent {
	now := d.now()
	var ready []ReadyIntent
	for name, p := range d.pending {
		window := defaultWindow
		if d.configured[name] {
			window = d.windows[name]
		}
		if now.Sub(p.recordedAt) >= window {
			ready = append(ready, ReadyIntent{Process: name, Path: p.path})
			delete(d.pending, name)
		}
	}
	return ready
}
