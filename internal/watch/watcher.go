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

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Event is one normalized file-system change, relative to the watcher's
// base directory.
type Event struct {
	RelPath string
}

// Watcher recursively observes a base directory and emits normalized,
// metadata-filtered events. Callers drain it non-blockingly through
// TryRecv; the underlying fsnotify watcher runs its own goroutine.
type Watcher struct {
	base    string
	fsw     *fsnotify.Watcher
	events  chan Event
	errs    chan error
	ignorer gitignore.Matcher
}

// New starts watching base recursively. If useGitignore is true and a
// .gitignore exists at base, paths it excludes are filtered out of every
// event before matchers ever see them.
func New(base string, useGitignore bool) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("cannot initialise file watcher: %w", err)
	}

	w := &Watcher{
		base:   base,
		fsw:    fsw,
		events: make(chan Event, 1024),
		errs:   make(chan error, 1),
	}

	if useGitignore {
		if patterns, err := loadGitignore(base); err == nil && len(patterns) > 0 {
			w.ignorer = gitignore.NewMatcher(patterns)
		}
	}

	if err := filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if err := fsw.Add(path); err != nil {
				return nil
			}
		}
		return nil
	}); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("cannot walk base directory: %w", err)
	}

	go w.pump()
	return w, nil
}

func loadGitignore(base string) ([]gitignore.Pattern, error) {
	data, err := os.ReadFile(filepath.Join(base, ".gitignore"))
	if err != nil {
		return nil, err
	}
	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns, nil
}

func (w *Watcher) pump() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Chmod) && !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)) {
				continue // metadata-only change
			}
			rel, err := filepath.Rel(w.base, ev.Name)
			if err != nil {
				rel = ev.Name
			}
			rel = filepath.ToSlash(rel)
			if w.ignorer != nil && w.ignorer.Match(strings.Split(rel, "/"), false) {
				continue
			}
			select {
			case w.events <- Event{RelPath: rel}:
			default:
			}
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && (ev.Has(fsnotify.Create)) {
				w.fsw.Add(ev.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

// TryRecv returns the next pending event without blocking.
func (w *Watcher) TryRecv() (Event, bool) {
	select {
	case ev := <-w.events:
		return ev, true
	default:
		return Event{}, false
	}
}

// TryErr returns a watcher-level error without blocking, if one occurred.
func (w *Watcher) TryErr() (error, bool) {
	select {
	case err := <-w.errs:
		return err, true
	default:
		return nil, false
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
