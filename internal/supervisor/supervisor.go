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

// Package supervisor implements the single-threaded cooperative driver
// that owns every managed process: dependency-gated spawning, readiness
// probing, crash recovery with exponential backoff, file-watch reloads,
// and reverse-topological graceful shutdown.
package supervisor

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	oversight "cirello.io/oversight/easy"
	"cirello.io/proctor/internal/format"
	"cirello.io/proctor/internal/graph"
	"cirello.io/proctor/internal/manifest"
	"cirello.io/proctor/internal/output"
	"cirello.io/proctor/internal/process"
	"cirello.io/proctor/internal/watch"
)

const pollInterval = 10 * time.Millisecond

// Options configures one supervisor run.
type Options struct {
	BaseDir      string
	Debug        bool
	Timestamp    bool
	Watch        bool
	UseGitignore bool
	HTMLLog      string
}

// Supervisor drives a parsed manifest from startup through shutdown.
type Supervisor struct {
	opts       Options
	man        *manifest.Manifest
	g          *graph.Graph
	fmt        *format.Formatter
	transcript *format.Transcript
	stdout     io.Writer
	processes map[string]*managedProcess
	matchers  map[string]*watch.Matcher

	watcher   *watch.Watcher
	debouncer *watch.Debouncer

	guard *shutdownGuard

	shutdownFlag int32
	shuttingDown bool
	signaled     map[string]bool

	// exitCode is set when a one-shot process aborts startup or a probe
	// times out, so the CLI layer can report a non-zero status.
	exitCode int

	now func() time.Time
}

// New builds a Supervisor for man, ready to Run.
func New(man *manifest.Manifest, opts Options) *Supervisor {
	deps := make(map[string][]string, len(man.Processes))
	for _, p := range man.Processes {
		deps[p.Name] = p.Options.After
	}
	g := graph.New(man.Names(), deps)

	s := &Supervisor{
		opts:       opts,
		man:        man,
		g:          g,
		fmt:        format.New(man.Names(), opts.Timestamp, time.Now()),
		transcript: format.NewTranscript(),
		stdout:     os.Stdout,
		processes:  make(map[string]*managedProcess, len(man.Processes)),
		matchers:   make(map[string]*watch.Matcher, len(man.Processes)),
		guard:      newShutdownGuard(),
		signaled:   make(map[string]bool),
		now:        time.Now,
	}
	for _, p := range man.Processes {
		s.processes[p.Name] = newManagedProcess(p)
		if len(p.WatchPatterns) > 0 {
			var patterns []watch.Pattern
			for _, wp := range p.WatchPatterns {
				patterns = append(patterns, watch.Pattern{Pattern: wp.Pattern, Exclude: wp.Exclude})
			}
			s.matchers[p.Name] = watch.NewMatcher(p.Name, patterns)
		}
	}
	return s
}

func (s *Supervisor) print(line string) {
	s.transcript.Append(line)
	io.WriteString(s.stdout, line+"\n")
}

func (s *Supervisor) hasLongRunning() bool {
	for _, p := range s.man.Processes {
		if !p.Oneshot {
			return true
		}
	}
	return false
}

func (s *Supervisor) hasWatchPatterns() bool {
	return len(s.matchers) > 0
}

// Run executes the full supervision loop until every process has settled
// (no watcher, nothing left running) or an external shutdown completes.
// It returns the process exit code the CLI should use.
func (s *Supervisor) Run(ctx context.Context) int {
	defer s.guard.killAll()

	if s.opts.Watch && s.hasWatchPatterns() {
		w, err := watch.New(s.opts.BaseDir, s.opts.UseGitignore)
		if err != nil {
			s.print(s.fmt.Error("proctor", "watcher error: "+err.Error()))
		} else {
			s.watcher = w
			s.debouncer = watch.NewDebouncer()
			for name, p := range s.processes {
				s.debouncer.SetWindow(name, p.def.Options.Debounce)
			}
			defer w.Close()
		}
	}

	sigCtx := oversight.WithContext(ctx)
	oversight.Add(sigCtx, s.listenForInterrupt, oversight.RestartWith(oversight.Transient()))

	for _, name := range s.startupOrder() {
		s.spawnIfReady(name)
	}

	for {
		s.phaseA()
		s.phaseB()
		s.phaseC()
		s.phaseD()
		s.phaseE()
		s.phaseF()
		s.phaseG()
		s.phaseH()
		s.phaseI()
		s.phaseJ()
		s.phaseK()
		s.phaseL()

		if s.phaseM() {
			break
		}
		time.Sleep(pollInterval)
	}

	if s.opts.HTMLLog != "" {
		s.transcript.WriteHTML(s.opts.HTMLLog)
	}
	return s.exitCode
}

// startupOrder is the dependency (topological) order roots-first; Phase E
// re-derives eligibility every iteration, this only controls which names
// are considered in the very first pass so logs read top-down.
func (s *Supervisor) startupOrder() []string {
	return s.g.Topological()
}

// listenForInterrupt is the one concurrent writer of shutdownFlag: it
// watches for the platform interrupt/terminate signal and sets the flag
// exactly once, idempotently, then returns.
func (s *Supervisor) listenForInterrupt(ctx context.Context) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(ch)
	select {
	case <-ch:
		atomic.StoreInt32(&s.shutdownFlag, 1)
	case <-ctx.Done():
	}
	return nil
}

func (s *Supervisor) spawn(name string) {
	p := s.processes[name]
	env := s.man.Env

	h, err := process.Spawn(process.Spec{
		Name:    name,
		Command: p.def.Command,
		BaseDir: s.opts.BaseDir,
		Dir:     p.def.Options.Dir,
		Env:     env,
		Debug:   s.opts.Debug,
	})
	if err != nil {
		s.print(s.fmt.Control(name, format.Crashed, "failed to start: "+err.Error()))
		return
	}

	p.handle = h
	p.pump = output.Start(name, h.Stdout, h.Stderr)
	p.started = true
	p.lastStartTime = s.now()
	p.scheduledRestart = time.Time{}
	p.isReady = !p.def.Oneshot && p.def.Options.Ready == nil
	s.guard.track(h.Pid(), h)

	if s.opts.Debug {
		s.print(s.fmt.Control(name, format.Exec, p.def.Command))
	}
	if p.isReady {
		s.print(s.fmt.Control(name, format.Ready, "started"))
	} else {
		s.print(s.fmt.Control(name, format.Starting, ""))
	}
}

// spawnIfReady spawns name if it hasn't started yet and every dependency
// is ready.
func (s *Supervisor) spawnIfReady(name string) {
	p := s.processes[name]
	if p.started {
		return
	}
	for _, dep := range p.def.Options.After {
		if !s.processes[dep].isReady {
			return
		}
	}
	s.spawn(name)
}
