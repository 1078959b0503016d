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

package supervisor

import (
	"fmt"
	"sync/atomic"
	"time"

	"cirello.io/proctor/internal/format"
	"cirello.io/proctor/internal/output"
	"cirello.io/proctor/internal/readiness"
)

func toFormatSource(src output.Source) format.Source {
	if src == output.Stderr {
		return format.Stderr
	}
	return format.Stdout
}

const (
	probeInterval      = 250 * time.Millisecond
	probeTimeout       = 30 * time.Second
	probeProgressEvery = 5 * time.Second
)

// phaseA: external shutdown intake.
func (s *Supervisor) phaseA() {
	if !s.shuttingDown && atomic.LoadInt32(&s.shutdownFlag) == 1 {
		s.shuttingDown = true
	}
}

// phaseB: reverse-topological shutdown dispatch.
func (s *Supervisor) phaseB() {
	if !s.shuttingDown {
		return
	}
	for _, name := range s.g.ReverseTopological() {
		if s.signaled[name] {
			continue
		}
		p := s.processes[name]
		if !p.isRunning() {
			continue
		}
		if s.anyDependentRunning(name) {
			continue
		}
		p.handle.Signal(p.def.Options.Signal)
		p.reloadSignalSent = s.now()
		s.signaled[name] = true
	}
}

func (s *Supervisor) anyDependentRunning(name string) bool {
	for _, dep := range s.g.DependentsOf(name) {
		if s.processes[dep].isRunning() {
			return true
		}
	}
	return false
}

// phaseC: output drain.
func (s *Supervisor) phaseC() {
	for name, p := range s.processes {
		if p.pump == nil {
			continue
		}
		for {
			line, ok := p.pump.TryRecv()
			if !ok {
				break
			}
			s.print(s.fmt.Line(name, toFormatSource(line.Source), line.Content))
		}
	}
}

// phaseD: readiness driver.
func (s *Supervisor) phaseD() {
	now := s.now()
	for name, p := range s.processes {
		if p.isReady || !p.isRunning() || p.def.Options.Ready == nil {
			continue
		}
		if p.readyProbeStarted.IsZero() {
			p.readyProbeStarted = now
		}
		if !p.lastProbeCheck.IsZero() && now.Sub(p.lastProbeCheck) < probeInterval {
			continue
		}
		p.lastProbeCheck = now

		elapsed := now.Sub(p.readyProbeStarted)
		if readiness.Check(p.def.Options.Ready, s.man.Env) {
			p.isReady = true
			p.readyProbeStarted = time.Time{}
			s.print(s.fmt.Control(name, format.Ready, "probe passed"))
			continue
		}
		if elapsed >= probeTimeout {
			s.print(s.fmt.Control(name, format.TimedOut, fmt.Sprintf("%.0fs", probeTimeout.Seconds())))
			p.readyProbeStarted = time.Time{}
			s.shuttingDown = true
			s.exitCode = 1
			continue
		}
		if elapsed >= probeProgressEvery && (p.lastProbeProgress.IsZero() || now.Sub(p.lastProbeProgress) >= probeProgressEvery) {
			p.lastProbeProgress = now
			s.print(s.fmt.Control(name, format.Starting, fmt.Sprintf("probe pending (%ds)", int(elapsed.Seconds()))))
		}
	}
}

// phaseE: dependency-gated spawn.
func (s *Supervisor) phaseE() {
	for name := range s.processes {
		s.spawnIfReady(name)
	}
}

// phaseF: backoff relaxation.
func (s *Supervisor) phaseF() {
	now := s.now()
	for _, p := range s.processes {
		if !p.isRunning() || p.consecutiveFailures <= 0 {
			continue
		}
		base := p.lastStartTime
		if p.lastBackoffDecrease.After(base) {
			base = p.lastBackoffDecrease
		}
		if now.Sub(base) > backoff(p.consecutiveFailures) {
			p.consecutiveFailures--
			p.lastBackoffDecrease = now
		}
	}
}

// phaseG: exit reaping.
func (s *Supervisor) phaseG() {
	for name, p := range s.processes {
		if !p.isRunning() {
			continue
		}
		result, ok := p.handle.TryWait()
		if !ok {
			continue
		}
		s.guard.untrack(p.handle.Pid())
		s.drainOutput(name, p)

		status := classify(result)
		s.reap(name, p, status)

		p.handle = nil
		p.pump = nil
	}
}

func (s *Supervisor) drainOutput(name string, p *managedProcess) {
	if p.pump == nil {
		return
	}
	for {
		line, ok := p.pump.TryRecv()
		if !ok {
			return
		}
		s.print(s.fmt.Line(name, toFormatSource(line.Source), line.Content))
	}
}

func (s *Supervisor) reap(name string, p *managedProcess, status exitStatus) {
	switch {
	case p.def.Oneshot && status.success && !p.isReady:
		p.isReady = true
		s.print(s.fmt.Control(name, format.Ready, "exited successfully"))

	case p.def.Oneshot && !status.success && !s.shuttingDown:
		s.print(s.fmt.ControlSuffix(name, format.Crashed, status.String(), "aborting"))
		s.shuttingDown = true
		s.exitCode = 1

	case p.reloading && !s.shuttingDown:
		path := p.reloadPath
		p.clearReload()
		p.consecutiveFailures = 0
		s.print(s.fmt.Control(name, format.Restarting, path))
		s.spawn(name)

	case !p.def.Oneshot && !status.success && !s.shuttingDown:
		p.consecutiveFailures++
		delay := backoff(p.consecutiveFailures)
		p.scheduledRestart = s.now().Add(delay)
		s.print(s.fmt.Control(name, format.Crashed, status.String()))
		if delay == 0 {
			s.print(s.fmt.Control(name, format.Restarting, "now"))
		} else {
			s.print(s.fmt.Control(name, format.Restarting, fmt.Sprintf("in %.0fs", delay.Seconds())))
		}

	default:
		if status.success {
			s.print(s.fmt.Control(name, format.Finished, status.String()))
		} else {
			s.print(s.fmt.Control(name, format.Stopped, status.String()))
		}
	}
}

// phaseH: post-exit dependency check.
func (s *Supervisor) phaseH() {
	if !s.shuttingDown {
		s.phaseE()
	}
}

// phaseI: scheduled restart.
func (s *Supervisor) phaseI() {
	now := s.now()
	for name, p := range s.processes {
		if p.scheduledRestart.IsZero() || now.Before(p.scheduledRestart) {
			continue
		}
		p.scheduledRestart = time.Time{}
		s.spawn(name)
	}
}

// killOnTimeout is the shared idempotent mechanism behind phaseJ and
// phaseK: any managed process whose reloadSignalSent is older than its
// configured shutdown grace gets KILL sent once, then the clock is
// cleared so it is never signalled twice.
func (s *Supervisor) killOnTimeout() {
	now := s.now()
	for name, p := range s.processes {
		if p.reloadSignalSent.IsZero() || !p.isRunning() {
			continue
		}
		if now.Sub(p.reloadSignalSent) < p.def.Options.Shutdown {
			continue
		}
		p.handle.Kill()
		s.print(s.fmt.Control(name, format.Stopped, "kill -9"))
		p.reloadSignalSent = time.Time{}
	}
}

// phaseJ: shutdown completion and kill-on-timeout.
func (s *Supervisor) phaseJ() {
	if !s.shuttingDown {
		return
	}
	s.killOnTimeout()
}

// phaseK: reload-signal timeout for running reloads outside shutdown.
func (s *Supervisor) phaseK() {
	if s.shuttingDown {
		return
	}
	s.killOnTimeout()
}

// phaseL: watcher intake.
func (s *Supervisor) phaseL() {
	if s.shuttingDown || s.watcher == nil {
		return
	}
	for {
		ev, ok := s.watcher.TryRecv()
		if !ok {
			break
		}
		for name, m := range s.matchers {
			if m.Matches(ev.RelPath) {
				s.debouncer.Record(name, ev.RelPath)
			}
		}
	}
	for _, intent := range s.debouncer.Ready() {
		p := s.processes[intent.Process]
		if p == nil || !p.isRunning() || p.reloading {
			continue
		}
		p.reloading = true
		p.reloadSignalSent = s.now()
		p.reloadPath = intent.Path
		s.print(s.fmt.Control(intent.Process, format.Restarting, "kill -"+p.def.Options.Signal.String()))
		p.handle.Signal(p.def.Options.Signal)
	}
}

// phaseM: termination. Returns true when the driver should stop looping.
func (s *Supervisor) phaseM() bool {
	allDone := s.allDone()
	if !s.hasLongRunning() {
		return allDone
	}
	if s.watcher == nil {
		return allDone
	}
	return s.shuttingDown && allDone
}

// allDone reports whether every process has settled: not running, and not
// waiting on a scheduled crash-backoff restart or an in-flight reload. A
// process between reap() scheduling its restart and phaseI spawning it is
// not running yet, but it is not settled either.
func (s *Supervisor) allDone() bool {
	for _, p := range s.processes {
		if p.isRunning() || p.reloading || !p.scheduledRestart.IsZero() {
			return false
		}
	}
	return true
}
