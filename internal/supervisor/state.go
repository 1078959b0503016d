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
	"strconv"
	"time"

	"cirello.io/proctor/internal/manifest"
	"cirello.io/proctor/internal/output"
	"cirello.io/proctor/internal/process"
)

// managedProcess is the mutable runtime state the driver tracks for one
// ProcessDef, one per manifest entry for the life of the supervisor.
type managedProcess struct {
	def *manifest.ProcessDef

	handle *process.Handle
	pump   *output.Pump

	isReady bool
	started bool

	readyProbeStarted time.Time
	lastProbeCheck    time.Time
	lastProbeProgress time.Time

	reloading        bool
	reloadSignalSent time.Time
	reloadPath       string

	consecutiveFailures int
	lastStartTime       time.Time
	scheduledRestart    time.Time
	lastBackoffDecrease time.Time
}

func newManagedProcess(def *manifest.ProcessDef) *managedProcess {
	return &managedProcess{def: def}
}

func (m *managedProcess) isRunning() bool {
	return m.handle != nil
}

func (m *managedProcess) clearReload() {
	m.reloading = false
	m.reloadSignalSent = time.Time{}
	m.reloadPath = ""
}

// backoff implements backoff(0)=0, backoff(n)=2^min(n-1,5) seconds for
// n>=1: 1, 2, 4, 8, 16, 32, 32, 32...
func backoff(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}
	shift := failures - 1
	if shift > 5 {
		shift = 5
	}
	return time.Duration(1<<uint(shift)) * time.Second
}

// exitStatus classifies a process.ExitResult into the three outcomes the
// reaping phase distinguishes: clean success, a numbered failure code, or
// termination by signal.
type exitStatus struct {
	success  bool
	exitCode int
	signaled bool
	signal   string
}

func (s exitStatus) String() string {
	switch {
	case s.success:
		return "exit 0"
	case s.signaled:
		return "signal " + s.signal
	default:
		return "exit " + strconv.Itoa(s.exitCode)
	}
}
