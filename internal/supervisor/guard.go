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

import "sync"

// shutdownGuard tracks the process-group ids of every live child. On
// abnormal teardown (a panic unwinding the driver's call stack) it force-
// kills every tracked group, so a crash in the driver never leaks running
// children. Under normal operation, groups are untracked as each child is
// reaped through the ordinary reverse-topological shutdown.
type shutdownGuard struct {
	mu   sync.Mutex
	pids map[int]killer
}

// killer is the subset of *process.Handle the guard needs; declared as an
// interface so tests can install a fake.
type killer interface {
	Kill() error
}

func newShutdownGuard() *shutdownGuard {
	return &shutdownGuard{pids: make(map[int]killer)}
}

func (g *shutdownGuard) track(pid int, h killer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pids[pid] = h
}

func (g *shutdownGuard) untrack(pid int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pids, pid)
}

// killAll unconditionally force-kills every tracked process group. It is
// safe to call more than once; once a pid has been killed it stays
// tracked only until the caller also calls untrack for it.
func (g *shutdownGuard) killAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, h := range g.pids {
		h.Kill()
	}
}
