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

// Package process launches a manifest command under a shell, in its own
// process group, with piped stdio, and signals the group as a whole.
package process

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"cirello.io/proctor/internal/manifest"
)

// Handle is a spawned child together with its process-group id.
type Handle struct {
	Name   string
	cmd    *exec.Cmd
	Stdout io.ReadCloser
	Stderr io.ReadCloser

	exited chan ExitResult
}

// ExitResult is the outcome of a child's Wait(), captured off the driver's
// goroutine so the supervision loop can reap it non-blockingly.
type ExitResult struct {
	State *os.ProcessState
	Err   error
}

// Spec describes how to spawn one process.
type Spec struct {
	Name    string
	Command string
	BaseDir string
	Dir     string // relative to BaseDir, optional
	Env     map[string]string
	Debug   bool
}

// Shell returns $SHELL, defaulting to /bin/sh.
func Shell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// Spawn starts spec.Command under Shell() -c, in a fresh process group,
// with stdin attached to the null device and stdout/stderr piped.
func Spawn(spec Spec) (*Handle, error) {
	workDir := spec.BaseDir
	if spec.Dir != "" {
		workDir = filepath.Join(spec.BaseDir, spec.Dir)
	}

	command := spec.Command
	if spec.Debug {
		command = "set -x; " + command
	}

	c := newCmd(Shell(), command)
	c.Dir = workDir

	if len(spec.Env) > 0 {
		env := append([]string(nil), os.Environ()...)
		for k, v := range spec.Env {
			env = append(env, k+"="+v)
		}
		c.Env = env
	}

	devNull, err := os.Open(os.DevNull)
	if err != nil {
		return nil, fmt.Errorf("process %s: cannot open null device: %w", spec.Name, err)
	}
	c.Stdin = devNull

	stdout, err := c.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("process %s: cannot open stdout pipe: %w", spec.Name, err)
	}
	stderr, err := c.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("process %s: cannot open stderr pipe: %w", spec.Name, err)
	}

	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("process %s: cannot start: %w", spec.Name, err)
	}

	h := &Handle{Name: spec.Name, cmd: c, Stdout: stdout, Stderr: stderr, exited: make(chan ExitResult, 1)}

	// Wait() must be called exactly once to reap the child and release
	// its resources; the driver never blocks on it, it only polls
	// exited non-blockingly in TryWait.
	go func() {
		err := c.Wait()
		h.exited <- ExitResult{State: c.ProcessState, Err: err}
	}()

	return h, nil
}

// Pid returns the child's process id, which doubles as its process-group
// id since every child is started as its own group leader.
func (h *Handle) Pid() int {
	return h.cmd.Process.Pid
}

// Signal converts sig to the matching operating-system signal and sends it
// to the whole process group.
func (h *Handle) Signal(sig manifest.Signal) error {
	return signalGroup(h.Pid(), sig)
}

// Kill sends KILL to the whole process group.
func (h *Handle) Kill() error {
	return signalGroup(h.Pid(), manifest.SignalKILL)
}

// TryWait reports whether the child has exited. It never blocks; ok is
// false while the child is still running.
func (h *Handle) TryWait() (result ExitResult, ok bool) {
	select {
	case result = <-h.exited:
		return result, true
	default:
		return ExitResult{}, false
	}
}
