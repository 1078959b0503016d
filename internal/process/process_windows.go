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

//go:build windows
// +build windows

package process

import (
	"os"
	"os/exec"

	"cirello.io/proctor/internal/manifest"
)

// newCmd builds the exec.Cmd for shell -c command. Windows has no process
// group primitive equivalent to Unix's setpgid/killpg, so only the direct
// child is ever signalled; descendants it spawns itself are not reachable
// as a group.
func newCmd(shell, command string) *exec.Cmd {
	return exec.Command(shell, "-c", command)
}

// signalGroup approximates group signalling on Windows: os.Interrupt for
// anything but KILL, Kill() otherwise. There is no process-group id to
// target, so only the immediate child is affected.
func signalGroup(pid int, sig manifest.Signal) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if sig == manifest.SignalKILL {
		return proc.Kill()
	}
	if err := proc.Signal(os.Interrupt); err != nil {
		return proc.Kill()
	}
	return nil
}
