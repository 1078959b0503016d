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

//go:build !windows
// +build !windows

package process

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"cirello.io/proctor/internal/manifest"
)

// newCmd builds the exec.Cmd for shell -c command, placing the child in a
// new process group whose leader is the child itself. os/exec pins this
// field's type to *syscall.SysProcAttr; the rest of the package's
// platform-specific work goes through golang.org/x/sys/unix instead.
func newCmd(shell, command string) *exec.Cmd {
	c := exec.Command(shell, "-c", command)
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return c
}

// signalGroup sends sig to the process group led by pid.
func signalGroup(pid int, sig manifest.Signal) error {
	return unix.Kill(-pid, sigFor(sig))
}

func sigFor(sig manifest.Signal) unix.Signal {
	switch sig {
	case manifest.SignalHUP:
		return unix.SIGHUP
	case manifest.SignalINT:
		return unix.SIGINT
	case manifest.SignalTERM:
		return unix.SIGTERM
	case manifest.SignalKILL:
		return unix.SIGKILL
	case manifest.SignalUSR1:
		return unix.SIGUSR1
	case manifest.SignalUSR2:
		return unix.SIGUSR2
	default:
		return unix.SIGTERM
	}
}
