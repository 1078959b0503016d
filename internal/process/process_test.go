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
	"bufio"
	"testing"
	"time"

	"cirello.io/proctor/internal/manifest"
)

func TestSpawnSimpleCommand(t *testing.T) {
	h, err := Spawn(Spec{Name: "test", Command: "echo hello", BaseDir: "."})
	if err != nil {
		t.Fatal(err)
	}
	scanner := bufio.NewScanner(h.Stdout)
	if !scanner.Scan() {
		t.Fatal("expected a line of output")
	}
	if scanner.Text() != "hello" {
		t.Errorf("got %q, want %q", scanner.Text(), "hello")
	}
	waitExit(t, h)
}

func TestSpawnWithEnv(t *testing.T) {
	h, err := Spawn(Spec{
		Name:    "test",
		Command: "echo $MY_VAR",
		BaseDir: ".",
		Env:     map[string]string{"MY_VAR": "test_value"},
	})
	if err != nil {
		t.Fatal(err)
	}
	scanner := bufio.NewScanner(h.Stdout)
	if !scanner.Scan() {
		t.Fatal("expected a line of output")
	}
	if scanner.Text() != "test_value" {
		t.Errorf("got %q, want %q", scanner.Text(), "test_value")
	}
	waitExit(t, h)
}

func TestSpawnWithWorkingDir(t *testing.T) {
	h, err := Spawn(Spec{Name: "test", Command: "pwd", BaseDir: ".", Dir: "testdata"})
	if err != nil {
		t.Fatal(err)
	}
	scanner := bufio.NewScanner(h.Stdout)
	if !scanner.Scan() {
		t.Fatal("expected a line of output")
	}
	if got := scanner.Text(); got == "" || got[len(got)-len("testdata"):] != "testdata" {
		t.Errorf("pwd = %q, want suffix testdata", got)
	}
	waitExit(t, h)
}

func TestSignalProcess(t *testing.T) {
	h, err := Spawn(Spec{Name: "test", Command: "sleep 60", BaseDir: "."})
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Signal(manifest.SignalTERM); err != nil {
		t.Fatal(err)
	}
	deadline := time.After(5 * time.Second)
	for {
		if result, ok := h.TryWait(); ok {
			if result.Err == nil {
				t.Error("expected a non-zero exit after SIGTERM")
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("process did not exit after SIGTERM")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func waitExit(t *testing.T, h *Handle) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if _, ok := h.TryWait(); ok {
			return
		}
		select {
		case <-deadline:
			t.Fatal("process did not exit in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
