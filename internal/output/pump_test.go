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

package output

import (
	"strings"
	"testing"
	"time"
)

func TestPumpTagsBothStreams(t *testing.T) {
	stdout := strings.NewReader("one\ntwo\n")
	stderr := strings.NewReader("bad\n")

	p := Start("api", stdout, stderr)

	var got []Line
	deadline := time.After(2 * time.Second)
	for len(got) < 3 {
		if line, ok := p.TryRecv(); ok {
			got = append(got, line)
			continue
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for lines, got %d of 3: %v", len(got), got)
		case <-time.After(time.Millisecond):
		}
	}

	var stdoutLines, stderrLines int
	for _, l := range got {
		if l.Process != "api" {
			t.Errorf("line %+v has wrong process tag", l)
		}
		switch l.Source {
		case Stdout:
			stdoutLines++
		case Stderr:
			stderrLines++
		}
	}
	if stdoutLines != 2 || stderrLines != 1 {
		t.Errorf("stdoutLines=%d stderrLines=%d, want 2 and 1", stdoutLines, stderrLines)
	}
}

func TestPumpDrainedAfterExhaustion(t *testing.T) {
	p := Start("api", strings.NewReader("hi\n"), strings.NewReader(""))

	deadline := time.After(2 * time.Second)
	for {
		if p.Drained() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("pump never reported drained")
		case <-time.After(time.Millisecond):
		}
		p.TryRecv()
	}

	if _, ok := p.TryRecv(); ok {
		t.Error("drained pump should have nothing left to receive")
	}
}
