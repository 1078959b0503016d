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

package format

import (
	"strings"
	"testing"
	"time"
)

func TestColorForNameIsDeterministic(t *testing.T) {
	c1 := colorForName("api")
	c2 := colorForName("api")
	if c1 != c2 {
		t.Errorf("color_for_name not deterministic: %v != %v", c1, c2)
	}
}

func TestColorForNameVariesAcrossNames(t *testing.T) {
	c1 := colorForName("api")
	c2 := colorForName("worker")
	if c1 == c2 {
		t.Skip("hash collision between these two names is possible, not a defect")
	}
}

func TestPaletteExcludesExtremes(t *testing.T) {
	for _, c := range usablePalette {
		idx := int(c) - 16
		r, g, b := idx/36, (idx%36)/6, idx%6
		sum := r + g + b
		if sum < 3 || sum > 12 {
			t.Errorf("palette entry %d has sum %d, want within [3,12]", c, sum)
		}
	}
}

func TestPrefixAlignment(t *testing.T) {
	f := New([]string{"api", "worker", "frontend"}, false, time.Now())
	line := f.Line("api", Stdout, "hello")
	if !strings.Contains(line, "api") || !strings.Contains(line, "hello") || !strings.Contains(line, "|") {
		t.Errorf("line = %q, missing expected structure", line)
	}
	if !strings.Contains(line, "     api |") {
		t.Errorf("line = %q, want api padded to the width of frontend", line)
	}
}

func TestStderrStylingDiffersFromStdout(t *testing.T) {
	f := New([]string{"test"}, false, time.Now())
	out := f.Line("test", Stdout, "out")
	err := f.Line("test", Stderr, "err")
	if out == err {
		t.Error("stdout and stderr lines rendered identically")
	}
}

func TestControlRendersGlyphAndDetail(t *testing.T) {
	f := New([]string{"api"}, false, time.Now())
	line := f.Control("api", Crashed, "exit 1")
	if !strings.Contains(line, "Crashed(exit 1)") {
		t.Errorf("line = %q, want Crashed(exit 1)", line)
	}
}

func TestControlWithoutDetail(t *testing.T) {
	f := New([]string{"api"}, false, time.Now())
	line := f.Control("api", Ready, "")
	if !strings.Contains(line, "Ready") {
		t.Errorf("line = %q, want Ready", line)
	}
}

func TestContinuationPrefixOnMultilineContent(t *testing.T) {
	f := New([]string{"api"}, false, time.Now())
	line := f.Control("api", Restarting, "")
	_ = line
	multi := f.continuation("first\nsecond", func(s string) string { return s })
	if !strings.Contains(multi, "↳ second") {
		t.Errorf("multi = %q, want continuation prefix", multi)
	}
}

func TestElapsedColumnPresentWhenTimestampEnabled(t *testing.T) {
	f := New([]string{"api"}, true, time.Now().Add(-90*time.Second))
	line := f.Line("api", Stdout, "hello")
	if !strings.Contains(line, "m") || !strings.Contains(line, "s]") {
		t.Errorf("line = %q, want elapsed column", line)
	}
}

func TestElapsedColumnAbsentByDefault(t *testing.T) {
	f := New([]string{"api"}, false, time.Now())
	line := f.Line("api", Stdout, "hello")
	if strings.HasPrefix(line, "[") {
		t.Errorf("line = %q, elapsed column should be absent", line)
	}
}

func TestElapsedColumnScaling(t *testing.T) {
	if got := elapsedColumn(5 * time.Second); !strings.Contains(got, "5.0s") {
		t.Errorf("elapsedColumn(5s) = %q", got)
	}
	if got := elapsedColumn(90 * time.Second); !strings.Contains(got, "1m30s") {
		t.Errorf("elapsedColumn(90s) = %q", got)
	}
	if got := elapsedColumn(90 * time.Minute); !strings.Contains(got, "1h30m") {
		t.Errorf("elapsedColumn(90m) = %q", got)
	}
}
