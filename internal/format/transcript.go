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
	"fmt"
	"html/template"
	"os"
	"sync"

	terminal "github.com/buildkite/terminal-to-html/v3"
)

// Transcript accumulates every rendered line of a run (ANSI codes
// included) so the full session can be replayed later as a static HTML
// page, for runs started with --html-log.
type Transcript struct {
	mu    sync.Mutex
	lines []string
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append records one already-formatted line.
func (t *Transcript) Append(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
}

var pageTemplate = template.Must(template.New("html-log").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>proctor session log</title>
<style>
body { background: #1d1f21; color: #c5c8c6; font-family: monospace; white-space: pre-wrap; }
</style>
</head>
<body>{{.}}</body>
</html>
`))

// WriteHTML renders the full transcript through terminal-to-html and
// writes it to path.
func (t *Transcript) WriteHTML(path string) error {
	t.mu.Lock()
	raw := make([]byte, 0)
	for _, line := range t.lines {
		raw = append(raw, []byte(line+"\n")...)
	}
	t.mu.Unlock()

	rendered := terminal.Render(raw)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create html log: %w", err)
	}
	defer f.Close()

	if err := pageTemplate.Execute(f, template.HTML(rendered)); err != nil {
		return fmt.Errorf("cannot render html log: %w", err)
	}
	return nil
}
