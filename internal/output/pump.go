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

// Package output line-buffers a child's stdout and stderr concurrently and
// delivers tagged lines to the supervision loop through a non-blocking
// try-receive, so the single-threaded driver never blocks on a pipe.
package output

import (
	"bufio"
	"io"

	"golang.org/x/sync/errgroup"
)

// Source identifies which stream a Line came from.
type Source int

const (
	Stdout Source = iota
	Stderr
)

// Line is one tagged line of child output.
type Line struct {
	Process string
	Source  Source
	Content string
}

// maxLineSize bounds how large a single buffered line can grow before it is
// flushed regardless of a trailing newline; long lines are still delivered,
// just split.
const maxLineSize = 1 << 21 // 2 MiB, matching the teacher's scanner buffer

// Pump line-buffers one child's stdout and stderr on two background
// goroutines and exposes the result through TryRecv.
type Pump struct {
	process string
	lines   chan Line
	group   *errgroup.Group
	done    chan struct{}
}

// Start launches the two reader goroutines for stdout and stderr. Each
// goroutine returns when its pipe reaches end of file; there is nothing to
// close, and Drained reports when both have returned.
func Start(process string, stdout, stderr io.Reader) *Pump {
	p := &Pump{
		process: process,
		lines:   make(chan Line, 256),
		done:    make(chan struct{}),
	}
	g := &errgroup.Group{}
	g.Go(func() error { return p.scan(stdout, Stdout) })
	g.Go(func() error { return p.scan(stderr, Stderr) })
	p.group = g
	go func() {
		g.Wait()
		close(p.done)
	}()
	return p
}

func (p *Pump) scan(r io.Reader, src Source) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split(func(data []byte, atEOF bool) (int, []byte, error) {
		advance, tok, err := bufio.ScanLines(data, atEOF)
		if advance == 0 && tok == nil && err == nil && len(data) >= maxLineSize {
			return len(data), data, nil
		}
		return advance, tok, err
	})
	for scanner.Scan() {
		p.lines <- Line{Process: p.process, Source: src, Content: scanner.Text()}
	}
	return nil
}

// TryRecv returns the next buffered line without blocking. ok is false when
// nothing is pending right now; that does not mean the pump is empty for
// good unless Drained also reports true.
func (p *Pump) TryRecv() (line Line, ok bool) {
	select {
	case line = <-p.lines:
		return line, true
	default:
		return Line{}, false
	}
}

// Drained reports whether both reader goroutines have finished and every
// buffered line has already been delivered through TryRecv. Once true it
// stays true: the pump is permanently empty.
func (p *Pump) Drained() bool {
	select {
	case <-p.done:
	default:
		return false
	}
	select {
	case line, ok := <-p.lines:
		if ok {
			// Put it back; a line raced with done being closed.
			p.lines <- line
			return false
		}
	default:
	}
	return true
}
