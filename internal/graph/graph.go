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

// Package graph implements the dependency graph over process names used to
// order startup, shutdown, and readiness gating.
//
// Edges are kept by name rather than by direct struct reference so the
// graph can be built from a manifest before any process has been launched.
package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Graph holds forward (dependencies) and reverse (dependents) adjacency for
// a fixed set of process names.
type Graph struct {
	names        []string
	dependencies map[string][]string
	dependents   map[string][]string
}

// New builds a Graph over names, where deps[name] lists the names that name
// depends on (its "after" set). Every name referenced in deps must also
// appear in names; New panics if it does not, since that indicates an
// unvalidated manifest reached the graph.
func New(names []string, deps map[string][]string) *Graph {
	g := &Graph{
		names:        append([]string(nil), names...),
		dependencies: make(map[string][]string, len(names)),
		dependents:   make(map[string][]string, len(names)),
	}
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	for _, n := range names {
		for _, dep := range deps[n] {
			if !known[dep] {
				panic(fmt.Sprintf("graph: unknown dependency %q referenced by %q", dep, n))
			}
			g.dependencies[n] = append(g.dependencies[n], dep)
			g.dependents[dep] = append(g.dependents[dep], n)
		}
	}
	return g
}

// Names returns the process names in the graph, in the order New received
// them.
func (g *Graph) Names() []string {
	return append([]string(nil), g.names...)
}

// DependenciesOf returns the names that name directly depends on.
func (g *Graph) DependenciesOf(name string) []string {
	return append([]string(nil), g.dependencies[name]...)
}

// DependentsOf returns the names that directly depend on name.
func (g *Graph) DependentsOf(name string) []string {
	return append([]string(nil), g.dependents[name]...)
}

// Roots returns the names with no dependencies, i.e. the processes eligible
// to start first, in stable (sorted) order.
func (g *Graph) Roots() []string {
	var roots []string
	for _, n := range g.names {
		if len(g.dependencies[n]) == 0 {
			roots = append(roots, n)
		}
	}
	sort.Strings(roots)
	return roots
}

// color marks DFS visitation state for cycle detection.
type color int

const (
	white color = iota
	gray
	black
)

// DetectCycle runs a three-color DFS over the dependency edges and returns
// the first cycle found as a slice of names a -> b -> ... -> a, or nil if
// the graph is acyclic.
func (g *Graph) DetectCycle() []string {
	colors := make(map[string]color, len(g.names))
	var path []string

	var visit func(string) []string
	visit = func(n string) []string {
		colors[n] = gray
		path = append(path, n)
		for _, dep := range g.dependencies[n] {
			switch colors[dep] {
			case white:
				if cyc := visit(dep); cyc != nil {
					return cyc
				}
			case gray:
				start := 0
				for i, p := range path {
					if p == dep {
						start = i
						break
					}
				}
				cyc := append([]string(nil), path[start:]...)
				cyc = append(cyc, dep)
				return cyc
			}
		}
		path = path[:len(path)-1]
		colors[n] = black
		return nil
	}

	for _, n := range g.names {
		if colors[n] == white {
			if cyc := visit(n); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}

// CycleError formats a cycle slice the way parse errors report it:
// a -> b -> c -> a.
func CycleError(cycle []string) error {
	return fmt.Errorf("dependency cycle detected: %s", strings.Join(cycle, " -> "))
}

// ReverseTopological returns the process names in reverse topological
// order: a name appears only after everything that depends on it, making
// the order suitable for shutdown (dependents stop before their
// dependencies). It assumes the graph is acyclic; callers must run
// DetectCycle first.
func (g *Graph) ReverseTopological() []string {
	visited := make(map[string]bool, len(g.names))
	var post []string

	var visit func(string)
	visit = func(n string) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, dep := range g.dependencies[n] {
			visit(dep)
		}
		post = append(post, n)
	}

	names := append([]string(nil), g.names...)
	sort.Strings(names)
	for _, n := range names {
		visit(n)
	}

	// post is a post-order DFS over the "depends on" edges, which is
	// already a valid startup (topological) order. Reverse it for
	// shutdown order: dependents before dependencies.
	rev := make([]string, len(post))
	for i, n := range post {
		rev[len(post)-1-i] = n
	}
	return rev
}

// Topological returns a valid startup order: every name appears after all
// of its dependencies.
func (g *Graph) Topological() []string {
	rev := g.ReverseTopological()
	order := make([]string, len(rev))
	for i, n := range rev {
		order[len(rev)-1-i] = n
	}
	return order
}
