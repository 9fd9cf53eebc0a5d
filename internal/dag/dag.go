// SPDX-License-Identifier: MPL-2.0

// Package dag provides a deterministic depth-first topological sort with cycle
// reporting. Nodes are visited in insertion order, and each node's dependencies
// are visited in the insertion order of the dependency nodes, so callers control
// tie-breaking by choosing the order in which they add nodes.
package dag

import (
	"fmt"
	"slices"
	"strings"
)

const (
	unvisited visitState = iota
	onPath
	finalized
)

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle is the closed walk that was found, starting and ending with the
		// same node (for example [A B A], or [A A] for a self-loop).
		Cycle []string
	}

	// Graph is a directed graph for topological sorting.
	// Edges point from a dependent to its dependency: an edge from A to B means
	// B must be ordered before A.
	Graph struct {
		// deps maps each node to the nodes it depends on, deduplicated.
		deps map[string][]string
		// edgeSet deduplicates edges.
		edgeSet map[edge]struct{}
		// nodes tracks all nodes in insertion order.
		nodes []string
		// index maps a node to its insertion position.
		index map[string]int
	}

	edge struct {
		from string
		to   string
	}

	visitState uint8

	// frame is one entry of the explicit DFS stack.
	frame struct {
		node string
		deps []string
		next int
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		deps:    make(map[string][]string),
		edgeSet: make(map[edge]struct{}),
		index:   make(map[string]int),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if _, ok := g.index[name]; ok {
		return
	}
	g.index[name] = len(g.nodes)
	g.nodes = append(g.nodes, name)
}

// AddEdge records that dependent requires dependency to be ordered first.
// Both nodes are implicitly added if they don't exist. Repeated edges are ignored.
func (g *Graph) AddEdge(dependent, dependency string) {
	g.AddNode(dependent)
	g.AddNode(dependency)
	e := edge{from: dependent, to: dependency}
	if _, ok := g.edgeSet[e]; ok {
		return
	}
	g.edgeSet[e] = struct{}{}
	g.deps[dependent] = append(g.deps[dependent], dependency)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.nodes)
}

// Dependencies returns the direct dependencies of name in visiting order.
func (g *Graph) Dependencies(name string) []string {
	return g.sortedDeps(name)
}

// sortedDeps orders a node's dependencies by their insertion index.
func (g *Graph) sortedDeps(name string) []string {
	deps := slices.Clone(g.deps[name])
	slices.SortFunc(deps, func(a, b string) int {
		return g.index[a] - g.index[b]
	})
	return deps
}

// TopologicalSort returns the nodes ordered so that every node appears after all
// of its dependencies. The walk is depth-first and post-order: roots are taken in
// insertion order, and dependencies are expanded in insertion order too.
// It is iterative, so arbitrarily long dependency chains are safe.
// Returns CycleError if a dependency path leads back to a node on the active path.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	state := make(map[string]visitState, len(g.nodes))
	result := make([]string, 0, len(g.nodes))
	// pathPos maps a node on the active path to its stack depth.
	pathPos := make(map[string]int)
	var stack []frame

	push := func(name string) {
		state[name] = onPath
		pathPos[name] = len(stack)
		stack = append(stack, frame{node: name, deps: g.sortedDeps(name)})
	}

	for _, root := range g.nodes {
		if state[root] != unvisited {
			continue
		}
		push(root)

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(top.deps) {
				dep := top.deps[top.next]
				top.next++
				switch state[dep] {
				case finalized:
					continue
				case onPath:
					return nil, &CycleError{Cycle: cycleFrom(stack, pathPos[dep], dep)}
				default:
					push(dep)
				}
				continue
			}

			stack = stack[:len(stack)-1]
			delete(pathPos, top.node)
			state[top.node] = finalized
			result = append(result, top.node)
		}
	}

	return result, nil
}

// cycleFrom extracts the active path starting at depth start and closes it with node.
func cycleFrom(stack []frame, start int, node string) []string {
	cycle := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		cycle = append(cycle, f.node)
	}
	return append(cycle, node)
}
