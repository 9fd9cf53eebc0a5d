// SPDX-License-Identifier: MPL-2.0

package modload

import "strings"

// Edge kinds. An edge found both ways carries both bits.
const (
	EdgeImplicit EdgeKind = 1 << iota
	EdgeExplicit
)

type (
	// EdgeKind records why an edge exists.
	EdgeKind uint8

	// Edge is a directed dependency: From must load after To.
	Edge struct {
		From Identity
		To   Identity
		Kind EdgeKind
	}

	// DanglingReference is an explicit dependency whose target is not in the
	// working set. It is dropped from the graph.
	DanglingReference struct {
		From Identity
		To   Identity
	}

	// Graph is the dependency graph over a working set. Nodes keep discovery
	// order. A Graph is never modified after BuildGraph returns.
	Graph struct {
		nodes    []Descriptor
		index    map[Identity]int
		deps     [][]int
		kinds    []map[int]EdgeKind
		dangling []DanglingReference
	}
)

// Has reports whether all bits of other are set.
func (k EdgeKind) Has(other EdgeKind) bool { return k&other == other }

// String returns "implicit", "explicit" or "implicit+explicit".
func (k EdgeKind) String() string {
	var parts []string
	if k.Has(EdgeImplicit) {
		parts = append(parts, "implicit")
	}
	if k.Has(EdgeExplicit) {
		parts = append(parts, "explicit")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// BuildGraph derives the dependency edges of a working set.
//
// An implicit edge m -> d exists when d's OriginUnit is one of m's
// ReferencedUnits; a module's reference to its own unit is ignored, and
// modules without a unit never match. An explicit edge m -> d exists for each
// declared dependency present in the working set; absent targets are recorded
// as dangling references and otherwise ignored. An explicit self-dependency is
// kept and surfaces later as a cycle.
//
// BuildGraph does not detect cycles. It fails only on duplicate identities.
func BuildGraph(working []Descriptor) (*Graph, error) {
	if err := checkDuplicates(working); err != nil {
		return nil, err
	}

	g := &Graph{
		nodes: make([]Descriptor, len(working)),
		index: make(map[Identity]int, len(working)),
		deps:  make([][]int, len(working)),
		kinds: make([]map[int]EdgeKind, len(working)),
	}
	byUnit := make(map[UnitRef][]int)
	for i, d := range working {
		g.nodes[i] = d.Clone()
		g.index[d.Identity] = i
		if !d.OriginUnit.IsZero() {
			byUnit[d.OriginUnit] = append(byUnit[d.OriginUnit], i)
		}
	}

	for i, m := range g.nodes {
		for _, ref := range m.ReferencedUnits {
			if ref.IsZero() || ref == m.OriginUnit {
				continue
			}
			for _, j := range byUnit[ref] {
				if j != i {
					g.addEdge(i, j, EdgeImplicit)
				}
			}
		}
		for _, dep := range m.ExplicitDependencies {
			j, ok := g.index[dep]
			if !ok {
				g.dangling = append(g.dangling, DanglingReference{From: m.Identity, To: dep})
				continue
			}
			g.addEdge(i, j, EdgeExplicit)
		}
	}

	return g, nil
}

func (g *Graph) addEdge(from, to int, kind EdgeKind) {
	if g.kinds[from] == nil {
		g.kinds[from] = make(map[int]EdgeKind)
	}
	existing, ok := g.kinds[from][to]
	if !ok {
		g.deps[from] = append(g.deps[from], to)
	}
	g.kinds[from][to] = existing | kind
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Nodes returns the working set in discovery order.
func (g *Graph) Nodes() []Descriptor {
	out := make([]Descriptor, len(g.nodes))
	for i, d := range g.nodes {
		out[i] = d.Clone()
	}
	return out
}

// Node returns the descriptor for id.
func (g *Graph) Node(id Identity) (Descriptor, bool) {
	i, ok := g.index[id]
	if !ok {
		return Descriptor{}, false
	}
	return g.nodes[i].Clone(), true
}

// DiscoveryIndex returns the position of id in the working set.
func (g *Graph) DiscoveryIndex(id Identity) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// DependenciesOf returns the direct dependencies of id in the order they were found.
func (g *Graph) DependenciesOf(id Identity) []Identity {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]Identity, len(g.deps[i]))
	for k, j := range g.deps[i] {
		out[k] = g.nodes[j].Identity
	}
	return out
}

// EdgeKindOf returns the kind of the edge from -> to, or 0 if there is none.
func (g *Graph) EdgeKindOf(from, to Identity) EdgeKind {
	i, ok := g.index[from]
	if !ok {
		return 0
	}
	j, ok := g.index[to]
	if !ok {
		return 0
	}
	return g.kinds[i][j]
}

// Edges returns every edge, grouped by dependent in discovery order.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for i, deps := range g.deps {
		for _, j := range deps {
			out = append(out, Edge{From: g.nodes[i].Identity, To: g.nodes[j].Identity, Kind: g.kinds[i][j]})
		}
	}
	return out
}

// Dangling returns the explicit dependencies dropped because their target is absent.
func (g *Graph) Dangling() []DanglingReference {
	out := make([]DanglingReference, len(g.dangling))
	copy(out, g.dangling)
	return out
}
