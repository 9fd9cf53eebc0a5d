// SPDX-License-Identifier: MPL-2.0

package modload

// LoadPlan is the resolved initialization sequence. Every module appears after
// all of its dependencies.
type LoadPlan struct {
	entries  []Descriptor
	position map[Identity]int
	graph    *Graph
}

func newLoadPlan(entries []Descriptor, g *Graph) *LoadPlan {
	pos := make(map[Identity]int, len(entries))
	for i, d := range entries {
		pos[d.Identity] = i
	}
	return &LoadPlan{entries: entries, position: pos, graph: g}
}

// Len returns the number of modules in the plan.
func (p *LoadPlan) Len() int { return len(p.entries) }

// Identities returns the module identities in load order.
func (p *LoadPlan) Identities() []Identity {
	out := make([]Identity, len(p.entries))
	for i, d := range p.entries {
		out[i] = d.Identity
	}
	return out
}

// Descriptors returns the descriptors in load order.
func (p *LoadPlan) Descriptors() []Descriptor {
	out := make([]Descriptor, len(p.entries))
	for i, d := range p.entries {
		out[i] = d.Clone()
	}
	return out
}

// At returns the i-th descriptor of the plan.
func (p *LoadPlan) At(i int) Descriptor { return p.entries[i].Clone() }

// Position returns the load position of id, or false if id is not planned.
func (p *LoadPlan) Position(id Identity) (int, bool) {
	i, ok := p.position[id]
	return i, ok
}

// Graph returns the dependency graph the plan was sorted from.
func (p *LoadPlan) Graph() *Graph { return p.graph }
