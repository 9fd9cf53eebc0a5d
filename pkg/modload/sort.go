// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"cmp"
	"errors"
	"slices"

	"github.com/modhost/modhost/internal/dag"
)

// presort returns node indexes ordered by (Level, Order, discovery index).
func presort(nodes []Descriptor) []int {
	order := make([]int, len(nodes))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		return cmp.Or(
			cmp.Compare(nodes[a].Level, nodes[b].Level),
			cmp.Compare(nodes[a].Order, nodes[b].Order),
			cmp.Compare(a, b),
		)
	})
	return order
}

// sortGraph orders the graph so every node follows its dependencies.
// Roots and each node's dependency list are visited in presort order, so
// (Level, Order) decide only between nodes the edges leave unordered.
func sortGraph(g *Graph) ([]Descriptor, error) {
	order := presort(g.nodes)

	d := dag.New()
	for _, i := range order {
		d.AddNode(string(g.nodes[i].Identity))
	}
	for _, i := range order {
		for _, j := range g.deps[i] {
			d.AddEdge(string(g.nodes[i].Identity), string(g.nodes[j].Identity))
		}
	}

	sorted, err := d.TopologicalSort()
	if err != nil {
		var cycleErr *dag.CycleError
		if errors.As(err, &cycleErr) {
			chain := make([]Identity, len(cycleErr.Cycle))
			for i, n := range cycleErr.Cycle {
				chain[i] = Identity(n)
			}
			return nil, &CycleError{Chain: chain}
		}
		return nil, err
	}

	out := make([]Descriptor, len(sorted))
	for i, n := range sorted {
		out[i] = g.nodes[g.index[Identity(n)]].Clone()
	}
	return out, nil
}
