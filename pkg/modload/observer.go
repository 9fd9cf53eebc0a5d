// SPDX-License-Identifier: MPL-2.0

package modload

import "time"

type (
	// Stats summarizes one resolution run. Counts are zero for stages the run
	// did not reach.
	Stats struct {
		Discovered    int
		Disabled      int
		Replaced      int
		Working       int
		ImplicitEdges int
		ExplicitEdges int
		// Edges counts distinct edges; an edge of both kinds counts once here
		// and once in each kind counter.
		Edges    int
		Dangling int
		Planned  int
		Duration time.Duration
	}

	// Observer is notified after every resolution, successful or not.
	Observer interface {
		ObserveResolution(stats Stats, err error)
	}

	// ObserverFunc adapts a function to Observer.
	ObserverFunc func(stats Stats, err error)
)

// ObserveResolution calls f.
func (f ObserverFunc) ObserveResolution(stats Stats, err error) { f(stats, err) }

func (s *Stats) countEdges(g *Graph) {
	for _, e := range g.Edges() {
		s.Edges++
		if e.Kind.Has(EdgeImplicit) {
			s.ImplicitEdges++
		}
		if e.Kind.Has(EdgeExplicit) {
			s.ExplicitEdges++
		}
	}
	s.Dangling = len(g.dangling)
}
