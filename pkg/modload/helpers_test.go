// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"slices"
	"testing"
)

// mod builds a descriptor at the given level and order.
func mod(id string, level, order int) Descriptor {
	return Descriptor{Identity: Identity(id), Level: level, Order: order}
}

// inUnit returns d placed in unit u.
func inUnit(d Descriptor, u string) Descriptor {
	d.OriginUnit = UnitRef(u)
	return d
}

func ids(names ...string) []Identity {
	out := make([]Identity, len(names))
	for i, n := range names {
		out[i] = Identity(n)
	}
	return out
}

func identitiesOf(descs []Descriptor) []Identity {
	out := make([]Identity, len(descs))
	for i, d := range descs {
		out[i] = d.Identity
	}
	return out
}

func assertIdentities(t *testing.T, got []Identity, want ...string) {
	t.Helper()
	if !slices.Equal(got, ids(want...)) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

// assertDependenciesFirst checks that every edge target precedes its source.
func assertDependenciesFirst(t *testing.T, plan *LoadPlan) {
	t.Helper()
	for _, e := range plan.Graph().Edges() {
		from, ok := plan.Position(e.From)
		if !ok {
			t.Fatalf("%s missing from plan", e.From)
		}
		to, ok := plan.Position(e.To)
		if !ok {
			t.Fatalf("%s missing from plan", e.To)
		}
		if to >= from {
			t.Errorf("dependency %s (pos %d) must precede %s (pos %d)", e.To, to, e.From, from)
		}
	}
}
