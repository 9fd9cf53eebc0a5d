// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"slices"
	"testing"
)

func TestOverridePolicy_ZeroValue(t *testing.T) {
	t.Parallel()

	var p OverridePolicy
	if !p.IsEmpty() {
		t.Error("zero policy should be empty")
	}
	if p.IsDisabled("A") {
		t.Error("zero policy disables nothing")
	}
	if _, ok := p.Replacement("A"); ok {
		t.Error("zero policy replaces nothing")
	}
}

func TestOverridePolicy_CopiesInputs(t *testing.T) {
	t.Parallel()

	disable := ids("A")
	replace := map[Identity]Descriptor{"B": mod("B2", 1, 0).DependsOn("A")}
	p := NewOverridePolicy(disable, replace)

	disable[0] = "Z"
	replace["C"] = mod("C2", 1, 0)
	delete(replace, "B")

	if !p.IsDisabled("A") || p.IsDisabled("Z") {
		t.Errorf("disable set changed after construction: %v", p.Disabled())
	}
	sub, ok := p.Replacement("B")
	if !ok || sub.Identity != "B2" {
		t.Fatalf("replacement lost after construction")
	}
	sub.ExplicitDependencies[0] = "mutated"
	again, _ := p.Replacement("B")
	if again.ExplicitDependencies[0] != "A" {
		t.Errorf("replacement aliased caller data: %v", again.ExplicitDependencies)
	}
	if !slices.Equal(p.Replaced(), ids("B")) {
		t.Errorf("Replaced() = %v", p.Replaced())
	}
}

func TestOverridePolicy_Merge(t *testing.T) {
	t.Parallel()

	base := NewOverridePolicy(ids("A"), map[Identity]Descriptor{"B": mod("B1", 1, 0), "C": mod("C1", 1, 0)})
	top := NewOverridePolicy(ids("D"), map[Identity]Descriptor{"B": mod("B2", 2, 0)})
	merged := base.Merge(top)

	if !slices.Equal(merged.Disabled(), ids("A", "D")) {
		t.Errorf("Disabled() = %v", merged.Disabled())
	}
	if sub, _ := merged.Replacement("B"); sub.Identity != "B2" {
		t.Errorf("expected later policy to win, got %s", sub.Identity)
	}
	if sub, _ := merged.Replacement("C"); sub.Identity != "C1" {
		t.Errorf("expected C1, got %s", sub.Identity)
	}
	if base.IsDisabled("D") {
		t.Error("Merge modified receiver")
	}
}
