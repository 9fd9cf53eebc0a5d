// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"errors"
	"testing"
)

func TestIdentity_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value Identity
		want  bool
	}{
		{"auth", true},
		{"Acme.Billing/Invoices", true},
		{"", false},
		{"with space", false},
		{"tab\tbed", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.value), func(t *testing.T) {
			t.Parallel()
			ok, errs := tt.value.IsValid()
			if ok != tt.want {
				t.Fatalf("IsValid(%q) = %v, want %v", tt.value, ok, tt.want)
			}
			if !ok && !errors.Is(errs[0], ErrInvalidIdentity) {
				t.Errorf("expected ErrInvalidIdentity, got %v", errs[0])
			}
		})
	}
}

func TestUnitRef_IsValid(t *testing.T) {
	t.Parallel()

	if ok, _ := UnitRef("").IsValid(); !ok {
		t.Error("zero UnitRef should be valid")
	}
	if !UnitRef("").IsZero() {
		t.Error("zero UnitRef should report IsZero")
	}
	ok, errs := UnitRef("a b").IsValid()
	if ok {
		t.Fatal("UnitRef with whitespace should be invalid")
	}
	if !errors.Is(errs[0], ErrInvalidUnitRef) {
		t.Errorf("expected ErrInvalidUnitRef, got %v", errs[0])
	}
}

func TestDescriptor_Validate(t *testing.T) {
	t.Parallel()

	good := NewDescriptor("core", "core.dll").DependsOn("log").References("log.dll")
	if err := good.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if good.Level != LevelDefault {
		t.Errorf("NewDescriptor level = %d, want %d", good.Level, LevelDefault)
	}

	bad := Descriptor{Identity: "", OriginUnit: "u 1", ExplicitDependencies: []Identity{"x y"}}
	err := bad.Validate()
	if !errors.Is(err, ErrInvalidIdentity) || !errors.Is(err, ErrInvalidUnitRef) {
		t.Errorf("expected both identity and unit errors, got %v", err)
	}
}

func TestDescriptor_BuildersDoNotAlias(t *testing.T) {
	t.Parallel()

	base := NewDescriptor("a", "").DependsOn("b")
	derived := base.DependsOn("c")
	if len(base.ExplicitDependencies) != 1 {
		t.Errorf("base mutated: %v", base.ExplicitDependencies)
	}
	if len(derived.ExplicitDependencies) != 2 {
		t.Errorf("derived = %v", derived.ExplicitDependencies)
	}
}
