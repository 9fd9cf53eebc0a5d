// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"errors"
	"slices"
)

// Named priority tiers. Lower levels load earlier; any int is accepted.
const (
	LevelFirst   = 0
	LevelEarly   = 25
	LevelDefault = 50
	LevelLate    = 75
	LevelLast    = 100
)

// Descriptor is the static metadata of one discoverable module kind.
type Descriptor struct {
	// Identity is the unique key of the module.
	Identity Identity
	// Level is the priority tier; lower loads earlier.
	Level int
	// Order breaks ties within a level; lower loads earlier.
	Order int
	// ExplicitDependencies are the identities this module declares it needs,
	// in author order. Identities absent from the working set are ignored.
	ExplicitDependencies []Identity
	// OriginUnit is the compilation unit that contains the module.
	OriginUnit UnitRef
	// ReferencedUnits are the units OriginUnit directly references.
	ReferencedUnits []UnitRef
	// Description is free text for tooling; it does not affect resolution.
	Description string
}

// NewDescriptor returns a descriptor at LevelDefault with Order 0.
func NewDescriptor(id Identity, unit UnitRef) Descriptor {
	return Descriptor{Identity: id, Level: LevelDefault, OriginUnit: unit}
}

// DependsOn returns a copy of d with ids appended to its explicit dependencies.
func (d Descriptor) DependsOn(ids ...Identity) Descriptor {
	d.ExplicitDependencies = append(slices.Clone(d.ExplicitDependencies), ids...)
	return d
}

// References returns a copy of d with units appended to its referenced units.
func (d Descriptor) References(units ...UnitRef) Descriptor {
	d.ReferencedUnits = append(slices.Clone(d.ReferencedUnits), units...)
	return d
}

// Clone returns a deep copy of d.
func (d Descriptor) Clone() Descriptor {
	d.ExplicitDependencies = slices.Clone(d.ExplicitDependencies)
	d.ReferencedUnits = slices.Clone(d.ReferencedUnits)
	return d
}

// Validate checks the identity, the units and every declared dependency.
// All problems are reported together.
func (d Descriptor) Validate() error {
	var errs []error
	if ok, e := d.Identity.IsValid(); !ok {
		errs = append(errs, e...)
	}
	if ok, e := d.OriginUnit.IsValid(); !ok {
		errs = append(errs, e...)
	}
	for _, u := range d.ReferencedUnits {
		if ok, e := u.IsValid(); !ok {
			errs = append(errs, e...)
		}
	}
	for _, dep := range d.ExplicitDependencies {
		if ok, e := dep.IsValid(); !ok {
			errs = append(errs, e...)
		}
	}
	return errors.Join(errs...)
}
