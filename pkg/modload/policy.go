// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"maps"
	"slices"
)

// OverridePolicy is the host-supplied set of disables and replacements applied
// before the graph is built. It is immutable once constructed; the zero value
// is an empty policy.
type OverridePolicy struct {
	disabled     map[Identity]struct{}
	replacements map[Identity]Descriptor
}

// NewOverridePolicy builds a policy from a disable list and a map of original
// identity to substitute descriptor. The inputs are copied.
func NewOverridePolicy(disable []Identity, replace map[Identity]Descriptor) OverridePolicy {
	p := OverridePolicy{}
	if len(disable) > 0 {
		p.disabled = make(map[Identity]struct{}, len(disable))
		for _, id := range disable {
			p.disabled[id] = struct{}{}
		}
	}
	if len(replace) > 0 {
		p.replacements = make(map[Identity]Descriptor, len(replace))
		for orig, sub := range replace {
			p.replacements[orig] = sub.Clone()
		}
	}
	return p
}

// IsDisabled reports whether id is in the disable set.
func (p OverridePolicy) IsDisabled(id Identity) bool {
	_, ok := p.disabled[id]
	return ok
}

// Replacement returns the substitute registered for original, if any.
func (p OverridePolicy) Replacement(original Identity) (Descriptor, bool) {
	sub, ok := p.replacements[original]
	if !ok {
		return Descriptor{}, false
	}
	return sub.Clone(), true
}

// Disabled returns the disable set sorted by identity.
func (p OverridePolicy) Disabled() []Identity {
	return slices.Sorted(maps.Keys(p.disabled))
}

// Replaced returns the identities that have a substitute, sorted.
func (p OverridePolicy) Replaced() []Identity {
	return slices.Sorted(maps.Keys(p.replacements))
}

// IsEmpty reports whether the policy has no effect.
func (p OverridePolicy) IsEmpty() bool {
	return len(p.disabled) == 0 && len(p.replacements) == 0
}

// Merge returns a new policy holding both disable sets. Replacement entries of
// other win over entries of p for the same original.
func (p OverridePolicy) Merge(other OverridePolicy) OverridePolicy {
	disable := append(p.Disabled(), other.Disabled()...)
	replace := make(map[Identity]Descriptor, len(p.replacements)+len(other.replacements))
	maps.Copy(replace, p.replacements)
	maps.Copy(replace, other.replacements)
	return NewOverridePolicy(disable, replace)
}
