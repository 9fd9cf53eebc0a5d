// SPDX-License-Identifier: MPL-2.0

package modload

// overrideResult is the working set plus a record of what the policy removed.
type overrideResult struct {
	working []Descriptor
	// disabled lists removed identities in discovery order.
	disabled []Identity
	// replaced lists discovered descriptors superseded by a substitute, in
	// discovery order.
	replaced []Identity
}

// applyOverrides produces the working set from the discovered descriptors.
//
// Rules, in precedence order:
//   - a disabled identity never reaches the working set, whether discovered
//     or supplied as a substitute;
//   - a present original with a replacement is removed and its substitute is
//     emitted once, at the position of the earliest descriptor it supersedes;
//   - several originals whose substitutes share an identity resolve to the
//     substitute of the first such original in discovery order;
//   - substitutes are not themselves replaced;
//   - policy entries naming absent identities have no effect.
//
// The input slice is not modified and the relative discovery order of the
// remaining descriptors is kept.
func applyOverrides(discovered []Descriptor, policy OverridePolicy) overrideResult {
	if policy.IsEmpty() {
		working := make([]Descriptor, len(discovered))
		copy(working, discovered)
		return overrideResult{working: working}
	}

	// Pick one substitute per substitute identity.
	winners := make(map[Identity]Descriptor)
	for _, d := range discovered {
		if policy.IsDisabled(d.Identity) {
			continue
		}
		sub, ok := policy.Replacement(d.Identity)
		if !ok || policy.IsDisabled(sub.Identity) {
			continue
		}
		if _, taken := winners[sub.Identity]; !taken {
			winners[sub.Identity] = sub
		}
	}

	var res overrideResult
	res.working = make([]Descriptor, 0, len(discovered))
	emitted := make(map[Identity]struct{}, len(discovered))
	emit := func(d Descriptor) {
		if _, ok := emitted[d.Identity]; ok {
			return
		}
		emitted[d.Identity] = struct{}{}
		res.working = append(res.working, d)
	}

	for _, d := range discovered {
		if policy.IsDisabled(d.Identity) {
			res.disabled = append(res.disabled, d.Identity)
			continue
		}
		if sub, ok := policy.Replacement(d.Identity); ok {
			res.replaced = append(res.replaced, d.Identity)
			if w, ok := winners[sub.Identity]; ok {
				emit(w)
			}
			continue
		}
		if w, ok := winners[d.Identity]; ok {
			res.replaced = append(res.replaced, d.Identity)
			emit(w)
			continue
		}
		emit(d)
	}

	return res
}

// ApplyOverrides returns the working set policy leaves of discovered, with the
// identities it disabled and replaced, each in discovery order. Resolve runs
// the same step; tools use it to inspect graphs that do not sort.
func ApplyOverrides(discovered []Descriptor, policy OverridePolicy) (working []Descriptor, disabled, replaced []Identity) {
	res := applyOverrides(discovered, policy)
	return res.working, res.disabled, res.replaced
}
