// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"slices"

	"github.com/modhost/modhost/pkg/modload"
)

type (
	// Document is the decoded content of one manifest file.
	Document struct {
		Version   string     `json:"version" toml:"version"`
		Include   []string   `json:"include,omitempty" toml:"include,omitempty"`
		Units     []Unit     `json:"units,omitempty" toml:"units,omitempty"`
		Modules   []Module   `json:"modules,omitempty" toml:"modules,omitempty"`
		Overrides *Overrides `json:"overrides,omitempty" toml:"overrides,omitempty"`
	}

	// Unit declares a compilation unit and the units it references.
	Unit struct {
		Name       string   `json:"name" toml:"name" hcl:"name,label"`
		References []string `json:"references,omitempty" toml:"references,omitempty" hcl:"references,optional"`
	}

	// Module declares one module kind.
	Module struct {
		ID          string   `json:"id" toml:"id" mapstructure:"id" hcl:"id,label"`
		Unit        string   `json:"unit,omitempty" toml:"unit,omitempty" mapstructure:"unit" hcl:"unit,optional"`
		Level       *int     `json:"level,omitempty" toml:"level,omitempty" mapstructure:"level" hcl:"level,optional"`
		Order       int      `json:"order,omitempty" toml:"order,omitempty" mapstructure:"order" hcl:"order,optional"`
		DependsOn   []string `json:"depends_on,omitempty" toml:"depends_on,omitempty" mapstructure:"depends_on" hcl:"depends_on,optional"`
		Description string   `json:"description,omitempty" toml:"description,omitempty" mapstructure:"description" hcl:"description,optional"`
	}

	// Overrides lists disabled modules and replacements keyed by original id.
	Overrides struct {
		Disable []string          `json:"disable,omitempty" toml:"disable,omitempty" mapstructure:"disable"`
		Replace map[string]Module `json:"replace,omitempty" toml:"replace,omitempty" mapstructure:"replace"`
	}

	// UnitIndex maps a unit name to the units it references.
	UnitIndex map[string][]string
)

// EffectiveLevel returns the declared level or modload.LevelDefault.
func (m Module) EffectiveLevel() int {
	if m.Level == nil {
		return modload.LevelDefault
	}
	return *m.Level
}

// Descriptor converts the module, taking its referenced units from units.
func (m Module) Descriptor(units UnitIndex) modload.Descriptor {
	d := modload.Descriptor{
		Identity:    modload.Identity(m.ID),
		Level:       m.EffectiveLevel(),
		Order:       m.Order,
		OriginUnit:  modload.UnitRef(m.Unit),
		Description: m.Description,
	}
	for _, dep := range m.DependsOn {
		d.ExplicitDependencies = append(d.ExplicitDependencies, modload.Identity(dep))
	}
	if m.Unit != "" {
		for _, ref := range units[m.Unit] {
			d.ReferencedUnits = append(d.ReferencedUnits, modload.UnitRef(ref))
		}
	}
	return d
}

// Add merges a unit declaration. References of a unit declared in several
// files are combined, keeping first-seen order.
func (u UnitIndex) Add(unit Unit) {
	refs := u[unit.Name]
	for _, r := range unit.References {
		if !slices.Contains(refs, r) {
			refs = append(refs, r)
		}
	}
	u[unit.Name] = refs
}

// Policy converts the overrides into an override policy.
func (o *Overrides) Policy(units UnitIndex) modload.OverridePolicy {
	if o == nil {
		return modload.OverridePolicy{}
	}
	disable := make([]modload.Identity, len(o.Disable))
	for i, id := range o.Disable {
		disable[i] = modload.Identity(id)
	}
	var replace map[modload.Identity]modload.Descriptor
	if len(o.Replace) > 0 {
		replace = make(map[modload.Identity]modload.Descriptor, len(o.Replace))
		for orig, m := range o.Replace {
			replace[modload.Identity(orig)] = m.Descriptor(units)
		}
	}
	return modload.NewOverridePolicy(disable, replace)
}
