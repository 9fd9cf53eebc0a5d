// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/modhost/modhost/pkg/modload"
)

const cueManifest = `
version: "1.0"
units: [
	{name: "web.dll", references: ["data.dll"]},
	{name: "data.dll"},
]
modules: [
	{id: "web", unit: "web.dll", level: 75},
	{id: "repo", unit: "data.dll", level: 25, order: 1},
	{id: "audit", depends_on: ["repo"], description: "Audit trail"},
]
overrides: {
	disable: ["legacy"]
	replace: {
		repo: {id: "repo.memory", level: 0}
	}
}
`

const hclManifest = `
version = "1.0"

unit "web.dll" {
  references = ["data.dll"]
}

unit "data.dll" {}

module "web" {
  unit  = "web.dll"
  level = level.late
}

module "repo" {
  unit  = "data.dll"
  level = level.early
  order = 1
}

module "audit" {
  depends_on  = ["repo"]
  description = "Audit trail"
}

overrides {
  disable = ["legacy"]

  replace "repo" {
    module "repo.memory" {
      level = level.first
    }
  }
}
`

const tomlManifest = `
version = "1.0"

[[units]]
name = "web.dll"
references = ["data.dll"]

[[units]]
name = "data.dll"

[[modules]]
id = "web"
unit = "web.dll"
level = 75

[[modules]]
id = "repo"
unit = "data.dll"
level = 25
order = 1

[[modules]]
id = "audit"
depends_on = ["repo"]
description = "Audit trail"

[overrides]
disable = ["legacy"]

[overrides.replace.repo]
id = "repo.memory"
level = 0
`

func intPtr(v int) *int { return &v }

func expectedDocument() *Document {
	return &Document{
		Version: "1.0",
		Units: []Unit{
			{Name: "web.dll", References: []string{"data.dll"}},
			{Name: "data.dll"},
		},
		Modules: []Module{
			{ID: "web", Unit: "web.dll", Level: intPtr(75)},
			{ID: "repo", Unit: "data.dll", Level: intPtr(25), Order: 1},
			{ID: "audit", DependsOn: []string{"repo"}, Description: "Audit trail"},
		},
		Overrides: &Overrides{
			Disable: []string{"legacy"},
			Replace: map[string]Module{
				"repo": {ID: "repo.memory", Level: intPtr(0)},
			},
		},
	}
}

func TestParse_FormatsAgree(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		data     string
	}{
		{"modules.cue", cueManifest},
		{"modules.hcl", hclManifest},
		{"modules.toml", tomlManifest},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			t.Parallel()
			doc, err := Parse([]byte(tt.data), tt.filename)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			normalize(doc)
			if want := expectedDocument(); !reflect.DeepEqual(doc, want) {
				t.Errorf("document mismatch\n got: %+v\nwant: %+v", doc, want)
			}
		})
	}
}

// normalize maps empty slices to nil so decoders that allocate agree with
// decoders that do not.
func normalize(doc *Document) {
	for i := range doc.Units {
		if len(doc.Units[i].References) == 0 {
			doc.Units[i].References = nil
		}
	}
	for i := range doc.Modules {
		if len(doc.Modules[i].DependsOn) == 0 {
			doc.Modules[i].DependsOn = nil
		}
	}
	if len(doc.Include) == 0 {
		doc.Include = nil
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		data     string
		contains []string
		is       error
	}{
		{
			name:     "unknown extension",
			filename: "modules.yaml",
			data:     "version: 1",
			is:       ErrUnsupportedFormat,
		},
		{
			name:     "unsupported version",
			filename: "modules.cue",
			data:     `version: "2.0"`,
			is:       ErrUnsupportedVersion,
		},
		{
			name:     "malformed version",
			filename: "modules.toml",
			data:     `version = "one"`,
			contains: []string{"modules.toml: version: invalid version"},
		},
		{
			name:     "cue field outside schema",
			filename: "modules.cue",
			data:     `version: "1", modules: [{id: "a", priority: 3}]`,
			contains: []string{"modules.cue", "priority"},
		},
		{
			name:     "toml unknown field",
			filename: "modules.toml",
			data:     "version = \"1\"\n[[modules]]\nid = \"a\"\npriority = 3\n",
			contains: []string{"unknown fields"},
		},
		{
			name:     "hcl unknown level name",
			filename: "modules.hcl",
			data:     "version = \"1\"\nmodule \"a\" {\n  level = level.sometime\n}\n",
			contains: []string{"modules.hcl"},
		},
		{
			name:     "hcl duplicate replacement",
			filename: "modules.hcl",
			data: `version = "1"
overrides {
  replace "a" {
    module "b" {}
  }
  replace "a" {
    module "c" {}
  }
}
`,
			contains: []string{"overrides.replace[1]", "replaced more than once"},
		},
		{
			name:     "include escaping the manifest directory",
			filename: "modules.cue",
			data:     `version: "1", include: ["../shared/*.cue"]`,
			contains: []string{"include[0]"},
		},
		{
			name:     "every problem is reported",
			filename: "modules.toml",
			data: `version = "1"
include = ["/etc/modules/*.toml"]
[[units]]
name = "a b"
[[modules]]
id = "bad id"
depends_on = ["also bad"]
`,
			contains: []string{"include[0]", "units[0].name", "modules[0].id", "modules[0].depends_on[0]", "4 errors occurred"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.data), tt.filename)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("expected errors.Is(%v), got %v", tt.is, err)
			}
			for _, s := range tt.contains {
				if !strings.Contains(err.Error(), s) {
					t.Errorf("error should contain %q, got: %v", s, err)
				}
			}
		})
	}
}

func TestModule_Descriptor(t *testing.T) {
	t.Parallel()

	units := UnitIndex{}
	units.Add(Unit{Name: "web.dll", References: []string{"data.dll"}})
	units.Add(Unit{Name: "web.dll", References: []string{"log.dll", "data.dll"}})

	d := Module{ID: "web", Unit: "web.dll", DependsOn: []string{"auth"}}.Descriptor(units)
	want := modload.Descriptor{
		Identity:             "web",
		Level:                modload.LevelDefault,
		OriginUnit:           "web.dll",
		ExplicitDependencies: []modload.Identity{"auth"},
		ReferencedUnits:      []modload.UnitRef{"data.dll", "log.dll"},
	}
	if !reflect.DeepEqual(d, want) {
		t.Errorf("Descriptor() = %+v, want %+v", d, want)
	}

	floating := Module{ID: "cli"}.Descriptor(units)
	if floating.OriginUnit != "" || floating.ReferencedUnits != nil {
		t.Errorf("module without unit should have no unit data: %+v", floating)
	}
}

func TestOverrides_NilPolicy(t *testing.T) {
	t.Parallel()

	var o *Overrides
	if !o.Policy(nil).IsEmpty() {
		t.Error("nil overrides should produce an empty policy")
	}
}
