// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/modhost/modhost/pkg/cueutil"
	"github.com/modhost/modhost/pkg/modload"
)

type (
	// hclDocument is the block layout of an HCL manifest:
	//
	//	version = "1"
	//	unit "web.dll" { references = ["data.dll"] }
	//	module "web" {
	//	  unit  = "web.dll"
	//	  level = level.late
	//	}
	//	overrides {
	//	  disable = ["legacy"]
	//	  replace "store" {
	//	    module "store.memory" { level = level.early }
	//	  }
	//	}
	hclDocument struct {
		Version   string        `hcl:"version"`
		Include   []string      `hcl:"include,optional"`
		Units     []Unit        `hcl:"unit,block"`
		Modules   []Module      `hcl:"module,block"`
		Overrides *hclOverrides `hcl:"overrides,block"`
	}

	hclOverrides struct {
		Disable []string     `hcl:"disable,optional"`
		Replace []hclReplace `hcl:"replace,block"`
	}

	hclReplace struct {
		Original string `hcl:"original,label"`
		Module   Module `hcl:"module,block"`
	}
)

// levelContext exposes the named tiers as level.first ... level.last.
func levelContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"level": cty.ObjectVal(map[string]cty.Value{
				"first":   cty.NumberIntVal(modload.LevelFirst),
				"early":   cty.NumberIntVal(modload.LevelEarly),
				"default": cty.NumberIntVal(modload.LevelDefault),
				"late":    cty.NumberIntVal(modload.LevelLate),
				"last":    cty.NumberIntVal(modload.LevelLast),
			}),
		},
	}
}

func parseHCL(data []byte, filename string) (*Document, error) {
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, filename); err != nil {
		return nil, err
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL manifest %s: %w", filename, diags)
	}

	var raw hclDocument
	if diags := gohcl.DecodeBody(file.Body, levelContext(), &raw); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL manifest %s: %w", filename, diags)
	}

	doc := &Document{
		Version: raw.Version,
		Include: raw.Include,
		Units:   raw.Units,
		Modules: raw.Modules,
	}
	if raw.Overrides != nil {
		doc.Overrides = &Overrides{Disable: raw.Overrides.Disable}
		if len(raw.Overrides.Replace) > 0 {
			doc.Overrides.Replace = make(map[string]Module, len(raw.Overrides.Replace))
		}
		for i, r := range raw.Overrides.Replace {
			if _, dup := doc.Overrides.Replace[r.Original]; dup {
				return nil, &cueutil.ValidationError{
					FilePath: filename,
					CUEPath:  cueutil.FieldPath("overrides", "replace", i),
					Message:  fmt.Sprintf("module %q is replaced more than once", r.Original),
				}
			}
			doc.Overrides.Replace[r.Original] = r.Module
		}
	}
	return doc, nil
}
