// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	_ "embed"

	"github.com/modhost/modhost/pkg/cueutil"
)

//go:embed manifest_schema.cue
var manifestSchema []byte

func parseCUE(data []byte, filename string) (*Document, error) {
	result, err := cueutil.ParseAndDecode[Document](
		manifestSchema,
		data,
		"#Manifest",
		cueutil.WithFilename(filename),
	)
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}
