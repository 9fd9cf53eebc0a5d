// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE parsing utilities for manifests and
// host configuration.
//
// Every CUE document goes through the same three steps:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify with schema
//  3. Validate and decode to Go struct
//
// # Usage
//
//	//go:embed manifest_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.ParseAndDecode[Document](
//	    schemaBytes,
//	    data,
//	    "#Manifest",
//	    cueutil.WithFilename("modules.cue"),
//	)
//	if err != nil {
//	    return nil, err // includes the CUE path of the offending field
//	}
//	return result.Value, nil
package cueutil
