// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Supported manifest formats.
const (
	FormatCUE  Format = "cue"
	FormatHCL  Format = "hcl"
	FormatTOML Format = "toml"
)

// ErrUnsupportedFormat is the sentinel error wrapped by UnsupportedFormatError.
var ErrUnsupportedFormat = errors.New("unsupported manifest format")

type (
	// Format identifies a manifest syntax.
	Format string

	// UnsupportedFormatError is returned for a file extension no parser handles.
	UnsupportedFormatError struct {
		Path string
	}
)

// FormatOf derives the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return FormatCUE, nil
	case ".hcl":
		return FormatHCL, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", &UnsupportedFormatError{Path: path}
	}
}

// Error implements the error interface for UnsupportedFormatError.
func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported manifest format %q (expected .cue, .hcl or .toml)", filepath.Base(e.Path))
}

// Unwrap returns ErrUnsupportedFormat for errors.Is() compatibility.
func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }

// Parse decodes and validates a manifest. The format is taken from filename.
func Parse(data []byte, filename string) (*Document, error) {
	format, err := FormatOf(filename)
	if err != nil {
		return nil, err
	}

	var doc *Document
	switch format {
	case FormatCUE:
		doc, err = parseCUE(data, filename)
	case FormatHCL:
		doc, err = parseHCL(data, filename)
	case FormatTOML:
		doc, err = parseTOML(data, filename)
	}
	if err != nil {
		return nil, err
	}

	if err := Validate(doc, filename); err != nil {
		return nil, err
	}
	return doc, nil
}
