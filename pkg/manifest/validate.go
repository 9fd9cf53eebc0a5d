// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"

	"github.com/modhost/modhost/pkg/cueutil"
	"github.com/modhost/modhost/pkg/modload"
)

// SupportedVersions is the manifest format range this build reads.
const SupportedVersions = "^1"

// ErrUnsupportedVersion is the sentinel error wrapped by UnsupportedVersionError.
var ErrUnsupportedVersion = errors.New("unsupported manifest version")

// UnsupportedVersionError reports a manifest version outside SupportedVersions.
type UnsupportedVersionError struct {
	FilePath string
	Version  string
}

var supportedConstraint = mustConstraint(SupportedVersions)

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Error implements the error interface for UnsupportedVersionError.
func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("%s: manifest version %q is not supported (want %s)", e.FilePath, e.Version, SupportedVersions)
}

// Unwrap returns ErrUnsupportedVersion for errors.Is() compatibility.
func (e *UnsupportedVersionError) Unwrap() error { return ErrUnsupportedVersion }

// Validate checks a decoded document and reports every problem at once.
// Duplicate module ids are left to the resolver.
func Validate(doc *Document, filename string) error {
	var result *multierror.Error
	fail := func(p, format string, args ...any) {
		result = multierror.Append(result, &cueutil.ValidationError{
			FilePath: filename,
			CUEPath:  p,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	if err := checkVersion(doc.Version, filename); err != nil {
		result = multierror.Append(result, err)
	}

	for i, pattern := range doc.Include {
		if path.IsAbs(pattern) || slices.Contains(strings.Split(pattern, "/"), "..") || !doublestar.ValidatePattern(pattern) {
			fail(cueutil.FieldPath("include", i), "invalid include pattern %q (must be a glob below the manifest directory)", pattern)
		}
	}

	seenUnits := make(map[string]struct{}, len(doc.Units))
	for i, u := range doc.Units {
		checkUnit(u.Name, cueutil.FieldPath("units", i, "name"), fail)
		if _, dup := seenUnits[u.Name]; dup {
			fail(cueutil.FieldPath("units", i, "name"), "unit %q declared twice", u.Name)
		}
		seenUnits[u.Name] = struct{}{}
		for j, ref := range u.References {
			checkUnit(ref, cueutil.FieldPath("units", i, "references", j), fail)
		}
	}

	for i, m := range doc.Modules {
		checkModule(m, func(parts ...any) string {
			return cueutil.FieldPath(append([]any{"modules", i}, parts...)...)
		}, fail)
	}

	if o := doc.Overrides; o != nil {
		for i, id := range o.Disable {
			checkIdentity(id, cueutil.FieldPath("overrides", "disable", i), fail)
		}
		for _, orig := range slices.Sorted(maps.Keys(o.Replace)) {
			m := o.Replace[orig]
			checkIdentity(orig, cueutil.FieldPath("overrides", "replace"), fail)
			checkModule(m, func(parts ...any) string {
				return cueutil.FieldPath(append([]any{"overrides", "replace", orig}, parts...)...)
			}, fail)
		}
	}

	return result.ErrorOrNil()
}

func checkVersion(v, filename string) error {
	if v == "" {
		return &cueutil.ValidationError{FilePath: filename, CUEPath: "version", Message: "version is required"}
	}
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return &cueutil.ValidationError{
			FilePath: filename,
			CUEPath:  "version",
			Message:  fmt.Sprintf("invalid version %q: %v", v, err),
		}
	}
	if !supportedConstraint.Check(parsed) {
		return &UnsupportedVersionError{FilePath: filename, Version: v}
	}
	return nil
}

func checkModule(m Module, at func(parts ...any) string, fail func(p, format string, args ...any)) {
	checkIdentity(m.ID, at("id"), fail)
	if m.Unit != "" {
		checkUnit(m.Unit, at("unit"), fail)
	}
	for j, dep := range m.DependsOn {
		checkIdentity(dep, at("depends_on", j), fail)
	}
}

func checkIdentity(id, p string, fail func(p, format string, args ...any)) {
	if ok, errs := modload.Identity(id).IsValid(); !ok {
		fail(p, "%v", errs[0])
	}
}

func checkUnit(name, p string, fail func(p, format string, args ...any)) {
	if name == "" {
		fail(p, "unit name must not be empty")
		return
	}
	if ok, errs := modload.UnitRef(name).IsValid(); !ok {
		fail(p, "%v", errs[0])
	}
}
