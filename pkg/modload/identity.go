// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	// ErrInvalidIdentity is the sentinel error wrapped by InvalidIdentityError.
	ErrInvalidIdentity = errors.New("invalid module identity")

	// ErrInvalidUnitRef is the sentinel error wrapped by InvalidUnitRefError.
	ErrInvalidUnitRef = errors.New("invalid unit reference")
)

type (
	// Identity is the unique, stable key of one kind of module.
	// A valid identity is non-empty and contains no whitespace.
	Identity string

	// UnitRef names the physical compilation unit a module was found in.
	// The zero value means "no physical unit"; such modules never take part in
	// implicit dependency inference.
	UnitRef string

	// InvalidIdentityError is returned when an Identity is empty or contains whitespace.
	InvalidIdentityError struct {
		Value Identity
	}

	// InvalidUnitRefError is returned when a non-empty UnitRef contains whitespace.
	InvalidUnitRefError struct {
		Value UnitRef
	}
)

// String returns the string representation of the Identity.
func (id Identity) String() string { return string(id) }

// IsValid returns whether the Identity is valid.
func (id Identity) IsValid() (bool, []error) {
	if id == "" || strings.ContainsFunc(string(id), unicode.IsSpace) {
		return false, []error{&InvalidIdentityError{Value: id}}
	}
	return true, nil
}

// Error implements the error interface for InvalidIdentityError.
func (e *InvalidIdentityError) Error() string {
	return fmt.Sprintf("invalid module identity %q: must be non-empty without whitespace", e.Value)
}

// Unwrap returns ErrInvalidIdentity for errors.Is() compatibility.
func (e *InvalidIdentityError) Unwrap() error { return ErrInvalidIdentity }

// String returns the string representation of the UnitRef.
func (u UnitRef) String() string { return string(u) }

// IsZero reports whether the reference names no unit.
func (u UnitRef) IsZero() bool { return u == "" }

// IsValid returns whether the UnitRef is valid. The zero value is valid.
func (u UnitRef) IsValid() (bool, []error) {
	if strings.ContainsFunc(string(u), unicode.IsSpace) {
		return false, []error{&InvalidUnitRefError{Value: u}}
	}
	return true, nil
}

// Error implements the error interface for InvalidUnitRefError.
func (e *InvalidUnitRefError) Error() string {
	return fmt.Sprintf("invalid unit reference %q: must not contain whitespace", e.Value)
}

// Unwrap returns ErrInvalidUnitRef for errors.Is() compatibility.
func (e *InvalidUnitRefError) Unwrap() error { return ErrInvalidUnitRef }
