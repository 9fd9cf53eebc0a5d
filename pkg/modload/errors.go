// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateIdentity is the sentinel error wrapped by DuplicateIdentityError.
	ErrDuplicateIdentity = errors.New("duplicate module identity")

	// ErrDependencyCycle is the sentinel error wrapped by CycleError.
	ErrDependencyCycle = errors.New("circular module dependency")
)

type (
	// DuplicateIdentityError is returned when two descriptors share an identity.
	DuplicateIdentityError struct {
		Identity Identity
		// First and Second are the discovery indexes of the colliding descriptors.
		First  int
		Second int
	}

	// CycleError is returned when the dependency graph contains a cycle.
	// Chain starts and ends with the same identity, e.g. [M1 M2 M1].
	CycleError struct {
		Chain []Identity
	}
)

// Error implements the error interface for DuplicateIdentityError.
func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("duplicate module identity %q (descriptors #%d and #%d)", e.Identity, e.First, e.Second)
}

// Unwrap returns ErrDuplicateIdentity for errors.Is() compatibility.
func (e *DuplicateIdentityError) Unwrap() error { return ErrDuplicateIdentity }

// Error implements the error interface for CycleError.
func (e *CycleError) Error() string {
	return fmt.Sprintf("circular module dependency: %s", e.ChainString())
}

// Unwrap returns ErrDependencyCycle for errors.Is() compatibility.
func (e *CycleError) Unwrap() error { return ErrDependencyCycle }

// ChainString joins the chain with arrows.
func (e *CycleError) ChainString() string {
	parts := make([]string, len(e.Chain))
	for i, id := range e.Chain {
		parts[i] = string(id)
	}
	return strings.Join(parts, " -> ")
}

// Members returns the distinct identities of the cycle in chain order.
func (e *CycleError) Members() []Identity {
	if len(e.Chain) <= 1 {
		return e.Chain
	}
	return e.Chain[:len(e.Chain)-1]
}

// checkDuplicates fails on the first identity that appears twice.
func checkDuplicates(descs []Descriptor) error {
	seen := make(map[Identity]int, len(descs))
	for i, d := range descs {
		if first, ok := seen[d.Identity]; ok {
			return &DuplicateIdentityError{Identity: d.Identity, First: first, Second: i}
		}
		seen[d.Identity] = i
	}
	return nil
}
