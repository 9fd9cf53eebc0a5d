// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"context"
	"slices"
)

type (
	// Source supplies the raw descriptor set in discovery order.
	Source interface {
		Discover(ctx context.Context) ([]Descriptor, error)
	}

	// SourceFunc adapts a function to Source.
	SourceFunc func(ctx context.Context) ([]Descriptor, error)

	// StaticSource is a fixed, in-memory descriptor list.
	StaticSource []Descriptor
)

// Discover calls f.
func (f SourceFunc) Discover(ctx context.Context) ([]Descriptor, error) { return f(ctx) }

// Discover returns a copy of the list.
func (s StaticSource) Discover(context.Context) ([]Descriptor, error) {
	return slices.Clone([]Descriptor(s)), nil
}
