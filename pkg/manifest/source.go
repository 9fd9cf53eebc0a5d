// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"context"

	"github.com/modhost/modhost/pkg/modload"
)

// Source is a modload.Source that reloads a manifest on every Discover.
type Source struct {
	Loader *Loader
	Path   string
}

// NewSource returns a Source for path. A nil loader uses NewLoader().
func NewSource(loader *Loader, path string) *Source {
	if loader == nil {
		loader = NewLoader()
	}
	return &Source{Loader: loader, Path: path}
}

// Discover loads the manifest and returns its descriptors.
func (s *Source) Discover(ctx context.Context) ([]modload.Descriptor, error) {
	b, err := s.Loader.Load(ctx, s.Path)
	if err != nil {
		return nil, err
	}
	return b.Descriptors(), nil
}

var (
	_ modload.Source = (*Source)(nil)
	_ modload.Source = (*Bundle)(nil)
)
