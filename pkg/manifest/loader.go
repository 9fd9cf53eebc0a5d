// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/modhost/modhost/pkg/cueutil"
	"github.com/modhost/modhost/pkg/modload"
)

// ErrIncludeNotFound is returned when an include without glob metacharacters
// names a file that does not exist.
var ErrIncludeNotFound = errors.New("included manifest not found")

type (
	// Loader reads a manifest and everything it includes.
	Loader struct {
		logger      *slog.Logger
		maxFileSize int64
	}

	// LoaderOption configures a Loader.
	LoaderOption func(*Loader)

	// File is one loaded manifest.
	File struct {
		Path     string
		Document *Document
	}

	// Bundle is the result of loading a root manifest and its includes.
	Bundle struct {
		// Root is the absolute path of the root manifest.
		Root string
		// Files are in load order: the root first, then includes depth-first.
		Files []File
		units UnitIndex
	}
)

// WithLogger sets the loader's logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMaxFileSize caps the size of each manifest file.
func WithMaxFileSize(size int64) LoaderOption {
	return func(l *Loader) { l.maxFileSize = size }
}

// NewLoader creates a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		logger:      slog.New(slog.DiscardHandler),
		maxFileSize: cueutil.DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the manifest at path and its includes. Include patterns are
// doublestar globs relative to the including file; matches are loaded in
// lexical order and a file is read at most once.
func (l *Loader) Load(ctx context.Context, path string) (*Bundle, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest path: %w", err)
	}
	b := &Bundle{Root: abs, units: UnitIndex{}}
	visited := make(map[string]struct{})
	if err := l.load(ctx, abs, b, visited); err != nil {
		return nil, err
	}
	return b, nil
}

func (l *Loader) load(ctx context.Context, path string, b *Bundle, visited map[string]struct{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, seen := visited[path]; seen {
		return nil
	}
	visited[path] = struct{}{}

	data, err := cueutil.ReadFile(path, l.maxFileSize)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	doc, err := Parse(data, path)
	if err != nil {
		return err
	}
	l.logger.Debug("manifest loaded", "path", path, "modules", len(doc.Modules), "includes", len(doc.Include))

	b.Files = append(b.Files, File{Path: path, Document: doc})
	for _, u := range doc.Units {
		b.units.Add(u)
	}

	dir := filepath.Dir(path)
	for _, pattern := range doc.Include {
		matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
		if err != nil {
			return fmt.Errorf("%s: include %q: %w", path, pattern, err)
		}
		if len(matches) == 0 && !hasMeta(pattern) {
			return fmt.Errorf("%s: include %q: %w", path, pattern, ErrIncludeNotFound)
		}
		slices.Sort(matches)
		for _, m := range matches {
			if _, err := FormatOf(m); err != nil {
				l.logger.Debug("skipping include with unknown extension", "path", m)
				continue
			}
			if err := l.load(ctx, filepath.Join(dir, filepath.FromSlash(m)), b, visited); err != nil {
				return err
			}
		}
	}
	return nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, `*?[{\`)
}

// Paths returns the loaded file paths in load order.
func (b *Bundle) Paths() []string {
	out := make([]string, len(b.Files))
	for i, f := range b.Files {
		out[i] = f.Path
	}
	return out
}

// Units returns the merged unit index of every loaded file.
func (b *Bundle) Units() UnitIndex {
	out := make(UnitIndex, len(b.units))
	for k, v := range b.units {
		out[k] = slices.Clone(v)
	}
	return out
}

// Modules returns every declared module in discovery order.
func (b *Bundle) Modules() []Module {
	var out []Module
	for _, f := range b.Files {
		out = append(out, f.Document.Modules...)
	}
	return out
}

// Descriptors converts the declared modules in discovery order.
func (b *Bundle) Descriptors() []modload.Descriptor {
	mods := b.Modules()
	out := make([]modload.Descriptor, len(mods))
	for i, m := range mods {
		out[i] = m.Descriptor(b.units)
	}
	return out
}

// Policy merges the overrides of every file in load order; later files win
// replacement conflicts.
func (b *Bundle) Policy() modload.OverridePolicy {
	var p modload.OverridePolicy
	for _, f := range b.Files {
		p = p.Merge(f.Document.Overrides.Policy(b.units))
	}
	return p
}

// Discover implements modload.Source over the already loaded bundle.
func (b *Bundle) Discover(context.Context) ([]modload.Descriptor, error) {
	return b.Descriptors(), nil
}
