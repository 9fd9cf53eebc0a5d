// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type (
	// Resolver runs the override, graph and sort stages. It holds no state
	// between runs and is safe for concurrent use.
	Resolver struct {
		logger   *slog.Logger
		observer Observer
		now      func() time.Time
	}

	// Option configures a Resolver.
	Option func(*Resolver)
)

// WithLogger sets the logger used for stage diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver registers an observer notified after each run.
func WithObserver(o Observer) Option {
	return func(r *Resolver) { r.observer = o }
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve resolves descriptors with the default Resolver.
func Resolve(descriptors []Descriptor, policy OverridePolicy) (*LoadPlan, error) {
	return NewResolver().Resolve(descriptors, policy)
}

// ResolveSource discovers descriptors from src and resolves them.
func (r *Resolver) ResolveSource(ctx context.Context, src Source, policy OverridePolicy) (*LoadPlan, error) {
	descs, err := src.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover modules: %w", err)
	}
	return r.Resolve(descs, policy)
}

// Resolve turns the discovered descriptors into a load plan.
// It returns *DuplicateIdentityError when two discovered descriptors share an
// identity and *CycleError when the dependencies form a cycle.
func (r *Resolver) Resolve(descriptors []Descriptor, policy OverridePolicy) (plan *LoadPlan, err error) {
	start := r.now()
	stats := Stats{Discovered: len(descriptors)}
	defer func() {
		stats.Duration = r.now().Sub(start)
		if r.observer != nil {
			r.observer.ObserveResolution(stats, err)
		}
	}()

	if err = checkDuplicates(descriptors); err != nil {
		return nil, err
	}

	ov := applyOverrides(descriptors, policy)
	stats.Disabled = len(ov.disabled)
	stats.Replaced = len(ov.replaced)
	stats.Working = len(ov.working)
	r.logger.Debug("overrides applied",
		"discovered", len(descriptors),
		"disabled", len(ov.disabled),
		"replaced", len(ov.replaced),
		"working", len(ov.working))

	g, err := BuildGraph(ov.working)
	if err != nil {
		return nil, err
	}
	stats.countEdges(g)
	for _, ref := range g.dangling {
		r.logger.Debug("ignoring dependency on absent module", "module", ref.From, "dependency", ref.To)
	}
	r.logger.Debug("dependency graph built",
		"nodes", g.Len(),
		"edges", stats.Edges,
		"implicit", stats.ImplicitEdges,
		"explicit", stats.ExplicitEdges)

	sorted, err := sortGraph(g)
	if err != nil {
		return nil, err
	}
	stats.Planned = len(sorted)
	r.logger.Debug("load plan resolved", "modules", len(sorted))

	return newLoadPlan(sorted, g), nil
}
