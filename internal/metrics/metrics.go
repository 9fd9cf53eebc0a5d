// SPDX-License-Identifier: MPL-2.0

// Package metrics exports resolution statistics as Prometheus metrics.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/modhost/modhost/pkg/modload"
)

// Outcome label values for modhost_resolutions_total.
const (
	OutcomeSuccess   = "success"
	OutcomeCycle     = "cycle"
	OutcomeDuplicate = "duplicate"
	OutcomeError     = "error"
)

var _ modload.Observer = (*Recorder)(nil)

// Recorder records resolution runs into its own registry.
type Recorder struct {
	registry    *prometheus.Registry
	resolutions *prometheus.CounterVec
	duration    prometheus.Histogram
	planned     prometheus.Gauge
	edges       *prometheus.GaugeVec
	dangling    prometheus.Gauge
	overrides   *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with every metric registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modhost_resolutions_total",
				Help: "Number of load-order resolutions by outcome.",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "modhost_resolution_duration_seconds",
				Help:    "Time taken to resolve a load plan.",
				Buckets: prometheus.DefBuckets,
			},
		),
		planned: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "modhost_plan_modules",
				Help: "Number of modules in the last successful load plan.",
			},
		),
		edges: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "modhost_graph_edges",
				Help: "Dependency edges in the last built graph by kind.",
			},
			[]string{"kind"},
		),
		dangling: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "modhost_dangling_references",
				Help: "Dependencies on absent modules ignored by the last resolution.",
			},
		),
		overrides: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "modhost_overridden_modules",
				Help: "Modules removed by the last resolution's override policy by action.",
			},
			[]string{"action"},
		),
	}
	r.registry.MustRegister(r.resolutions, r.duration, r.planned, r.edges, r.dangling, r.overrides)
	return r
}

// Registry returns the registry the metrics are registered with.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveResolution implements modload.Observer. Gauges keep their previous
// values when the run failed before the corresponding stage.
func (r *Recorder) ObserveResolution(stats modload.Stats, err error) {
	r.resolutions.WithLabelValues(Outcome(err)).Inc()
	r.duration.Observe(stats.Duration.Seconds())

	if err == nil {
		r.planned.Set(float64(stats.Planned))
	}
	if stats.Working > 0 || err == nil {
		r.overrides.WithLabelValues("disabled").Set(float64(stats.Disabled))
		r.overrides.WithLabelValues("replaced").Set(float64(stats.Replaced))
		r.edges.WithLabelValues("implicit").Set(float64(stats.ImplicitEdges))
		r.edges.WithLabelValues("explicit").Set(float64(stats.ExplicitEdges))
		r.edges.WithLabelValues("total").Set(float64(stats.Edges))
		r.dangling.Set(float64(stats.Dangling))
	}
}

// WriteTextfile writes the current values in the node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}

// Outcome classifies a resolution error for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, modload.ErrDependencyCycle):
		return OutcomeCycle
	case errors.Is(err, modload.ErrDuplicateIdentity):
		return OutcomeDuplicate
	default:
		return OutcomeError
	}
}
