// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/modhost/modhost/pkg/modload"
)

func TestRecorder_ObservesResolutions(t *testing.T) {
	t.Parallel()

	rec := NewRecorder()
	r := modload.NewResolver(modload.WithObserver(rec))

	descs := []modload.Descriptor{
		modload.NewDescriptor("kernel", "kernel.so"),
		modload.NewDescriptor("net", "net.so").References("kernel.so"),
		modload.NewDescriptor("app", "").DependsOn("net", "missing"),
	}
	if _, err := r.Resolve(descs, modload.OverridePolicy{}); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if got := testutil.ToFloat64(rec.resolutions.WithLabelValues(OutcomeSuccess)); got != 1 {
		t.Errorf("success count = %v", got)
	}
	if got := testutil.ToFloat64(rec.planned); got != 3 {
		t.Errorf("planned = %v", got)
	}
	if got := testutil.ToFloat64(rec.edges.WithLabelValues("implicit")); got != 1 {
		t.Errorf("implicit edges = %v", got)
	}
	if got := testutil.ToFloat64(rec.edges.WithLabelValues("explicit")); got != 1 {
		t.Errorf("explicit edges = %v", got)
	}
	if got := testutil.ToFloat64(rec.dangling); got != 1 {
		t.Errorf("dangling = %v", got)
	}

	cyclic := []modload.Descriptor{
		modload.NewDescriptor("a", "").DependsOn("b"),
		modload.NewDescriptor("b", "").DependsOn("a"),
	}
	if _, err := r.Resolve(cyclic, modload.OverridePolicy{}); err == nil {
		t.Fatal("expected cycle error")
	}
	if got := testutil.ToFloat64(rec.resolutions.WithLabelValues(OutcomeCycle)); got != 1 {
		t.Errorf("cycle count = %v", got)
	}
	if got := testutil.ToFloat64(rec.planned); got != 3 {
		t.Errorf("failed run must not reset planned, got %v", got)
	}
	if got := testutil.ToFloat64(rec.edges.WithLabelValues("total")); got != 2 {
		t.Errorf("total edges after cyclic run = %v", got)
	}
	if n := testutil.CollectAndCount(rec.duration); n != 1 {
		t.Errorf("duration series = %d", n)
	}
}

func TestRecorder_Overrides(t *testing.T) {
	t.Parallel()

	rec := NewRecorder()
	rec.ObserveResolution(modload.Stats{Discovered: 5, Disabled: 2, Replaced: 1, Working: 3, Planned: 3, Duration: time.Millisecond}, nil)

	if got := testutil.ToFloat64(rec.overrides.WithLabelValues("disabled")); got != 2 {
		t.Errorf("disabled = %v", got)
	}
	if got := testutil.ToFloat64(rec.overrides.WithLabelValues("replaced")); got != 1 {
		t.Errorf("replaced = %v", got)
	}
}

func TestOutcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeSuccess},
		{&modload.CycleError{Chain: []modload.Identity{"a", "a"}}, OutcomeCycle},
		{fmt.Errorf("wrapped: %w", &modload.DuplicateIdentityError{Identity: "a"}), OutcomeDuplicate},
		{errors.New("discover modules: boom"), OutcomeError},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.want {
			t.Errorf("Outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	rec := NewRecorder()
	rec.ObserveResolution(modload.Stats{Working: 2, Planned: 2, Edges: 1, ExplicitEdges: 1}, nil)

	path := filepath.Join(t.TempDir(), "modhost.prom")
	if err := rec.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`modhost_resolutions_total{outcome="success"} 1`,
		"modhost_plan_modules 2",
		`modhost_graph_edges{kind="explicit"} 1`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}

	if err := rec.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom")); err == nil {
		t.Error("expected error for missing directory")
	}
}
