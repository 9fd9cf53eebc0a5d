// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modhost/modhost/internal/issue"
	"github.com/modhost/modhost/internal/metrics"
	"github.com/modhost/modhost/internal/watch"
	"github.com/modhost/modhost/pkg/modload"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatDOT  = "dot"
)

type (
	planOptions struct {
		disable     []string
		format      string
		watch       bool
		metricsFile string
	}

	planJSON struct {
		Manifest string          `json:"manifest"`
		Modules  []planEntryJSON `json:"modules"`
		Dangling []danglingJSON  `json:"dangling,omitempty"`
	}

	planEntryJSON struct {
		Position    int      `json:"position"`
		ID          string   `json:"id"`
		Unit        string   `json:"unit,omitempty"`
		Level       int      `json:"level"`
		Order       int      `json:"order"`
		DependsOn   []string `json:"depends_on,omitempty"`
		Description string   `json:"description,omitempty"`
	}

	danglingJSON struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
)

func newPlanCommand(app *App) *cobra.Command {
	var opts planOptions
	cmd := &cobra.Command{
		Use:   "plan [manifest]",
		Short: "Print the module load order",
		Long: `Resolve the manifest and print the modules in load order.

Every module appears after the modules it depends on. Modules that are not
ordered by a dependency are ordered by level, then order, then their position
in the manifest.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, app, app.manifestPath(args), opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.disable, "disable", nil, "disable a module by id (repeatable)")
	cmd.Flags().StringVar(&opts.format, "format", formatText, "output format: text, json or dot")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-resolve whenever a manifest file changes")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after each resolution")
	return cmd
}

func runPlan(cmd *cobra.Command, app *App, path string, opts planOptions) error {
	switch opts.format {
	case formatText, formatJSON, formatDOT:
	default:
		return app.fail(cmd, fmt.Errorf("unsupported format %q (expected text, json or dot)", opts.format))
	}

	metricsFile := opts.metricsFile
	if metricsFile == "" {
		metricsFile = app.cfg.Metrics.File
	}
	var (
		recorder  *metrics.Recorder
		observers []modload.Option
	)
	if metricsFile != "" {
		recorder = metrics.NewRecorder()
		observers = append(observers, modload.WithObserver(recorder))
	}

	once := func(ctx context.Context) error {
		res, err := app.resolve(ctx, path, opts.disable, observers...)
		if recorder != nil {
			if werr := recorder.WriteTextfile(metricsFile); werr != nil {
				app.logger.Warn("writing metrics failed", "err", werr)
			}
		}
		if err != nil {
			return err
		}
		return writePlan(cmd.OutOrStdout(), res, opts.format)
	}

	if !opts.watch {
		if err := once(cmd.Context()); err != nil {
			return app.fail(cmd, err)
		}
		return nil
	}
	return watchPlan(cmd, app, path, once)
}

// watchPlan prints the plan, then re-resolves after every settled change
// until the command's context is canceled.
func watchPlan(cmd *cobra.Command, app *App, path string, once func(context.Context) error) error {
	stderr := cmd.ErrOrStderr()
	report := func(ctx context.Context) {
		if err := once(ctx); err != nil {
			fmt.Fprintln(stderr, renderError(err, app.opts.verbose))
		}
	}

	dir, err := manifestDir(path)
	if err != nil {
		return app.fail(cmd, err)
	}
	w, err := watch.New(watch.Config{
		Dir:      dir,
		Debounce: app.cfg.Watch.Debounce,
		Logger:   app.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintf(stderr, "%s changed: %s\n", infoIcon, strings.Join(changed, ", "))
			report(ctx)
			return nil
		},
	})
	if err != nil {
		return app.fail(cmd, watchError(dir, err))
	}

	report(cmd.Context())
	fmt.Fprintf(stderr, "%s watching %s (Ctrl+C to stop)\n", infoIcon, dir)
	if err := w.Run(cmd.Context()); err != nil {
		return app.fail(cmd, watchError(dir, err))
	}
	return nil
}

func watchError(dir string, err error) error {
	return issue.NewErrorContext().
		WithOperation("watch manifests").
		WithResource(dir).
		WithIssue(issue.WatchFailedId).
		WithSuggestion("Raise fs.inotify.max_user_watches or watch a smaller directory tree").
		Wrap(err).
		BuildError()
}

func writePlan(w io.Writer, res *resolution, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(planToJSON(res))
	case formatDOT:
		writePlanDOT(w, res.plan)
		return nil
	}

	plan := res.plan
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("Load plan"), SubtitleStyle.Render(fmt.Sprintf("(%d modules)", plan.Len())))

	width := 0
	for _, id := range plan.Identities() {
		width = max(width, len(id))
	}
	for i, d := range plan.Descriptors() {
		line := fmt.Sprintf("%3d. %-*s  level %-3d order %-3d", i+1, width, d.Identity, d.Level, d.Order)
		if !d.OriginUnit.IsZero() {
			line += "  " + string(d.OriginUnit)
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	return nil
}

func planToJSON(res *resolution) planJSON {
	out := planJSON{
		Manifest: res.bundle.Root,
		Modules:  make([]planEntryJSON, 0, res.plan.Len()),
	}
	for i, d := range res.plan.Descriptors() {
		entry := planEntryJSON{
			Position:    i + 1,
			ID:          string(d.Identity),
			Unit:        string(d.OriginUnit),
			Level:       d.Level,
			Order:       d.Order,
			Description: d.Description,
		}
		for _, dep := range d.ExplicitDependencies {
			entry.DependsOn = append(entry.DependsOn, string(dep))
		}
		out.Modules = append(out.Modules, entry)
	}
	for _, ref := range res.plan.Graph().Dangling() {
		out.Dangling = append(out.Dangling, danglingJSON{From: string(ref.From), To: string(ref.To)})
	}
	return out
}

// writePlanDOT emits the plan's modules in load order, labeled with their
// position, followed by the dependency edges.
func writePlanDOT(w io.Writer, plan *modload.LoadPlan) {
	g := plan.Graph()
	fmt.Fprintln(w, "digraph plan {")
	fmt.Fprintln(w, "  rankdir=BT;")
	for i, d := range plan.Descriptors() {
		label := fmt.Sprintf("%d. %s\nlevel %d", i+1, d.Identity, d.Level)
		discovered, _ := g.DiscoveryIndex(d.Identity)
		fmt.Fprintf(w, "  %q [label=%q, tooltip=%q];\n", d.Identity, label, fmt.Sprintf("discovered #%d", discovered+1))
	}
	writeDOTEdges(w, g)
	fmt.Fprintln(w, "}")
}
