// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/modhost/modhost/pkg/modload"
)

type graphOptions struct {
	disable []string
	format  string
}

func newGraphCommand(app *App) *cobra.Command {
	var opts graphOptions
	cmd := &cobra.Command{
		Use:   "graph [manifest]",
		Short: "Print the dependency graph",
		Long: `Print the dependency graph of the modules left after overrides.

Edges are labelled implicit (shared compilation unit), explicit (depends_on)
or both. Dependencies on absent modules are listed as missing. The graph is
printed even when it contains a cycle.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, app, app.manifestPath(args), opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.disable, "disable", nil, "disable a module by id (repeatable)")
	cmd.Flags().StringVar(&opts.format, "format", formatText, "output format: text or dot")
	return cmd
}

func runGraph(cmd *cobra.Command, app *App, path string, opts graphOptions) error {
	if opts.format != formatText && opts.format != formatDOT {
		return app.fail(cmd, fmt.Errorf("unsupported format %q (expected text or dot)", opts.format))
	}

	b, err := app.loadBundle(cmd.Context(), path)
	if err != nil {
		return app.fail(cmd, err)
	}
	working, _, _ := modload.ApplyOverrides(b.Descriptors(), app.policy(b, opts.disable))
	g, err := modload.BuildGraph(working)
	if err != nil {
		return app.fail(cmd, err)
	}

	if opts.format == formatDOT {
		writeDOT(cmd.OutOrStdout(), g)
		return nil
	}
	writeGraphText(cmd.OutOrStdout(), g)
	return nil
}

// missingByModule groups dangling references by their source module.
func missingByModule(g *modload.Graph) map[modload.Identity][]modload.Identity {
	out := make(map[modload.Identity][]modload.Identity)
	for _, ref := range g.Dangling() {
		out[ref.From] = append(out[ref.From], ref.To)
	}
	return out
}

func writeGraphText(w io.Writer, g *modload.Graph) {
	missing := missingByModule(g)
	for _, n := range g.Nodes() {
		fmt.Fprintf(w, "%s %s\n", ModuleStyle.Render(string(n.Identity)),
			SubtitleStyle.Render(fmt.Sprintf("(level %d, order %d)", n.Level, n.Order)))
		for _, dep := range g.DependenciesOf(n.Identity) {
			fmt.Fprintf(w, "  -> %s [%s]\n", dep, g.EdgeKindOf(n.Identity, dep))
		}
		for _, dep := range missing[n.Identity] {
			fmt.Fprintf(w, "  -> %s %s\n", dep, WarningStyle.Render("[missing]"))
		}
	}
}

func writeDOT(w io.Writer, g *modload.Graph) {
	fmt.Fprintln(w, "digraph modules {")
	for _, n := range g.Nodes() {
		fmt.Fprintf(w, "  %q [label=%q];\n", n.Identity, fmt.Sprintf("%s\nlevel %d", n.Identity, n.Level))
	}
	writeDOTEdges(w, g)
	fmt.Fprintln(w, "}")
}

// writeDOTEdges writes resolved edges, dashed when only implicit, and
// dangling references as dotted gray edges.
func writeDOTEdges(w io.Writer, g *modload.Graph) {
	for _, e := range g.Edges() {
		style := "solid"
		if !e.Kind.Has(modload.EdgeExplicit) {
			style = "dashed"
		}
		fmt.Fprintf(w, "  %q -> %q [label=%q, style=%s];\n", e.From, e.To, e.Kind.String(), style)
	}
	for _, ref := range g.Dangling() {
		fmt.Fprintf(w, "  %q -> %q [style=dotted, color=gray];\n", ref.From, ref.To)
	}
}
