// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modhost/modhost/pkg/modload"
)

type (
	validateOptions struct {
		disable []string
		strict  bool
	}

	// finding is a non-fatal problem found while resolving.
	finding struct {
		module  modload.Identity
		message string
	}
)

func newValidateCommand(app *App) *cobra.Command {
	var opts validateOptions
	cmd := &cobra.Command{
		Use:   "validate [manifest]",
		Short: "Check that the manifest resolves and report ignored dependencies",
		Long: `Resolve the manifest and report problems that do not stop resolution:
dependencies on modules that are unknown, disabled or replaced. Such
dependencies are ignored when ordering.

Cycles and duplicate module ids fail validation. With --strict, warnings
fail validation too.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, app, app.manifestPath(args), opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.disable, "disable", nil, "disable a module by id (repeatable)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "treat warnings as errors")
	return cmd
}

func runValidate(cmd *cobra.Command, app *App, path string, opts validateOptions) error {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	res, err := app.resolve(cmd.Context(), path, opts.disable)
	if err != nil {
		return app.fail(cmd, err)
	}

	fmt.Fprintln(stdout, TitleStyle.Render("Manifest Validation"))
	fmt.Fprintf(stdout, "%s Manifest: %s\n", infoIcon, res.bundle.Root)
	fmt.Fprintf(stdout, "%s %d file(s) loaded, %d module(s) discovered, %d planned\n",
		successIcon, len(res.bundle.Files), len(res.bundle.Modules()), res.plan.Len())

	findings := collectFindings(res)
	if len(findings) == 0 {
		fmt.Fprintf(stdout, "%s Manifest is valid\n", successIcon)
		return nil
	}

	fmt.Fprintln(stderr)
	fmt.Fprintf(stderr, "%s %d warning(s):\n", warningIcon, len(findings))
	for i, f := range findings {
		fmt.Fprintf(stderr, "  %d. %s %s\n", i+1, ModuleStyle.Render(string(f.module)), f.message)
	}

	if opts.strict {
		fmt.Fprintf(stderr, "\n%s Validation failed with %d warning(s)\n", errorIcon, len(findings))
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return &ExitError{Code: 1}
	}
	return nil
}

// collectFindings classifies every dangling dependency of the plan.
func collectFindings(res *resolution) []finding {
	var out []finding
	for _, ref := range res.plan.Graph().Dangling() {
		var msg string
		switch sub, replaced := res.policy.Replacement(ref.To); {
		case res.policy.IsDisabled(ref.To):
			msg = fmt.Sprintf("depends on disabled module %q; the dependency is ignored", ref.To)
		case replaced:
			msg = fmt.Sprintf("depends on %q, which is replaced by %q; the dependency is ignored (depend on %q instead)",
				ref.To, sub.Identity, sub.Identity)
		default:
			msg = fmt.Sprintf("depends on unknown module %q; the dependency is ignored", ref.To)
		}
		out = append(out, finding{module: ref.From, message: msg})
	}
	return out
}
