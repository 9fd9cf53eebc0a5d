// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

// skipConfigAnnotation marks commands that must work with a broken config file.
const skipConfigAnnotation = "modhost/skip-config"

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "modhost",
		Short: "Deterministic module load-order resolution",
		Long: TitleStyle.Render("modhost") + SubtitleStyle.Render(" - deterministic module load-order resolution") + `

modhost reads a manifest of modules, applies the host's disable and replace
overrides, and prints the order in which the modules must be loaded so that
every module follows the modules it depends on.

Manifests are CUE, HCL or TOML files and may include other manifests.

` + SubtitleStyle.Render("Examples:") + `
  modhost plan                    Print the load plan for ./modules.cue
  modhost plan deploy/app.hcl     Use another manifest
  modhost plan --disable metrics  Resolve without the 'metrics' module
  modhost graph --format dot      Export the dependency graph for Graphviz
  modhost validate                Report dangling dependencies`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loadFile := cmd.Annotations[skipConfigAnnotation] == ""
			if err := app.configure(cmd.Context(), loadFile); err != nil {
				return app.fail(cmd, err)
			}
			return nil
		},
	}
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&app.opts.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/modhost/config.cue, then ./modhost.cue)")
	flags.BoolVarP(&app.opts.verbose, "verbose", "v", false, "show debug logs, error chains and issue details")
	flags.StringVar(&app.opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&app.opts.logFormat, "log-format", "", "log format: text, json or logfmt")

	root.AddCommand(
		newPlanCommand(app),
		newGraphCommand(app),
		newValidateCommand(app),
		newConfigCommand(app),
	)
	return root
}

// Execute runs the CLI and exits with the command's status. It is called by
// main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// errorHandler leaves errors the commands already rendered alone.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}
