// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modhost/modhost/internal/config"
)

// newConfigCommand creates the `modhost config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage modhost configuration",
		Long: `Manage modhost configuration.

Configuration is read from the first file found among:
  - the --config flag
  - Linux: ~/.config/modhost/config.cue
    macOS: ~/Library/Application Support/modhost/config.cue
    Windows: %APPDATA%\modhost\config.cue
  - ./modhost.cue

MODHOST_* environment variables override file values (MODHOST_LOG_LEVEL,
MODHOST_MANIFEST, ...).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			showConfig(cmd.OutOrStdout(), app)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(app.cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Show where configuration is searched",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := showConfigPath(cmd.OutOrStdout(), app); err != nil {
				return app.fail(cmd, err)
			}
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:         "init [path]",
		Short:       "Create a default configuration file",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := app.opts.configPath
			if len(args) > 0 {
				target = args[0]
			}
			written, err := config.CreateDefaultConfig(target, force)
			if errors.Is(err, os.ErrExist) {
				err = fmt.Errorf("%w (use --force to overwrite)", err)
			}
			if err != nil {
				return app.fail(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Created default configuration at %s\n", successIcon, written)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

func showConfig(w io.Writer, app *App) {
	cfg := app.cfg
	key := ModuleStyle.Render
	value := SuccessStyle.Render
	none := SubtitleStyle.Render("(none)")

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if app.cfgPath != "" {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), app.cfgPath)
	} else {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", key("manifest"), value(cfg.Manifest))
	fmt.Fprintf(w, "%s:\n", key("log"))
	fmt.Fprintf(w, "  level: %s\n", value(string(cfg.Log.Level)))
	fmt.Fprintf(w, "  format: %s\n", value(string(cfg.Log.Format)))

	fmt.Fprintf(w, "%s:\n", key("overrides"))
	if len(cfg.Overrides.Disable) == 0 {
		fmt.Fprintf(w, "  disable: %s\n", none)
	} else {
		fmt.Fprintf(w, "  disable: %s\n", value(strings.Join(cfg.Overrides.Disable, ", ")))
	}
	if len(cfg.Overrides.Replace) == 0 {
		fmt.Fprintf(w, "  replace: %s\n", none)
	} else {
		policy := cfg.Overrides.Policy(nil)
		fmt.Fprintln(w, "  replace:")
		for _, orig := range policy.Replaced() {
			sub, _ := policy.Replacement(orig)
			fmt.Fprintf(w, "    %s -> %s\n", orig, value(string(sub.Identity)))
		}
	}

	metricsFile := none
	if cfg.Metrics.File != "" {
		metricsFile = value(cfg.Metrics.File)
	}
	fmt.Fprintf(w, "%s:\n  file: %s\n", key("metrics"), metricsFile)
	fmt.Fprintf(w, "%s:\n  debounce: %s\n", key("watch"), value(cfg.Watch.Debounce.String()))
}

func showConfigPath(w io.Writer, app *App) error {
	cfgFile, err := config.ConfigFilePath()
	if err != nil {
		return err
	}
	local, err := filepath.Abs(config.LocalConfigFile)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Config directory: %s\n", filepath.Dir(cfgFile))
	fmt.Fprintf(w, "Config file: %s\n", cfgFile)
	fmt.Fprintf(w, "Local config file: %s\n", local)

	active, err := app.Config.Path(config.LoadOptions{ConfigFilePath: app.opts.configPath})
	switch {
	case err != nil:
		fmt.Fprintf(w, "Active: %s\n", SubtitleStyle.Render("(unavailable: "+err.Error()+")"))
	case active == "":
		fmt.Fprintf(w, "Active: %s\n", SubtitleStyle.Render("(none, using defaults)"))
	default:
		fmt.Fprintf(w, "Active: %s\n", active)
	}
	return nil
}
