// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/modhost/modhost/internal/config"
	"github.com/modhost/modhost/internal/issue"
	"github.com/modhost/modhost/internal/logging"
	"github.com/modhost/modhost/pkg/manifest"
	"github.com/modhost/modhost/pkg/modload"
)

type (
	// App wires CLI services and per-invocation state. Command handlers
	// receive an App and reach configuration and the resolver through it.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer

		opts    rootOptions
		cfg     *config.Config
		cfgPath string
		logger  *slog.Logger
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	// rootOptions holds the global flags.
	rootOptions struct {
		configPath string
		verbose    bool
		logLevel   string
		logFormat  string
	}

	// resolution is one pass through load, policy merge and resolve.
	resolution struct {
		bundle *manifest.Bundle
		policy modload.OverridePolicy
		plan   *modload.LoadPlan
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
		cfg:    config.DefaultConfig(),
		logger: logging.Discard(),
	}
}

// configure loads the configuration and builds the logger. Flags win over
// the config file, which wins over defaults.
func (a *App) configure(ctx context.Context, loadFile bool) error {
	cfg := config.DefaultConfig()
	if loadFile {
		opts := config.LoadOptions{ConfigFilePath: a.opts.configPath}
		loaded, err := a.Config.Load(ctx, opts)
		if err != nil {
			return err
		}
		cfg = loaded
		// Path cannot fail once Load succeeded with the same options.
		a.cfgPath, _ = a.Config.Path(opts)
	}

	switch {
	case a.opts.logLevel != "":
		cfg.Log.Level = logging.Level(a.opts.logLevel)
	case a.opts.verbose:
		cfg.Log.Level = logging.LevelDebug
	}
	if a.opts.logFormat != "" {
		cfg.Log.Format = logging.Format(a.opts.logFormat)
	}
	if err := errors.Join(cfg.Log.Level.Validate(), cfg.Log.Format.Validate()); err != nil {
		return issue.NewErrorContext().
			WithOperation("configure logging").
			WithSuggestion("Use --log-level debug|info|warn|error and --log-format text|json|logfmt").
			Wrap(err).
			BuildError()
	}

	a.cfg = cfg
	a.logger = logging.New(a.stderr, logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Prefix: config.AppName,
	})
	return nil
}

// fail renders err on stderr and returns an already-reported ExitError.
func (a *App) fail(cmd *cobra.Command, err error) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	fmt.Fprintln(cmd.ErrOrStderr(), renderError(err, a.opts.verbose))
	return &ExitError{Code: 1}
}

// manifestPath returns the manifest named on the command line or in the config.
func (a *App) manifestPath(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return a.cfg.Manifest
}

func (a *App) loadBundle(ctx context.Context, path string) (*manifest.Bundle, error) {
	b, err := manifest.NewLoader(manifest.WithLogger(a.logger)).Load(ctx, path)
	if err != nil {
		return nil, manifestError(path, err)
	}
	return b, nil
}

// policy merges the manifest overrides, the config overrides and the
// --disable flag, later layers winning.
func (a *App) policy(b *manifest.Bundle, disable []string) modload.OverridePolicy {
	p := b.Policy().Merge(a.cfg.Overrides.Policy(b.Units()))
	if len(disable) > 0 {
		ids := make([]modload.Identity, len(disable))
		for i, id := range disable {
			ids[i] = modload.Identity(id)
		}
		p = p.Merge(modload.NewOverridePolicy(ids, nil))
	}
	return p
}

// resolve runs the full pipeline for the manifest at path. On a resolution
// error the returned resolution still carries the bundle and policy.
func (a *App) resolve(ctx context.Context, path string, disable []string, opts ...modload.Option) (*resolution, error) {
	b, err := a.loadBundle(ctx, path)
	if err != nil {
		return nil, err
	}
	res := &resolution{bundle: b, policy: a.policy(b, disable)}

	r := modload.NewResolver(append([]modload.Option{modload.WithLogger(a.logger)}, opts...)...)
	plan, err := r.Resolve(b.Descriptors(), res.policy)
	if err != nil {
		return res, err
	}
	res.plan = plan
	return res, nil
}

func manifestError(path string, err error) error {
	ec := issue.NewErrorContext().
		WithOperation("load manifest").
		WithResource(path).
		Wrap(err)

	switch {
	case errors.Is(err, os.ErrNotExist), errors.Is(err, manifest.ErrIncludeNotFound):
		ec.WithIssue(issue.ManifestNotFoundId).
			WithSuggestion("Pass the manifest path as an argument").
			WithSuggestion("Set 'manifest' in the config file (see 'modhost config path')")
	case errors.Is(err, manifest.ErrUnsupportedVersion):
		ec.WithIssue(issue.UnsupportedManifestVersionId).
			WithSuggestion(fmt.Sprintf("Declare a version matching %s", manifest.SupportedVersions))
	default:
		ec.WithIssue(issue.ManifestParseErrorId).
			WithSuggestion("Fix the reported field; the line format is <file>: <path>: <message>")
	}
	return ec.BuildError()
}

// manifestDir returns the directory to watch for the manifest at path.
func manifestDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Dir(abs), nil
}
