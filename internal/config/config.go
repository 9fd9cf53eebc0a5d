// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/modhost/modhost/internal/issue"
	"github.com/modhost/modhost/pkg/cueutil"
	"github.com/modhost/modhost/pkg/manifest"
)

const (
	// AppName is the application name.
	AppName = "modhost"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// LocalConfigFile is the per-project config file looked up in the working directory.
	LocalConfigFile = "modhost.cue"
	// EnvPrefix prefixes environment overrides (MODHOST_LOG_LEVEL, ...).
	EnvPrefix = "MODHOST"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the modhost configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// ConfigFilePath returns the path of the user config file.
func ConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// resolvePath picks the config file to load: the explicit path, the user
// config file, then ./modhost.cue. It returns "" when none exists.
func resolvePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithIssue(issue.ConfigLoadFailedId).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'modhost config path' to see where configuration is searched").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		var err error
		if cfgDir, err = ConfigDir(); err != nil {
			return "", err
		}
	}
	candidates := []string{filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)}
	if opts.BaseDir != "" {
		candidates = append(candidates, filepath.Join(opts.BaseDir, LocalConfigFile))
	} else {
		candidates = append(candidates, LocalConfigFile)
	}
	for _, c := range candidates {
		if fileExists(c) {
			return c, nil
		}
	}
	return "", nil
}

// loadWithOptions performs option-driven config loading without touching
// package-level state. It returns the config and the file it came from.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("manifest", defaults.Manifest)
	v.SetDefault("log.level", string(defaults.Log.Level))
	v.SetDefault("log.format", string(defaults.Log.Format))
	v.SetDefault("overrides.disable", []string{})
	v.SetDefault("metrics.file", defaults.Metrics.File)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath, err := resolvePath(opts)
	if err != nil {
		return nil, "", err
	}

	var replace map[string]manifest.Module
	if resolvedPath != "" {
		if replace, err = loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithIssue(issue.ConfigLoadFailedId).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	// Viper lowercases map keys; module ids are case-sensitive.
	cfg.Overrides.Replace = replace

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Check MODHOST_* environment variables as well as the config file").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper. It returns overrides.replace decoded
// directly from CUE so module ids keep their case.
//
// Config decodes to map[string]any rather than a struct, with Concrete(false)
// because every field is optional, so cueutil.ParseAndDecode does not fit here.
func loadCUEIntoViper(v *viper.Viper, path string) (map[string]manifest.Module, error) {
	data, err := cueutil.ReadFile(path, cueutil.DefaultMaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return nil, cueutil.FormatError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return nil, cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return nil, cueutil.FormatError(err, path)
	}

	var replace map[string]manifest.Module
	if rv := unified.LookupPath(cue.ParsePath("overrides.replace")); rv.Exists() {
		if err := rv.Decode(&replace); err != nil {
			return nil, cueutil.FormatError(err, path)
		}
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	return replace, nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default configuration to path unless the
// file exists and force is false. An empty path selects ConfigFilePath().
// It returns the path written.
func CreateDefaultConfig(path string, force bool) (string, error) {
	if path == "" {
		var err error
		if path, err = ConfigFilePath(); err != nil {
			return "", err
		}
	}

	if !force && fileExists(path) {
		return path, fmt.Errorf("config file already exists: %s: %w", path, os.ErrExist)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return path, nil
}

// GenerateCUE renders cfg as a config.cue document.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// modhost configuration\n\n")

	fmt.Fprintf(&sb, "manifest: %q\n", cfg.Manifest)

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel:  %q\n", cfg.Log.Level)
	fmt.Fprintf(&sb, "\tformat: %q\n", cfg.Log.Format)
	sb.WriteString("}\n")

	if len(cfg.Overrides.Disable) > 0 || len(cfg.Overrides.Replace) > 0 {
		sb.WriteString("\noverrides: {\n")
		if len(cfg.Overrides.Disable) > 0 {
			sb.WriteString("\tdisable: [")
			for i, id := range cfg.Overrides.Disable {
				if i > 0 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(&sb, "%q", id)
			}
			sb.WriteString("]\n")
		}
		if len(cfg.Overrides.Replace) > 0 {
			sb.WriteString("\treplace: {\n")
			keys := make([]string, 0, len(cfg.Overrides.Replace))
			for k := range cfg.Overrides.Replace {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, orig := range keys {
				fmt.Fprintf(&sb, "\t\t%q: %s\n", orig, moduleCUE(cfg.Overrides.Replace[orig]))
			}
			sb.WriteString("\t}\n")
		}
		sb.WriteString("}\n")
	}

	if cfg.Metrics.File != "" {
		sb.WriteString("\nmetrics: {\n")
		fmt.Fprintf(&sb, "\tfile: %q\n", cfg.Metrics.File)
		sb.WriteString("}\n")
	}

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tdebounce: %q\n", cfg.Watch.Debounce.String())
	sb.WriteString("}\n")

	return sb.String()
}

func moduleCUE(m manifest.Module) string {
	parts := []string{fmt.Sprintf("id: %q", m.ID)}
	if m.Unit != "" {
		parts = append(parts, fmt.Sprintf("unit: %q", m.Unit))
	}
	if m.Level != nil {
		parts = append(parts, fmt.Sprintf("level: %d", *m.Level))
	}
	if m.Order != 0 {
		parts = append(parts, fmt.Sprintf("order: %d", m.Order))
	}
	if len(m.DependsOn) > 0 {
		deps := make([]string, len(m.DependsOn))
		for i, d := range m.DependsOn {
			deps[i] = fmt.Sprintf("%q", d)
		}
		parts = append(parts, "depends_on: ["+strings.Join(deps, ", ")+"]")
	}
	if m.Description != "" {
		parts = append(parts, fmt.Sprintf("description: %q", m.Description))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
