// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/modhost/modhost/internal/issue"
	"github.com/modhost/modhost/internal/logging"
	"github.com/modhost/modhost/pkg/manifest"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Manifest != DefaultManifest {
		t.Errorf("manifest = %q", cfg.Manifest)
	}
	if cfg.Log.Level != logging.LevelWarn || cfg.Log.Format != logging.FormatText {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Watch.Debounce != DefaultDebounce {
		t.Errorf("debounce = %s", cfg.Watch.Debounce)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

//nolint:paralleltest // mutates the package-level config dir override
func TestConfigDir(t *testing.T) {
	t.Cleanup(Reset)

	SetConfigDirOverride("/tmp/modhost-test")
	dir, err := ConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != "/tmp/modhost-test" {
		t.Errorf("override ignored: %s", dir)
	}

	Reset()
	if runtime.GOOS == "linux" {
		t.Setenv("XDG_CONFIG_HOME", "/xdg")
		dir, err = ConfigDir()
		if err != nil {
			t.Fatal(err)
		}
		if dir != filepath.Join("/xdg", AppName) {
			t.Errorf("ConfigDir() = %s", dir)
		}
	}
}

func TestLoad_DefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir, BaseDir: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected no config path, got %q", path)
	}
	if cfg.Manifest != DefaultManifest {
		t.Errorf("manifest = %q", cfg.Manifest)
	}
}

func TestLoad_UserConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "config.cue", `
manifest: "deploy/modules.hcl"
log: {level: "debug", format: "json"}
overrides: {
	disable: ["legacy"]
	replace: {
		Store: {id: "Store.Memory", level: 0, depends_on: ["Clock"]}
	}
}
metrics: file: "/var/lib/node_exporter/modhost.prom"
watch: debounce: "2s"
`)

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir, BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != filepath.Join(dir, "config.cue") {
		t.Errorf("path = %q", path)
	}
	if cfg.Manifest != "deploy/modules.hcl" {
		t.Errorf("manifest = %q", cfg.Manifest)
	}
	if cfg.Log.Level != logging.LevelDebug || cfg.Log.Format != logging.FormatJSON {
		t.Errorf("log = %+v", cfg.Log)
	}
	if !slices.Equal(cfg.Overrides.Disable, []string{"legacy"}) {
		t.Errorf("disable = %v", cfg.Overrides.Disable)
	}
	sub, ok := cfg.Overrides.Replace["Store"]
	if !ok {
		t.Fatalf("replace keys lost their case: %v", cfg.Overrides.Replace)
	}
	if sub.ID != "Store.Memory" || sub.EffectiveLevel() != 0 || !slices.Equal(sub.DependsOn, []string{"Clock"}) {
		t.Errorf("replacement = %+v", sub)
	}
	if cfg.Metrics.File != "/var/lib/node_exporter/modhost.prom" {
		t.Errorf("metrics.file = %q", cfg.Metrics.File)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("debounce = %s", cfg.Watch.Debounce)
	}
}

func TestLoad_LocalConfigFallback(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	writeConfig(t, base, LocalConfigFile, `manifest: "local.toml"`)

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: t.TempDir(), BaseDir: base})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != filepath.Join(base, LocalConfigFile) || cfg.Manifest != "local.toml" {
		t.Errorf("path = %q, manifest = %q", path, cfg.Manifest)
	}
}

//nolint:paralleltest // sets environment variables
func TestLoad_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.cue", `log: level: "debug"`)
	t.Setenv("MODHOST_LOG_LEVEL", "error")
	t.Setenv("MODHOST_MANIFEST", "env.cue")

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir, BaseDir: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Log.Level != logging.LevelError {
		t.Errorf("env should win over file, got %q", cfg.Log.Level)
	}
	if cfg.Manifest != "env.cue" {
		t.Errorf("manifest = %q", cfg.Manifest)
	}

	t.Setenv("MODHOST_LOG_FORMAT", "xml")
	_, _, err = loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir, BaseDir: dir})
	if !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, logging.ErrInvalidFormat) {
		t.Errorf("expected invalid format from environment, got %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		contains string
	}{
		{name: "syntax error", content: `log: {level: `, contains: "config.cue"},
		{name: "unknown field", content: `colour: "red"`, contains: "colour"},
		{name: "invalid enum", content: `log: format: "xml"`, contains: "log.format"},
		{name: "invalid debounce", content: `watch: debounce: "soon"`, contains: "watch.debounce"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			path := writeConfig(t, dir, "config.cue", tt.content)
			_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
			if err == nil {
				t.Fatal("expected error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("expected *issue.ActionableError, got %T", err)
			}
			if ae.IssueId != issue.ConfigLoadFailedId {
				t.Errorf("issue id = %d", ae.IssueId)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error should contain %q, got: %v", tt.contains, err)
			}
		})
	}
}

func TestLoad_CustomPathNotFound(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "nope.cue")
	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: missing})
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *issue.ActionableError, got %T: %v", err, err)
	}
	if !ae.HasSuggestions() {
		t.Error("expected suggestions")
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := loadWithOptions(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	level := 10
	cfg := DefaultConfig()
	cfg.Overrides.Disable = []string{"a", "b"}
	cfg.Overrides.Replace = map[string]manifest.Module{
		"store": {ID: "store.sql", Unit: "sql.dll", Level: &level, Order: 2, DependsOn: []string{"db"}, Description: "SQL store"},
	}
	cfg.Metrics.File = "out.prom"

	dir := t.TempDir()
	path := writeConfig(t, dir, "config.cue", GenerateCUE(cfg))
	loaded, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("generated config does not load: %v\n%s", err, GenerateCUE(cfg))
	}
	if !slices.Equal(loaded.Overrides.Disable, cfg.Overrides.Disable) {
		t.Errorf("disable = %v", loaded.Overrides.Disable)
	}
	if got := loaded.Overrides.Replace["store"]; got.ID != "store.sql" || got.EffectiveLevel() != 10 || got.Order != 2 {
		t.Errorf("replace = %+v", got)
	}
	if loaded.Metrics.File != "out.prom" || loaded.Watch.Debounce != DefaultDebounce {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.cue")
	written, err := CreateDefaultConfig(path, false)
	if err != nil {
		t.Fatalf("CreateDefaultConfig failed: %v", err)
	}
	if written != path {
		t.Errorf("written = %q", written)
	}
	if _, err := CreateDefaultConfig(path, false); !errors.Is(err, os.ErrExist) {
		t.Errorf("expected os.ErrExist, got %v", err)
	}
	if _, err := CreateDefaultConfig(path, true); err != nil {
		t.Errorf("force overwrite failed: %v", err)
	}
}

func TestProvider(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, "config.cue", `manifest: "m.cue"`)
	p := NewProvider()

	cfg, err := p.Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil || cfg.Manifest != "m.cue" {
		t.Fatalf("Load() = %+v, %v", cfg, err)
	}
	got, err := p.Path(LoadOptions{ConfigDirPath: dir})
	if err != nil || got != path {
		t.Errorf("Path() = %q, %v", got, err)
	}
}
