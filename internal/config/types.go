// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/modhost/modhost/internal/logging"
	"github.com/modhost/modhost/pkg/manifest"
)

const (
	// DefaultManifest is the manifest used when neither flags nor config name one.
	DefaultManifest = "modules.cue"
	// DefaultDebounce is the default watch quiet period.
	DefaultDebounce = 500 * time.Millisecond
)

// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
var ErrInvalidConfig = errors.New("invalid config")

type (
	// Config is the host configuration.
	Config struct {
		Manifest  string             `json:"manifest" mapstructure:"manifest"`
		Log       LogConfig          `json:"log" mapstructure:"log"`
		Overrides manifest.Overrides `json:"overrides" mapstructure:"overrides"`
		Metrics   MetricsConfig      `json:"metrics" mapstructure:"metrics"`
		Watch     WatchConfig        `json:"watch" mapstructure:"watch"`
	}

	// LogConfig selects log verbosity and encoding.
	LogConfig struct {
		Level  logging.Level  `json:"level" mapstructure:"level"`
		Format logging.Format `json:"format" mapstructure:"format"`
	}

	// MetricsConfig configures the Prometheus textfile export.
	MetricsConfig struct {
		File string `json:"file,omitempty" mapstructure:"file"`
	}

	// WatchConfig configures manifest watching.
	WatchConfig struct {
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
	}

	// InvalidConfigError collects every invalid field of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Manifest: DefaultManifest,
		Log: LogConfig{
			Level:  logging.LevelWarn,
			Format: logging.FormatText,
		},
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
		},
	}
}

// Validate checks fields that Viper may have taken from the environment,
// which bypasses the CUE schema.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Log.Level.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if err := c.Log.Format.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log.format: %w", err))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce: must not be negative, got %s", c.Watch.Debounce))
	}
	doc := &manifest.Document{Version: "1", Overrides: &c.Overrides}
	if err := manifest.Validate(doc, "config"); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig followed by the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
