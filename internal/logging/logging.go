// SPDX-License-Identifier: MPL-2.0

// Package logging builds the slog loggers used across modhost. Records are
// formatted by charmbracelet/log so CLI diagnostics match the rest of the
// terminal output.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"

	FormatText   Format = "text"
	FormatJSON   Format = "json"
	FormatLogfmt Format = "logfmt"
)

var (
	// ErrInvalidLevel is returned when a Level value is not recognized.
	ErrInvalidLevel = errors.New("invalid log level")
	// ErrInvalidFormat is returned when a Format value is not recognized.
	ErrInvalidFormat = errors.New("invalid log format")
)

type (
	// Level is a log verbosity threshold.
	Level string

	// Format selects the record encoding.
	Format string

	// Options configure New.
	Options struct {
		Level  Level
		Format Format
		// Prefix is printed before every text record.
		Prefix string
		// Timestamps enables record timestamps.
		Timestamps bool
	}
)

// Validate returns an error wrapping ErrInvalidLevel for unknown levels.
func (l Level) Validate() error {
	switch l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return nil
	default:
		return fmt.Errorf("%w: %q (expected debug, info, warn or error)", ErrInvalidLevel, string(l))
	}
}

// Validate returns an error wrapping ErrInvalidFormat for unknown formats.
func (f Format) Validate() error {
	switch f {
	case FormatText, FormatJSON, FormatLogfmt:
		return nil
	default:
		return fmt.Errorf("%w: %q (expected text, json or logfmt)", ErrInvalidFormat, string(f))
	}
}

func (l Level) charm() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func (f Format) formatter() log.Formatter {
	switch f {
	case FormatJSON:
		return log.JSONFormatter
	case FormatLogfmt:
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// New returns a slog.Logger writing to w. Unknown levels fall back to info
// and unknown formats to text; validate options first to reject them.
func New(w io.Writer, opts Options) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		Level:           opts.Level.charm(),
		Formatter:       opts.Format.formatter(),
		Prefix:          opts.Prefix,
		ReportTimestamp: opts.Timestamps,
	})
	return slog.New(handler)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
