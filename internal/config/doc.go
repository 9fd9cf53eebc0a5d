// SPDX-License-Identifier: MPL-2.0

// Package config handles host configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/modhost/config.cue (XDG on Linux,
// ~/Library/Application Support/modhost/config.cue on macOS,
// %APPDATA%\modhost\config.cue on Windows), falling back to ./modhost.cue.
// MODHOST_* environment variables override file values, e.g. MODHOST_LOG_LEVEL.
// Files are validated against the embedded config_schema.cue before Viper sees them.
package config
