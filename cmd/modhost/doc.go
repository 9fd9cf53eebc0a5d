// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the modhost CLI commands.
//
// Every command loads the host configuration, reads the manifest bundle named
// on the command line (or by the config), and runs it through the modload
// resolver. Resolution failures are rendered as styled error cards on stderr
// and reported to the caller as *ExitError.
package cmd
