// SPDX-License-Identifier: MPL-2.0

// Package manifest loads module descriptors and override policies from
// manifest files written in CUE, HCL or TOML.
//
// A manifest declares compilation units and the units they reference, the
// modules each unit contains, and optional overrides. Manifests may include
// other manifests through glob patterns; the loader reads them depth-first and
// concatenates their modules in load order, which becomes the discovery order
// seen by the resolver.
package manifest
