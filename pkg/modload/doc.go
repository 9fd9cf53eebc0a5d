// SPDX-License-Identifier: MPL-2.0

// Package modload turns a raw, unordered set of discovered module descriptors
// into a single reproducible load plan.
//
// Resolution runs in four stages, each a pure function of its inputs:
//
//   - the override policy removes disabled modules and swaps replaced ones
//     (applyOverrides);
//   - the graph builder derives dependency edges from shared compilation
//     units and from declared dependencies (BuildGraph);
//   - the sorter orders the graph depth-first, using (Level, Order, discovery
//     index) to break ties;
//   - the result is a LoadPlan in which every module follows its dependencies.
//
// A dependency cycle or a duplicated identity is fatal: callers get either a
// complete plan or an error, never a partial plan. Nothing is cached between
// runs.
package modload
