// Package relink implements version-gated hot rewriting of loaded modules.
//
// A module may ship two implementations of a function, one for old host
// versions and one for new, while callers always invoke a single canonical
// name. Instead of branching on the host version at every call, the
// module's loaded image is rewritten once: the variant selected by the
// running host version is renamed to the canonical name, the other variant
// and the original trigger stub are tombstoned, stale exports are pruned,
// and the module is recompiled and swapped back into the registry.
//
// The pipeline is strictly linear - resolve version, extract forms, read
// the gate table, rewrite, recompile, swap - and holds a per-module lock
// for its whole duration, so concurrent triggers serialize. No state
// survives a run; a repeated update of an already-rewritten module is a
// safe no-op.
package relink
