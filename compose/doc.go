// Copyright 2026 The Cocoon Authors
// SPDX-License-Identifier: Apache-2.0

// Package compose turns declarative sandbox profiles into bubblewrap (bwrap)
// command lines, and back.
//
// A [Profile] declares filesystem mounts, environment variables, raw bwrap
// flags, special filesystem mounts (tmpfs, dev, proc), and the command to run
// inside the sandbox. Profiles are authored as YAML or JSON/JSONC files and
// support inheritance via the extends field; [Loader] resolves an inheritance
// chain into a single profile, detecting cycles.
//
// [Compose] merges an ordered list of profiles into one canonical profile.
// Mounts are unioned by exact equality, environment variables follow
// last-writer-wins, and raw flag tokens are grouped by flag arity (the shared
// [Arity] table), deduplicated across profiles, and reorganized into the
// canonical bucket order bwrap expects: namespace flags first, directory
// creation next, then everything else, with working-directory changes last.
//
// [Detect] inspects a profile list for semantic conflicts (mount mode
// disagreements, writable mounts nested under read-only ones, environment
// overrides, namespace contradictions). Conflicts are pure reports; the
// caller decides whether to warn or abort.
//
// [Build] renders a merged profile into a flat bwrap argv, expanding ~ and
// environment references in mount paths unless the path is single-quoted.
// [ParseCommand] is the inverse: it tokenizes an existing bwrap invocation
// and reconstructs the profile shape, using the same arity table so that
// build/parse round-trips stay consistent.
//
// The package performs no I/O beyond the profile file reads in [Loader] and
// never executes anything; it only produces the instruction set for bwrap to
// enforce.
package compose
