// Copyright 2026 The Cocoon Authors
// SPDX-License-Identifier: Apache-2.0

package compose

import "strings"

// Compose merges an ordered list of profiles into a single canonical
// profile. It is pure and deterministic: no I/O, and the same input always
// produces the same output.
//
// Merge policy, applied in input order:
//
//   - Mounts: union. An incoming mount is appended only if no structurally
//     identical entry (same host, container, and mode) exists already.
//     Two mounts differing only in mode are both kept, in accumulation
//     order; bwrap's own last-wins positional semantics decide.
//   - Env: later values overwrite earlier ones for the same key.
//   - Args: tokens are grouped per flag arity, deduplicated globally across
//     all profiles by element-wise group equality, then reorganized into
//     the canonical bucket order.
//   - Run: the last profile that defines a run command wins outright.
//   - Tmpfs, Dev, Proc: union of unique paths, first-seen order.
//
// An empty input yields an all-empty profile.
func Compose(profiles []*Profile) *Profile {
	merged := &Profile{Env: make(map[string]string)}

	seen := make(map[string]bool)
	var groups []ArgGroup

	for _, profile := range profiles {
		if profile == nil {
			continue
		}

		for _, mount := range profile.Mounts {
			if !containsMount(merged.Mounts, mount) {
				merged.Mounts = append(merged.Mounts, mount)
			}
		}

		for key, value := range profile.Env {
			merged.Env[key] = value
		}

		for _, group := range groupArgs(profile.Args) {
			key := strings.Join(group, "\x00")
			if !seen[key] {
				seen[key] = true
				groups = append(groups, group)
			}
		}

		if profile.Run.Defined() {
			merged.Run = profile.Run.clone()
		}

		merged.Tmpfs = unionPaths(merged.Tmpfs, profile.Tmpfs)
		merged.Dev = unionPaths(merged.Dev, profile.Dev)
		merged.Proc = unionPaths(merged.Proc, profile.Proc)
	}

	if len(groups) > 0 {
		var flat []string
		for _, group := range groups {
			flat = append(flat, group...)
		}
		merged.Args = organizeArgs(flat)
	}

	return merged
}

func containsMount(mounts []Mount, mount Mount) bool {
	for _, m := range mounts {
		if m == mount {
			return true
		}
	}
	return false
}

func unionPaths(accumulated, incoming StringList) StringList {
	for _, path := range incoming {
		duplicate := false
		for _, existing := range accumulated {
			if existing == path {
				duplicate = true
				break
			}
		}
		if !duplicate {
			accumulated = append(accumulated, path)
		}
	}
	return accumulated
}
