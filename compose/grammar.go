// Copyright 2026 The Cocoon Authors
// SPDX-License-Identifier: Apache-2.0

package compose

import "sort"

// Flag arity table for bwrap. This is the single source of truth consulted
// by the composer (argument grouping), the parser (tokenizing), and the
// builder (canonical ordering). Tokens not listed here are treated as
// standalone (arity 0).

// bindFlags are the bind-mount flags that take a source and a destination.
// The parser models these as Mount entries rather than raw args.
var bindFlags = map[string]bool{
	"--bind":         true,
	"--bind-try":     true,
	"--dev-bind":     true,
	"--dev-bind-try": true,
	"--ro-bind":      true,
	"--ro-bind-try":  true,
}

// roBindFlags are the bind variants that mount read-only.
var roBindFlags = map[string]bool{
	"--ro-bind":     true,
	"--ro-bind-try": true,
}

// twoArgFlags take exactly two values (key/value or source/dest style).
// The bind flags also take two values but are tracked separately because
// the parser gives them special treatment.
var twoArgFlags = map[string]bool{
	"--setenv":  true,
	"--symlink": true,
}

// oneArgFlags take exactly one value.
var oneArgFlags = map[string]bool{
	"--unsetenv":     true,
	"--chdir":        true,
	"--tmpfs":        true,
	"--dir":          true,
	"--proc":         true,
	"--dev":          true,
	"--remount-ro":   true,
	"--uid":          true,
	"--gid":          true,
	"--hostname":     true,
	"--lock-file":    true,
	"--file":         true,
	"--bind-data":    true,
	"--ro-bind-data": true,
	"--perms":        true,
	"--size":         true,
	"--chmod":        true,
}

// zeroArgFlags are namespace and session toggles with no value. These also
// form the first canonical output bucket: bwrap applies namespace setup
// before filesystem operations, so they must precede everything else.
var zeroArgFlags = map[string]bool{
	"--unshare-user":       true,
	"--unshare-user-try":   true,
	"--unshare-ipc":        true,
	"--unshare-pid":        true,
	"--unshare-net":        true,
	"--unshare-uts":        true,
	"--unshare-cgroup":     true,
	"--unshare-cgroup-try": true,
	"--unshare-all":        true,
	"--share-net":          true,
	"--die-with-parent":    true,
	"--as-pid-1":           true,
	"--new-session":        true,
	"--clearenv":           true,
}

// dirFlags create directories inside the sandbox. They are emitted after
// namespace flags so the filesystem exists before binds reference it.
var dirFlags = map[string]bool{
	"--dir": true,
}

// lateFlags apply after the filesystem is fully assembled. Currently only
// the working-directory change.
var lateFlags = map[string]bool{
	"--chdir": true,
}

// Arity returns the number of value tokens the given flag consumes.
// Unrecognized tokens are standalone.
func Arity(flag string) int {
	switch {
	case bindFlags[flag] || twoArgFlags[flag]:
		return 2
	case oneArgFlags[flag]:
		return 1
	default:
		return 0
	}
}

// ArgGroup is one logical flag invocation: the flag token followed by the
// values it consumes. Two groups are duplicates iff all their elements are
// pairwise equal; groups are the atomic unit for deduplication.
type ArgGroup []string

// groupArgs partitions a flat token sequence into ArgGroups using a greedy
// left-to-right scan. A flag consumes exactly its declared arity of
// following tokens if enough remain; otherwise it degrades to arity 0. The
// parser applies the identical degradation rule at end of stream, keeping
// build/parse round-trips consistent.
func groupArgs(args []string) []ArgGroup {
	var groups []ArgGroup
	for i := 0; i < len(args); {
		n := Arity(args[i])
		if i+n >= len(args) {
			// Not enough tokens left; degrade to standalone.
			n = 0
		}
		group := make(ArgGroup, 0, n+1)
		group = append(group, args[i:i+n+1]...)
		groups = append(groups, group)
		i += n + 1
	}
	return groups
}

// argBuckets holds argument groups partitioned by canonical output
// position.
type argBuckets struct {
	namespace []ArgGroup
	dirs      []ArgGroup
	other     []ArgGroup
	late      []ArgGroup
}

// partitionArgs splits a flat token sequence into the canonical buckets,
// preserving first-seen order within each bucket.
func partitionArgs(args []string) argBuckets {
	var buckets argBuckets
	for _, group := range groupArgs(args) {
		switch {
		case zeroArgFlags[group[0]] && len(group) == 1:
			buckets.namespace = append(buckets.namespace, group)
		case dirFlags[group[0]]:
			buckets.dirs = append(buckets.dirs, group)
		case lateFlags[group[0]]:
			buckets.late = append(buckets.late, group)
		default:
			buckets.other = append(buckets.other, group)
		}
	}
	return buckets
}

// organizeArgs reorders a flat token sequence into the canonical bucket
// order: namespace/session flags (sorted for determinism), directory
// creation, everything else, then late flags. All tokens are preserved.
func organizeArgs(args []string) []string {
	buckets := partitionArgs(args)

	sort.Slice(buckets.namespace, func(i, j int) bool {
		return buckets.namespace[i][0] < buckets.namespace[j][0]
	})

	result := make([]string, 0, len(args))
	for _, bucket := range [][]ArgGroup{buckets.namespace, buckets.dirs, buckets.other, buckets.late} {
		for _, group := range bucket {
			result = append(result, group...)
		}
	}
	return result
}
