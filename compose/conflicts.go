// Copyright 2026 The Cocoon Authors
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"fmt"
	"path"
	"strings"
)

// Severity classifies how serious a conflict is. Only namespace
// contradictions default to error; everything else is a warning.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Conflict kinds.
const (
	KindMountMode        = "mount-mode"
	KindROWritableSubdir = "ro-writable-subdir"
	KindEnvOverride      = "env-override"
	KindNSContradiction  = "ns-contradiction"
)

// Conflict reports a semantic disagreement between composed profiles. It is
// purely informational; detection never mutates a profile and never blocks
// composition. The caller decides whether to warn, prompt, or abort.
type Conflict struct {
	Kind        string
	Description string
	Severity    Severity
}

func (c Conflict) String() string {
	return fmt.Sprintf("[%s] %s: %s", c.Severity, c.Kind, c.Description)
}

// contradictions are flag pairs bwrap cannot satisfy simultaneously.
var contradictions = [][2]string{
	{"--unshare-net", "--share-net"},
}

// Detect inspects an ordered profile list for semantic conflicts. merged is
// the composed result of the same list; pass nil to have Detect compose it.
func Detect(profiles []*Profile, merged *Profile) []Conflict {
	if merged == nil {
		merged = Compose(profiles)
	}

	var conflicts []Conflict
	conflicts = append(conflicts, detectMountModes(profiles)...)
	conflicts = append(conflicts, detectROWritableSubdirs(merged)...)
	conflicts = append(conflicts, detectEnvOverrides(profiles)...)
	conflicts = append(conflicts, detectContradictions(merged)...)
	return conflicts
}

// detectMountModes reports container paths mounted with more than one mode
// across the profile list. The composer keeps both entries (they are not
// structurally equal), so bwrap applies whichever is positioned last; the
// conflict documents that, it does not change it.
func detectMountModes(profiles []*Profile) []Conflict {
	modes := make(map[string][]string)
	var order []string

	for _, profile := range profiles {
		if profile == nil {
			continue
		}
		for _, mount := range profile.Mounts {
			mode := normalizeMode(mount.Mode)
			seen := modes[mount.Container]
			if len(seen) == 0 {
				order = append(order, mount.Container)
			}
			duplicate := false
			for _, m := range seen {
				if m == mode {
					duplicate = true
					break
				}
			}
			if !duplicate {
				modes[mount.Container] = append(seen, mode)
			}
		}
	}

	var conflicts []Conflict
	for _, container := range order {
		if len(modes[container]) > 1 {
			conflicts = append(conflicts, Conflict{
				Kind: KindMountMode,
				Description: fmt.Sprintf(
					"container path %s is mounted with modes %s; the mount positioned last wins",
					container, strings.Join(modes[container], " and ")),
				Severity: SeverityWarning,
			})
		}
	}
	return conflicts
}

// detectROWritableSubdirs reports read-write mounts nested strictly under a
// read-only mount in the merged result. Valid, but often unintentional.
func detectROWritableSubdirs(merged *Profile) []Conflict {
	var readOnly []string
	for _, mount := range merged.Mounts {
		if mount.readOnly() {
			readOnly = append(readOnly, path.Clean(mount.Container))
		}
	}

	var conflicts []Conflict
	for _, mount := range merged.Mounts {
		if mount.readOnly() {
			continue
		}
		container := path.Clean(mount.Container)
		for _, ancestor := range readOnly {
			if container != ancestor && isDescendant(container, ancestor) {
				conflicts = append(conflicts, Conflict{
					Kind: KindROWritableSubdir,
					Description: fmt.Sprintf(
						"writable mount %s is nested under read-only mount %s",
						container, ancestor),
					Severity: SeverityWarning,
				})
				break
			}
		}
	}
	return conflicts
}

// isDescendant reports whether child is a strict filesystem descendant of
// ancestor. Both paths must already be cleaned.
func isDescendant(child, ancestor string) bool {
	if ancestor == "/" {
		return child != "/"
	}
	return strings.HasPrefix(child, ancestor+"/")
}

// detectEnvOverrides reports environment keys redefined with a different
// value by a later profile. Identical re-declaration is not a conflict.
func detectEnvOverrides(profiles []*Profile) []Conflict {
	first := make(map[string]string)
	var conflicts []Conflict

	for _, profile := range profiles {
		if profile == nil {
			continue
		}
		for _, key := range sortedKeys(profile.Env) {
			value := profile.Env[key]
			previous, ok := first[key]
			if !ok {
				first[key] = value
				continue
			}
			if previous != value {
				conflicts = append(conflicts, Conflict{
					Kind: KindEnvOverride,
					Description: fmt.Sprintf(
						"env %s=%q is overridden with %q by a later profile",
						key, previous, value),
					Severity: SeverityWarning,
				})
			}
		}
	}
	return conflicts
}

// detectContradictions reports flag pairs in the merged argument set that
// bwrap cannot satisfy. This is the only conflict class that defaults to
// error severity.
func detectContradictions(merged *Profile) []Conflict {
	present := make(map[string]bool, len(merged.Args))
	for _, arg := range merged.Args {
		present[arg] = true
	}

	var conflicts []Conflict
	for _, pair := range contradictions {
		if present[pair[0]] && present[pair[1]] {
			conflicts = append(conflicts, Conflict{
				Kind: KindNSContradiction,
				Description: fmt.Sprintf(
					"%s and %s are both requested; bwrap cannot satisfy both",
					pair[0], pair[1]),
				Severity: SeverityError,
			})
		}
	}
	return conflicts
}
