// Copyright 2026 The Cocoon Authors
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"fmt"
	"sort"
)

// knownKeys are the top-level keys the profile schema accepts.
var knownKeys = map[string]bool{
	"mounts":      true,
	"env":         true,
	"args":        true,
	"run":         true,
	"tmpfs":       true,
	"dev":         true,
	"proc":        true,
	"extends":     true,
	"description": true,
}

// Validate checks a profile mapping against the fixed schema and returns
// every violation found, not just the first, so a user can fix all issues
// in one pass. An empty result means the mapping is valid.
func Validate(mapping map[string]any) []string {
	var violations []string

	keys := make([]string, 0, len(mapping))
	for key := range mapping {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !knownKeys[key] {
			violations = append(violations, fmt.Sprintf("unknown key %q", key))
		}
	}

	if value, ok := mapping["mounts"]; ok {
		violations = append(violations, validateMounts(value)...)
	}

	if value, ok := mapping["env"]; ok {
		if _, isMap := value.(map[string]any); !isMap {
			violations = append(violations, "env must be a mapping of names to values")
		}
	}

	if value, ok := mapping["args"]; ok {
		if _, isList := value.([]any); !isList {
			violations = append(violations, "args must be a list of tokens")
		}
	}

	if value, ok := mapping["run"]; ok {
		if !isString(value) && !isStringList(value) {
			violations = append(violations, "run must be a string or a list of strings")
		}
	}

	for _, key := range []string{"tmpfs", "dev", "proc"} {
		if value, ok := mapping[key]; ok {
			if !isString(value) && !isStringList(value) {
				violations = append(violations, fmt.Sprintf("%s must be a path or a list of paths", key))
			}
		}
	}

	if value, ok := mapping["extends"]; ok {
		if !isString(value) && !isStringList(value) {
			violations = append(violations, "extends must be a name or a list of names")
		}
	}

	if value, ok := mapping["description"]; ok {
		if !isString(value) {
			violations = append(violations, "description must be a string")
		}
	}

	return violations
}

func validateMounts(value any) []string {
	entries, ok := value.([]any)
	if !ok {
		return []string{"mounts must be a list of mappings"}
	}

	var violations []string
	for i, entry := range entries {
		mount, ok := entry.(map[string]any)
		if !ok {
			violations = append(violations, fmt.Sprintf("mounts[%d] must be a mapping", i))
			continue
		}
		if !isString(mount["host"]) || mount["host"] == "" {
			violations = append(violations, fmt.Sprintf("mounts[%d]: host is required", i))
		}
		if !isString(mount["container"]) || mount["container"] == "" {
			violations = append(violations, fmt.Sprintf("mounts[%d]: container is required", i))
		}
		if mode, ok := mount["mode"]; ok && !isString(mode) {
			violations = append(violations, fmt.Sprintf("mounts[%d]: mode must be a string", i))
		}
	}
	return violations
}

func isString(value any) bool {
	_, ok := value.(string)
	return ok
}

func isStringList(value any) bool {
	items, ok := value.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if !isString(item) {
			return false
		}
	}
	return true
}
