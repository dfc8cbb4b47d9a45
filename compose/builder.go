// Copyright 2026 The Cocoon Authors
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"os"
	"regexp"
	"strings"
)

// LauncherName is the bwrap executable name emitted as the first argv token.
const LauncherName = "bwrap"

// defaultRun is the fallback command when neither an override nor a profile
// run command is present: a login shell.
var defaultRun = []string{"/bin/sh", "-lc", "exec /bin/bash --login"}

// Build renders a merged profile into the flat bwrap argument vector.
// runOverride, when non-empty, replaces the profile's run command.
//
// Emission order matches the canonical arg organization: namespace and
// session flags, tmpfs mounts, directory creation, bind mounts, dev and
// proc mounts, environment variables, remaining raw args, late flags, the
// "--" separator, and finally the command to run. bwrap applies its flags
// positionally, so namespace setup must precede filesystem assembly and the
// working-directory change must follow it.
//
// Mount host and container paths are expanded for ~ and environment
// variable references unless wrapped in literal single quotes, in which
// case the quotes are stripped and the path is passed through untouched
// (deferring expansion to bwrap's own invocation environment). Mounts
// missing a host or container path are skipped.
//
// Build never executes anything; the result is handed to the caller.
func Build(profile *Profile, runOverride []string) []string {
	run := runOverride
	if len(run) == 0 {
		switch {
		case profile.Run.Argv != nil:
			run = profile.Run.Argv
		case profile.Run.Shell != "":
			run = []string{"/bin/sh", "-c", profile.Run.Shell}
		default:
			run = defaultRun
		}
	}

	buckets := partitionArgs(profile.Args)

	cmd := []string{LauncherName}
	for _, group := range buckets.namespace {
		cmd = append(cmd, group...)
	}

	for _, path := range profile.Tmpfs {
		cmd = append(cmd, "--tmpfs", path)
	}

	for _, group := range buckets.dirs {
		cmd = append(cmd, group...)
	}

	for _, mount := range profile.Mounts {
		if mount.Host == "" || mount.Container == "" {
			continue
		}
		flag := "--bind"
		if mount.readOnly() {
			flag = "--ro-bind"
		}
		cmd = append(cmd, flag, expandPath(mount.Host), expandPath(mount.Container))
	}

	for _, path := range profile.Dev {
		cmd = append(cmd, "--dev", path)
	}
	for _, path := range profile.Proc {
		cmd = append(cmd, "--proc", path)
	}

	for _, key := range sortedKeys(profile.Env) {
		cmd = append(cmd, "--setenv", key, profile.Env[key])
	}

	for _, group := range buckets.other {
		cmd = append(cmd, group...)
	}
	for _, group := range buckets.late {
		cmd = append(cmd, group...)
	}

	cmd = append(cmd, "--")
	cmd = append(cmd, run...)
	return cmd
}

// envVarPattern matches $NAME and ${NAME} references.
var envVarPattern = regexp.MustCompile(`\$(\w+)|\$\{([^}]+)\}`)

// expandPath expands ~ and environment variable references in a mount path.
// A path wrapped in single quotes is returned literally with the quotes
// stripped. Unset variables are left intact rather than replaced with an
// empty string, so a typo still shows up in the built command.
func expandPath(path string) string {
	if len(path) >= 2 && strings.HasPrefix(path, "'") && strings.HasSuffix(path, "'") {
		return path[1 : len(path)-1]
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + strings.TrimPrefix(path, "~")
		}
	}

	return envVarPattern.ReplaceAllStringFunc(path, func(match string) string {
		name := strings.TrimPrefix(match, "$")
		name = strings.TrimPrefix(name, "{")
		name = strings.TrimSuffix(name, "}")
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return match
	})
}
