// Copyright 2026 The Cocoon Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/cocoon-run/cocoon/compose"
	"github.com/cocoon-run/cocoon/lib/cli"
	"github.com/cocoon-run/cocoon/lib/report"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Summary: "check profile files against the schema",
		Description: "Load each profile file as a raw mapping and report every schema\n" +
			"violation found. Exits 1 when any file has violations.",
		Usage: "cocoon validate <file>...",
		Examples: []cli.Example{
			{Command: "cocoon validate dev.yaml net.json"},
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("at least one profile file is required")
			}

			failed := false
			for _, path := range args {
				mapping, err := compose.LoadMapping(path)
				if err != nil {
					return err
				}
				violations := compose.Validate(mapping)
				report.Violations(os.Stdout, path, violations)
				if len(violations) > 0 {
					failed = true
				}
			}
			if failed {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

func listProfilesCommand() *cli.Command {
	flags := &buildFlags{}
	return &cli.Command{
		Name:    "list-profiles",
		Summary: "list available profiles",
		Description: "List the profiles available in the search directories. Earlier\n" +
			"directories shadow later ones when names collide.",
		Usage: "cocoon list-profiles [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list-profiles", pflag.ContinueOnError)
			flagSet.StringArrayVar(&flags.configDirs, "config-dir", nil,
				"additional profile search directory (repeatable)")
			return flagSet
		},
		Run: func(args []string) error {
			report.Profiles(os.Stdout, discoverProfiles(flags.searchDirs()))
			return nil
		},
	}
}

// profileExtensions mirrors the loader's resolution order; only these files
// count as profiles when scanning a directory.
var profileExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
}

// discoverProfiles scans the search directories for profile files. The
// first directory containing a given name wins, matching the loader's
// resolution order. Descriptions come from a best-effort load; a profile
// that fails to load is still listed.
func discoverProfiles(dirs []string) []report.ProfileEntry {
	seen := make(map[string]bool)
	var entries []report.ProfileEntry

	loader := compose.NewLoader(dirs...)
	for _, dir := range dirs {
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, file := range files {
			if file.IsDir() || !profileExtensions[filepath.Ext(file.Name())] {
				continue
			}
			name := strings.TrimSuffix(file.Name(), filepath.Ext(file.Name()))
			if seen[name] {
				continue
			}
			seen[name] = true

			entry := report.ProfileEntry{Name: name, Path: filepath.Join(dir, file.Name())}
			if profile, err := loader.Load(entry.Path); err == nil {
				entry.Description = profile.Description
			}
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}
