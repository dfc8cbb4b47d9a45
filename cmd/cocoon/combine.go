// Copyright 2026 The Cocoon Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/cocoon-run/cocoon/compose"
	"github.com/cocoon-run/cocoon/lib/cli"
	"github.com/cocoon-run/cocoon/lib/report"
)

// buildFlags are the flags shared by combine and merge-commands: everything
// that controls the compose/detect/build/emit pipeline after profiles have
// been obtained.
type buildFlags struct {
	configDirs     []string
	checkConflicts string
	command        string
	dryRun         bool
	outputScript   string
	run            bool
}

func (f *buildFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringArrayVar(&f.configDirs, "config-dir", nil,
		"additional profile search directory (repeatable)")
	flagSet.StringVar(&f.checkConflicts, "check-conflicts", "warn",
		"conflict handling: off, warn, or error")
	flagSet.StringVar(&f.command, "command", "",
		"command to run inside the sandbox, overriding the profile run entry")
	flagSet.BoolVar(&f.dryRun, "dry-run", true,
		"print the bwrap command instead of executing it")
	flagSet.StringVar(&f.outputScript, "output-script", "",
		"write an executable launcher script to this path")
	flagSet.BoolVar(&f.run, "run", false,
		"execute the bwrap command with stdio passthrough")
}

// searchDirs returns the profile search path: explicit --config-dir
// directories first, then the user config directory, then the system one.
func (f *buildFlags) searchDirs() []string {
	dirs := append([]string{}, f.configDirs...)
	if configDir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(configDir, "cocoon", "profiles"))
	}
	return append(dirs, "/etc/cocoon/profiles")
}

func combineCommand() *cli.Command {
	flags := &buildFlags{}
	return &cli.Command{
		Name:    "combine",
		Summary: "merge profiles and build a bwrap command",
		Description: "Load one or more sandbox profiles, merge them in order, and emit the\n" +
			"resulting bwrap command line. Operands are literal file paths or bare\n" +
			"names resolved against the profile search directories.",
		Usage: "cocoon combine <profile>... [flags]",
		Examples: []cli.Example{
			{Description: "print the command for two merged profiles", Command: "cocoon combine base dev"},
			{Description: "run a command inside the merged sandbox", Command: "cocoon combine dev --run --command 'make test'"},
			{Description: "write a reusable launcher script", Command: "cocoon combine dev --output-script ./enter-dev"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("combine", pflag.ContinueOnError)
			flags.register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("at least one profile is required")
			}

			loader := compose.NewLoader(flags.searchDirs()...)
			if os.Getenv("COCOON_DEBUG") != "" {
				loader.SetLogger(cli.NewCommandLogger().With("command", "combine"))
			}

			profiles := make([]*compose.Profile, 0, len(args))
			for _, name := range args {
				profile, err := loader.LoadByName(name)
				if err != nil {
					return err
				}
				profiles = append(profiles, profile)
			}

			return emit(profiles, flags)
		},
	}
}

func mergeCommandsCommand() *cli.Command {
	flags := &buildFlags{}
	return &cli.Command{
		Name:    "merge-commands",
		Summary: "merge raw bwrap command lines",
		Description: "Parse two or more existing bwrap command strings back into profiles,\n" +
			"merge them, and emit a single combined command.",
		Usage: "cocoon merge-commands <command>... [flags]",
		Examples: []cli.Example{
			{
				Description: "merge two hand-written invocations",
				Command:     `cocoon merge-commands 'bwrap --ro-bind / / -- /bin/sh' 'bwrap --unshare-net -- /bin/sh'`,
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("merge-commands", pflag.ContinueOnError)
			flags.register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) < 2 {
				return fmt.Errorf("at least two bwrap commands are required")
			}

			profiles := make([]*compose.Profile, 0, len(args))
			for _, raw := range args {
				profile, err := compose.ParseCommand(raw)
				if err != nil {
					return err
				}
				profiles = append(profiles, profile)
			}

			return emit(profiles, flags)
		},
	}
}

// emit runs the shared pipeline tail: compose, detect conflicts per the
// configured mode, build the argv, then print, write, or execute it.
func emit(profiles []*compose.Profile, flags *buildFlags) error {
	merged := compose.Compose(profiles)

	switch flags.checkConflicts {
	case "off":
	case "warn":
		report.Conflicts(os.Stderr, compose.Detect(profiles, merged))
	case "error":
		conflicts := compose.Detect(profiles, merged)
		report.Conflicts(os.Stderr, conflicts)
		if len(conflicts) > 0 {
			return &cli.ExitError{Code: 1}
		}
	default:
		return fmt.Errorf("invalid --check-conflicts mode %q (want off, warn, or error)", flags.checkConflicts)
	}

	var runOverride []string
	if flags.command != "" {
		tokens, err := compose.SplitCommand(flags.command)
		if err != nil {
			return fmt.Errorf("parsing --command: %w", err)
		}
		runOverride = tokens
	}

	argv := compose.Build(merged, runOverride)

	if flags.outputScript != "" {
		if err := writeScript(flags.outputScript, argv); err != nil {
			return err
		}
	}

	if flags.run {
		return execute(argv)
	}
	if flags.dryRun {
		fmt.Println(compose.CommandString(argv))
	}
	return nil
}

// writeScript writes argv as an executable exec script. Extra script
// arguments are passed through to the sandboxed command.
func writeScript(path string, argv []string) error {
	script := "#!/usr/bin/env sh\nexec " + compose.CommandString(argv) + " \"$@\"\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return fmt.Errorf("writing script %s: %w", path, err)
	}
	return nil
}

// execute runs the built command with stdio passed through and the child's
// exit code propagated.
func execute(argv []string) error {
	command := exec.Command(argv[0], argv[1:]...)
	command.Stdin = os.Stdin
	command.Stdout = os.Stdout
	command.Stderr = os.Stderr

	err := command.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &cli.ExitError{Code: exitErr.ExitCode()}
	}
	return fmt.Errorf("running %s: %w", argv[0], err)
}
