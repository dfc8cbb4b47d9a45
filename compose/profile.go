// Copyright 2026 The Cocoon Authors
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile defines a sandbox launch configuration. Fields absent from the
// source file contribute nothing under composition; they are never an error.
type Profile struct {
	// Description is free-form text shown by profile listings.
	Description string `yaml:"description,omitempty"`

	// Extends names the parent profiles this one inherits from. It is
	// consumed during loading; a resolved profile never carries it.
	Extends StringList `yaml:"extends,omitempty"`

	// Mounts are bind mounts from host paths into the sandbox.
	Mounts []Mount `yaml:"mounts,omitempty"`

	// Env maps environment variable names to values.
	Env map[string]string `yaml:"env,omitempty"`

	// Args are raw bwrap flag tokens not otherwise modeled (namespace
	// flags, --chdir, --symlink, and so on). Order matters: bwrap is
	// positionally sensitive.
	Args []string `yaml:"args,omitempty"`

	// Run is the command to execute inside the sandbox.
	Run Command `yaml:"run,omitempty"`

	// Tmpfs, Dev, and Proc are special filesystem mounts, each a path or
	// list of paths.
	Tmpfs StringList `yaml:"tmpfs,omitempty"`
	Dev   StringList `yaml:"dev,omitempty"`
	Proc  StringList `yaml:"proc,omitempty"`
}

// Mount defines a bind mount from a host path into the sandbox.
type Mount struct {
	Host      string `yaml:"host"`
	Container string `yaml:"container"`
	Mode      string `yaml:"mode,omitempty"`
}

// MountMode constants for the Mount.Mode field. An empty mode means
// read-write; "readonly" is accepted as an alias for "ro".
const (
	MountModeRO = "ro"
	MountModeRW = "rw"
)

// readOnly reports whether the mount's mode requests a read-only bind.
func (m Mount) readOnly() bool {
	return normalizeMode(m.Mode) == MountModeRO
}

// Command is the command to run inside the sandbox: either a shell fragment
// or an explicit argv. The zero value means no command was declared.
type Command struct {
	// Shell is a shell fragment, run via "/bin/sh -c".
	Shell string

	// Argv is an explicit argument vector, used verbatim.
	Argv []string
}

// Defined reports whether the profile declared a run command.
func (c Command) Defined() bool {
	return c.Shell != "" || c.Argv != nil
}

// UnmarshalYAML accepts either a scalar (shell fragment) or a sequence
// (argv).
func (c *Command) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&c.Shell)
	case yaml.SequenceNode:
		return node.Decode(&c.Argv)
	default:
		return fmt.Errorf("line %d: run must be a string or a sequence", node.Line)
	}
}

// StringList is a list of strings that also accepts a single scalar in
// profile source, so "tmpfs: /tmp" and "tmpfs: [/tmp, /var]" both decode.
type StringList []string

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = StringList(items)
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a sequence of strings", node.Line)
	}
}

// Clone creates a deep copy of the profile. Pipeline stages never mutate
// their input; each stage works on a fresh value.
func (p *Profile) Clone() *Profile {
	clone := &Profile{
		Description: p.Description,
		Run:         p.Run.clone(),
	}

	if p.Extends != nil {
		clone.Extends = append(StringList{}, p.Extends...)
	}
	if p.Mounts != nil {
		clone.Mounts = append([]Mount{}, p.Mounts...)
	}
	if p.Args != nil {
		clone.Args = append([]string{}, p.Args...)
	}
	if p.Tmpfs != nil {
		clone.Tmpfs = append(StringList{}, p.Tmpfs...)
	}
	if p.Dev != nil {
		clone.Dev = append(StringList{}, p.Dev...)
	}
	if p.Proc != nil {
		clone.Proc = append(StringList{}, p.Proc...)
	}
	if p.Env != nil {
		clone.Env = make(map[string]string, len(p.Env))
		for k, v := range p.Env {
			clone.Env[k] = v
		}
	}

	return clone
}

func (c Command) clone() Command {
	clone := Command{Shell: c.Shell}
	if c.Argv != nil {
		clone.Argv = append([]string{}, c.Argv...)
	}
	return clone
}

// sortedKeys returns the map's keys in lexicographic order. Go maps have no
// iteration order; sorting keeps every output deterministic.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// normalizeMode maps a mount mode string to "ro" or "rw". Both "ro" and
// "readonly" (any case) mean read-only; anything else, including the empty
// default, means read-write.
func normalizeMode(mode string) string {
	switch strings.ToLower(mode) {
	case "ro", "readonly":
		return MountModeRO
	default:
		return MountModeRW
	}
}
