// Copyright 2026 The Cocoon Authors
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"os"
	"reflect"
	"strings"
	"testing"
)

func TestBuildBasic(t *testing.T) {
	profile := &Profile{
		Mounts: []Mount{{Host: "/a", Container: "/a", Mode: "ro"}},
		Env:    map[string]string{"A": "1"},
		Args:   []string{"--custom"},
	}

	cmd := Build(profile, []string{"/bin/echo", "hello"})
	if cmd[0] != "bwrap" {
		t.Errorf("cmd[0] = %q, want bwrap", cmd[0])
	}

	cmdStr := strings.Join(cmd, " ")
	if !strings.Contains(cmdStr, "--ro-bind /a /a") {
		t.Errorf("missing ro-bind: %s", cmdStr)
	}
	if !strings.Contains(cmdStr, "--setenv A 1") {
		t.Errorf("missing setenv: %s", cmdStr)
	}
	if !strings.Contains(cmdStr, "--custom") {
		t.Errorf("missing raw arg: %s", cmdStr)
	}
	if !reflect.DeepEqual(cmd[len(cmd)-3:], []string{"--", "/bin/echo", "hello"}) {
		t.Errorf("command tail = %v", cmd[len(cmd)-3:])
	}
}

func TestBuildDefaultRun(t *testing.T) {
	cmd := Build(&Profile{}, nil)
	if idx(t, cmd, "--") != len(cmd)-4 {
		t.Fatalf("separator misplaced: %v", cmd)
	}
	if !reflect.DeepEqual(cmd[len(cmd)-3:], defaultRun) {
		t.Errorf("default run = %v, want %v", cmd[len(cmd)-3:], defaultRun)
	}
}

func TestBuildRunOverride(t *testing.T) {
	profile := &Profile{Run: Command{Argv: []string{"/original/cmd"}}}

	cmd := Build(profile, []string{"/custom/cmd", "--flag"})
	if !reflect.DeepEqual(cmd[len(cmd)-3:], []string{"--", "/custom/cmd", "--flag"}) {
		t.Errorf("override not applied: %v", cmd)
	}
	if count(cmd, "/original/cmd") != 0 {
		t.Errorf("profile run leaked into command: %v", cmd)
	}
}

func TestBuildProfileRunArgv(t *testing.T) {
	profile := &Profile{Run: Command{Argv: []string{"/bin/echo", "hello"}}}

	cmd := Build(profile, nil)
	if !reflect.DeepEqual(cmd[len(cmd)-2:], []string{"/bin/echo", "hello"}) {
		t.Errorf("run tail = %v", cmd[len(cmd)-2:])
	}
}

func TestBuildProfileRunShellWrapped(t *testing.T) {
	profile := &Profile{Run: Command{Shell: "echo hello"}}

	cmd := Build(profile, nil)
	if !reflect.DeepEqual(cmd[len(cmd)-3:], []string{"/bin/sh", "-c", "echo hello"}) {
		t.Errorf("shell run not wrapped: %v", cmd[len(cmd)-3:])
	}
}

func TestBuildSpecialMounts(t *testing.T) {
	profile := &Profile{
		Mounts: []Mount{{Host: "/", Container: "/", Mode: "ro"}},
		Tmpfs:  StringList{"/tmp"},
		Dev:    StringList{"/dev"},
		Proc:   StringList{"/proc"},
		Run:    Command{Argv: []string{"/bin/echo"}},
	}

	cmd := Build(profile, nil)
	cmdStr := strings.Join(cmd, " ")
	for _, want := range []string{"--tmpfs /tmp", "--dev /dev", "--proc /proc"} {
		if !strings.Contains(cmdStr, want) {
			t.Errorf("missing %q: %s", want, cmdStr)
		}
	}
}

func TestBuildSkipsIncompleteMounts(t *testing.T) {
	profile := &Profile{
		Mounts: []Mount{
			{Host: "/a", Container: "", Mode: "ro"},
			{Host: "", Container: "/b"},
			{Host: "/c", Container: "/c"},
		},
	}

	cmd := Build(profile, nil)
	cmdStr := strings.Join(cmd, " ")
	if strings.Contains(cmdStr, "/a") || strings.Contains(cmdStr, "/b") {
		t.Errorf("incomplete mount emitted: %s", cmdStr)
	}
	if !strings.Contains(cmdStr, "--bind /c /c") {
		t.Errorf("missing complete mount: %s", cmdStr)
	}
}

func TestBuildReadonlyAlias(t *testing.T) {
	profile := &Profile{Mounts: []Mount{{Host: "/a", Container: "/a", Mode: "readonly"}}}

	cmd := Build(profile, nil)
	if !strings.Contains(strings.Join(cmd, " "), "--ro-bind /a /a") {
		t.Errorf("readonly alias not honored: %v", cmd)
	}
}

func TestBuildEmissionOrder(t *testing.T) {
	profile := &Profile{
		Mounts: []Mount{{Host: "/usr", Container: "/usr", Mode: "ro"}},
		Env:    map[string]string{"A": "1"},
		Args:   []string{"--unshare-net", "--dir", "/work", "--chdir", "/work", "--symlink", "/a", "/b"},
		Tmpfs:  StringList{"/tmp"},
	}

	cmd := Build(profile, nil)

	ns := idx(t, cmd, "--unshare-net")
	tmpfs := idx(t, cmd, "--tmpfs")
	dir := idx(t, cmd, "--dir")
	bind := idx(t, cmd, "--ro-bind")
	setenv := idx(t, cmd, "--setenv")
	symlink := idx(t, cmd, "--symlink")
	chdir := idx(t, cmd, "--chdir")
	sep := idx(t, cmd, "--")

	for name, pair := range map[string][2]int{
		"namespace before tmpfs":  {ns, tmpfs},
		"tmpfs before dir":        {tmpfs, dir},
		"dir before bind":         {dir, bind},
		"bind before setenv":      {bind, setenv},
		"setenv before other":     {setenv, symlink},
		"other before late":       {symlink, chdir},
		"late before separator":   {chdir, sep},
	} {
		if pair[0] >= pair[1] {
			t.Errorf("%s violated: %v", name, cmd)
		}
	}
}

func TestBuildEnvKeysSorted(t *testing.T) {
	profile := &Profile{Env: map[string]string{"B": "2", "A": "1", "C": "3"}}

	cmd := Build(profile, nil)
	if idx(t, cmd, "A") > idx(t, cmd, "B") || idx(t, cmd, "B") > idx(t, cmd, "C") {
		t.Errorf("env keys not sorted: %v", cmd)
	}
}

func TestExpandPathTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	if got := expandPath("~/Documents"); got != home+"/Documents" {
		t.Errorf("expandPath(~/Documents) = %q", got)
	}
	if got := expandPath("~"); got != home {
		t.Errorf("expandPath(~) = %q", got)
	}
}

func TestExpandPathEnvVar(t *testing.T) {
	t.Setenv("MY_VAR", "/custom/path")
	if got := expandPath("$MY_VAR/sub"); got != "/custom/path/sub" {
		t.Errorf("expandPath($MY_VAR/sub) = %q", got)
	}
	if got := expandPath("${MY_VAR}/sub"); got != "/custom/path/sub" {
		t.Errorf("expandPath(${MY_VAR}/sub) = %q", got)
	}
}

func TestExpandPathUnsetVarLeftIntact(t *testing.T) {
	if got := expandPath("$COCOON_NO_SUCH_VAR/x"); got != "$COCOON_NO_SUCH_VAR/x" {
		t.Errorf("unset variable replaced: %q", got)
	}
}

func TestExpandPathSingleQuotedLiteral(t *testing.T) {
	if got := expandPath("'$HOME/.config'"); got != "$HOME/.config" {
		t.Errorf("quoted path expanded: %q", got)
	}
	if got := expandPath("'~/Documents'"); got != "~/Documents" {
		t.Errorf("quoted tilde expanded: %q", got)
	}
}

func TestExpandPathPlain(t *testing.T) {
	if got := expandPath("/usr/bin"); got != "/usr/bin" {
		t.Errorf("plain path changed: %q", got)
	}
	if got := expandPath(""); got != "" {
		t.Errorf("empty path changed: %q", got)
	}
	// A lone quote is not a quoted pair.
	if got := expandPath("'"); got != "'" {
		t.Errorf("lone quote mangled: %q", got)
	}
}

func TestBuildQuotedMountNotExpanded(t *testing.T) {
	t.Setenv("HOME", "/home/test")
	profile := &Profile{
		Mounts: []Mount{{Host: "'$HOME/data'", Container: "/data", Mode: "rw"}},
		Run:    Command{Argv: []string{"/bin/echo"}},
	}

	cmd := Build(profile, nil)
	bind := idx(t, cmd, "--bind")
	if cmd[bind+1] != "$HOME/data" {
		t.Errorf("quoted mount host = %q, want literal $HOME/data", cmd[bind+1])
	}
}
