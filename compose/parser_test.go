// Copyright 2026 The Cocoon Authors
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseCommandBasic(t *testing.T) {
	profile, err := ParseCommand("bwrap --ro-bind / / --setenv A 1 -- /bin/sh")
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}

	want := []Mount{{Host: "/", Container: "/", Mode: "ro"}}
	if !reflect.DeepEqual(profile.Mounts, want) {
		t.Errorf("mounts = %v, want %v", profile.Mounts, want)
	}
	if profile.Env["A"] != "1" {
		t.Errorf("env = %v", profile.Env)
	}
	if !reflect.DeepEqual(profile.Run.Argv, []string{"/bin/sh"}) {
		t.Errorf("run = %v", profile.Run.Argv)
	}
}

func TestParseCommandReadWriteBind(t *testing.T) {
	profile, err := ParseCommand("bwrap --bind /data /data -- /bin/sh")
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if len(profile.Mounts) != 1 || profile.Mounts[0].Mode != MountModeRW {
		t.Errorf("mounts = %v", profile.Mounts)
	}
}

func TestParseCommandBindVariants(t *testing.T) {
	profile, err := ParseCommand(
		"bwrap --ro-bind /usr /usr --dev-bind /dev/dri /dev/dri --ro-bind-try /opt /opt -- /bin/sh")
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if len(profile.Mounts) != 3 {
		t.Fatalf("mounts = %v", profile.Mounts)
	}
	modes := []string{profile.Mounts[0].Mode, profile.Mounts[1].Mode, profile.Mounts[2].Mode}
	if !reflect.DeepEqual(modes, []string{"ro", "rw", "ro"}) {
		t.Errorf("modes = %v", modes)
	}
}

func TestParseCommandOtherFlagsLandInArgs(t *testing.T) {
	profile, err := ParseCommand(
		"bwrap --unshare-all --tmpfs /tmp --proc /proc --symlink usr/bin /bin -- /bin/sh")
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}

	want := []string{"--unshare-all", "--tmpfs", "/tmp", "--proc", "/proc", "--symlink", "usr/bin", "/bin"}
	if !reflect.DeepEqual(profile.Args, want) {
		t.Errorf("args = %v, want %v", profile.Args, want)
	}
	if len(profile.Mounts) != 0 {
		t.Errorf("unexpected mounts: %v", profile.Mounts)
	}
}

func TestParseCommandNoLauncherPrefix(t *testing.T) {
	profile, err := ParseCommand("--ro-bind / / -- /bin/sh")
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if len(profile.Mounts) != 1 {
		t.Errorf("mounts = %v", profile.Mounts)
	}
}

func TestParseCommandLauncherPath(t *testing.T) {
	profile, err := ParseCommand("/usr/bin/bwrap --ro-bind / / -- /bin/sh")
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if len(profile.Mounts) != 1 {
		t.Errorf("launcher path not stripped: args=%v mounts=%v", profile.Args, profile.Mounts)
	}
}

func TestParseCommandNoRun(t *testing.T) {
	profile, err := ParseCommand("bwrap --ro-bind / /")
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if profile.Run.Defined() {
		t.Errorf("run should be absent: %+v", profile.Run)
	}
}

func TestParseCommandEmptyRun(t *testing.T) {
	profile, err := ParseCommand("bwrap --ro-bind / / --")
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if profile.Run.Argv == nil || len(profile.Run.Argv) != 0 {
		t.Errorf("run after bare separator = %#v, want empty argv", profile.Run.Argv)
	}
}

func TestParseCommandDegradedFlagAtEnd(t *testing.T) {
	profile, err := ParseCommand("bwrap --ro-bind /only-host")
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if len(profile.Mounts) != 0 {
		t.Errorf("short bind produced a mount: %v", profile.Mounts)
	}
	if !reflect.DeepEqual(profile.Args, []string{"--ro-bind", "/only-host"}) {
		t.Errorf("args = %v", profile.Args)
	}
}

func TestParseCommandQuoting(t *testing.T) {
	profile, err := ParseCommand(`bwrap --setenv MSG 'hello world' -- /bin/sh -c "echo \"hi\""`)
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if profile.Env["MSG"] != "hello world" {
		t.Errorf("env = %v", profile.Env)
	}
	if !reflect.DeepEqual(profile.Run.Argv, []string{"/bin/sh", "-c", `echo "hi"`}) {
		t.Errorf("run = %v", profile.Run.Argv)
	}
}

func TestParseCommandUnterminatedQuote(t *testing.T) {
	if _, err := ParseCommand("bwrap --setenv A 'oops"); err == nil {
		t.Error("expected error for unterminated quote")
	}
	if _, err := ParseCommand(`bwrap --setenv A "oops`); err == nil {
		t.Error("expected error for unterminated double quote")
	}
}

func TestParseCommandRoundTrip(t *testing.T) {
	profile, err := ParseCommand(
		"bwrap --unshare-net --ro-bind /usr /usr --bind /data /data --setenv A 1 --tmpfs /tmp -- /bin/echo hi")
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}

	rebuilt := strings.Join(Build(profile, nil), " ")
	for _, want := range []string{
		"--unshare-net",
		"--ro-bind /usr /usr",
		"--bind /data /data",
		"--setenv A 1",
		"--tmpfs /tmp",
	} {
		if !strings.Contains(rebuilt, want) {
			t.Errorf("rebuilt command missing %q: %s", want, rebuilt)
		}
	}
	if !strings.HasSuffix(rebuilt, "-- /bin/echo hi") {
		t.Errorf("rebuilt command tail wrong: %s", rebuilt)
	}
}

func TestSplitTokens(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a b c", []string{"a", "b", "c"}},
		{"  a\t b ", []string{"a", "b"}},
		{"'a b' c", []string{"a b", "c"}},
		{`"a b" c`, []string{"a b", "c"}},
		{`a\ b`, []string{"a b"}},
		{`''`, []string{""}},
		{"", nil},
	}
	for _, tt := range tests {
		got, err := splitTokens(tt.in)
		if err != nil {
			t.Errorf("splitTokens(%q): %v", tt.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitTokens(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestQuote(t *testing.T) {
	if got := Quote("/usr/bin"); got != "/usr/bin" {
		t.Errorf("Quote(/usr/bin) = %q", got)
	}
	if got := Quote("hello world"); got != "'hello world'" {
		t.Errorf("Quote(hello world) = %q", got)
	}
	if got := Quote(""); got != "''" {
		t.Errorf("Quote empty = %q", got)
	}
	if got := Quote("it's"); got != `'it'"'"'s'` {
		t.Errorf("Quote(it's) = %q", got)
	}
}

func TestCommandString(t *testing.T) {
	got := CommandString([]string{"/bin/sh", "-c", "echo hi"})
	if got != "/bin/sh -c 'echo hi'" {
		t.Errorf("CommandString = %q", got)
	}

	tokens, err := splitTokens(got)
	if err != nil {
		t.Fatalf("splitTokens: %v", err)
	}
	if !reflect.DeepEqual(tokens, []string{"/bin/sh", "-c", "echo hi"}) {
		t.Errorf("round trip = %v", tokens)
	}
}
