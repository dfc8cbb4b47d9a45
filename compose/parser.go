// Copyright 2026 The Cocoon Authors
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ParseCommand parses a raw bwrap command line back into a profile. It is
// the inverse of [Build], used to ingest an existing hand-written
// invocation for re-composition.
//
// The command is tokenized shell-style; a leading launcher token (any path
// whose base name is "bwrap") is discarded. Bind flags become mount
// entries, --setenv becomes env, every other recognized flag lands in args
// together with the values its arity declares, and unknown tokens are kept
// as standalone args. A "--" token ends the scan; everything after it
// becomes the run command. A flag at the end of the stream with too few
// remaining values degrades to a standalone token, the same leniency the
// composer applies when grouping.
func ParseCommand(raw string) (*Profile, error) {
	tokens, err := splitTokens(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing command: %w", err)
	}

	if len(tokens) > 0 && filepath.Base(tokens[0]) == LauncherName {
		tokens = tokens[1:]
	}

	profile := &Profile{Env: make(map[string]string)}

	for i := 0; i < len(tokens); {
		tok := tokens[i]

		if tok == "--" {
			profile.Run = Command{Argv: append([]string{}, tokens[i+1:]...)}
			break
		}

		if bindFlags[tok] && i+2 < len(tokens) {
			mode := MountModeRW
			if roBindFlags[tok] {
				mode = MountModeRO
			}
			profile.Mounts = append(profile.Mounts, Mount{
				Host:      tokens[i+1],
				Container: tokens[i+2],
				Mode:      mode,
			})
			i += 3
			continue
		}

		if tok == "--setenv" && i+2 < len(tokens) {
			profile.Env[tokens[i+1]] = tokens[i+2]
			i += 3
			continue
		}

		if twoArgFlags[tok] && i+2 < len(tokens) {
			profile.Args = append(profile.Args, tok, tokens[i+1], tokens[i+2])
			i += 3
			continue
		}

		if oneArgFlags[tok] && i+1 < len(tokens) {
			profile.Args = append(profile.Args, tok, tokens[i+1])
			i += 2
			continue
		}

		// Zero-arity, unknown, or degraded flag.
		profile.Args = append(profile.Args, tok)
		i++
	}

	return profile, nil
}

// SplitCommand tokenizes a raw command string shell-style, honoring quotes
// and backslash escapes. It is the tokenizer [ParseCommand] uses, exposed
// for callers that need an argv without flag interpretation.
func SplitCommand(raw string) ([]string, error) {
	return splitTokens(raw)
}

// splitTokens splits a command line into tokens, honoring single quotes
// (literal), double quotes (backslash escapes \" and \\), and backslash
// escapes outside quotes.
func splitTokens(s string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	inToken := false

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case ' ', '\t', '\n':
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}

		case '\'':
			inToken = true
			end := strings.IndexByte(s[i+1:], '\'')
			if end < 0 {
				return nil, fmt.Errorf("unterminated single quote")
			}
			current.WriteString(s[i+1 : i+1+end])
			i += end + 1

		case '"':
			inToken = true
			i++
			for ; i < len(s) && s[i] != '"'; i++ {
				if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\') {
					i++
				}
				current.WriteByte(s[i])
			}
			if i >= len(s) {
				return nil, fmt.Errorf("unterminated double quote")
			}

		case '\\':
			inToken = true
			if i+1 < len(s) {
				i++
				current.WriteByte(s[i])
			}

		default:
			inToken = true
			current.WriteByte(c)
		}
	}

	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}

// safeToken matches tokens that need no quoting in a shell command line.
var safeToken = regexp.MustCompile(`^[\w@%+=:,./-]+$`)

// Quote returns token in a form safe to paste into a POSIX shell.
func Quote(token string) string {
	if token != "" && safeToken.MatchString(token) {
		return token
	}
	return "'" + strings.ReplaceAll(token, "'", `'"'"'`) + "'"
}

// CommandString renders an argv as a single shell-quoted command line, the
// inverse of [splitTokens] for display and script emission.
func CommandString(argv []string) string {
	quoted := make([]string, len(argv))
	for i, token := range argv {
		quoted[i] = Quote(token)
	}
	return strings.Join(quoted, " ")
}
