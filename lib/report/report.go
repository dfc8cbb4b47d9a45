// Copyright 2026 The Cocoon Authors
// SPDX-License-Identifier: Apache-2.0

// Package report renders conflict and validation results for terminal
// output. Styling degrades to plain text automatically when stdout is not
// a terminal.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/cocoon-run/cocoon/compose"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	kindStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// severityTag renders a conflict severity as a colored bracket tag.
func severityTag(severity compose.Severity) string {
	switch severity {
	case compose.SeverityError:
		return errorStyle.Render("[error]")
	default:
		return warningStyle.Render("[warning]")
	}
}

// Conflicts writes one line per conflict. It returns the number of
// error-severity conflicts so the caller can decide the exit path.
func Conflicts(w io.Writer, conflicts []compose.Conflict) int {
	errorCount := 0
	for _, conflict := range conflicts {
		if conflict.Severity == compose.SeverityError {
			errorCount++
		}
		fmt.Fprintf(w, "%s %s: %s\n",
			severityTag(conflict.Severity),
			kindStyle.Render(conflict.Kind),
			conflict.Description)
	}
	return errorCount
}

// Violations writes schema violations for a single profile file, prefixed
// with the file path. A file with no violations prints a single ok line.
func Violations(w io.Writer, path string, violations []string) {
	if len(violations) == 0 {
		fmt.Fprintf(w, "%s: %s\n", pathStyle.Render(path), faintStyle.Render("ok"))
		return
	}
	fmt.Fprintf(w, "%s:\n", pathStyle.Render(path))
	for _, violation := range violations {
		fmt.Fprintf(w, "  %s %s\n", errorStyle.Render("✗"), violation)
	}
}

// ProfileEntry is one row in a profile listing.
type ProfileEntry struct {
	Name        string
	Path        string
	Description string
}

// Profiles writes an aligned table of available profiles.
func Profiles(w io.Writer, entries []ProfileEntry) {
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	for _, entry := range entries {
		description := entry.Description
		if description == "" {
			description = faintStyle.Render(entry.Path)
		}
		fmt.Fprintf(tw, "%s\t%s\n", pathStyle.Render(entry.Name), description)
	}
	tw.Flush()
}
