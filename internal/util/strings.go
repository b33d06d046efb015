// Package util holds string helpers shared by the TUI and the CLI output.
package util

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const ellipsis = "…"

// TruncateString cuts s to at most maxLen runes, ending in "…" when cut.
// It ignores escape codes and cell width; use TruncateANSI for styled text.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 1 {
		return ellipsis
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + ellipsis
}

// TruncateANSI cuts s to at most maxWidth terminal cells, keeping escape
// sequences intact and counting wide characters as two cells.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= 1 {
		return ellipsis
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, ellipsis)
}

// SingleLine collapses every run of whitespace, newlines included, into a
// single space so chat content fits one row.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
