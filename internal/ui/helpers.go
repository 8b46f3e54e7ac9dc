package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// padR pads s to visible width n (ANSI-safe using lipgloss.Width).
func padR(s string, n int) string {
	w := lipgloss.Width(s)
	if w >= n {
		return s
	}
	return s + strings.Repeat(" ", n-w)
}

// trimErr keeps the informative tail of an RPC or price-feed error and caps
// it at 30 bytes.
func trimErr(s string) string {
	for _, marker := range []string{
		"Post \"", "dial tcp", "connection refused",
		"context deadline", "stale price", "reverted",
	} {
		if idx := strings.Index(s, marker); idx >= 0 {
			s = s[idx:]
			break
		}
	}
	if len(s) > 30 {
		return s[:30] + "…"
	}
	return s
}
