// Package stringutil provides small string helpers for log output.
package stringutil

import "strings"

// Ellipsis collapses s onto one line and shortens it to at most maxLength
// runes, replacing the tail with "..." when it had to cut. With maxLength of
// three or less the result is cut without an ellipsis.
func Ellipsis(s string, maxLength int) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")

	if maxLength < 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-3]) + "..."
}
