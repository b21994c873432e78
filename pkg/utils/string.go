package utils

import "strings"

// Truncate is a simple string truncate
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// SingleLine collapses whitespace so multi-line text fits a log or table cell.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
