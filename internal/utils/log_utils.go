// Package utils holds small shared helpers
package utils

import (
	"strings"
	"unicode"
)

// maxLogStringLength caps user-provided strings in log lines
const maxLogStringLength = 200

// SanitizeLogString makes a user-controlled string (org IDs, room names)
// safe for logging: control characters become spaces, overly long values are
// truncated, and format specifiers are neutralized.
func SanitizeLogString(input string) string {
	if input == "" {
		return ""
	}

	if len(input) > maxLogStringLength {
		input = input[:maxLogStringLength] + "... (truncated)"
	}

	sanitized := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, input)

	return strings.ReplaceAll(sanitized, "%", "%%")
}
