package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText trims s and converts it to NFC so that Hangul labels typed on
// different platforms compare equal.
func NormalizeText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// SplitTokens splits a comma-separated token list, trimming each entry and
// dropping empties. Order and duplicates are preserved.
func SplitTokens(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = NormalizeText(p); p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}
