package entities

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName is the canonical form of a drug name used for upstream
// queries, cache keys and fallback table keys: trimmed, NFC, lower-cased.
func NormalizeName(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	// cases.Caser keeps state, so a fresh copy is needed per call.
	lower := cases.Lower(language.Und).String(norm.NFC.String(trimmed))
	return strings.TrimSpace(lower)
}
