// Package validation checks user supplied drug names before they reach a lookup.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/giygas/medlookup-api/interfaces"
)

const (
	maxQueryLength = 100
	minQueryLength = 2
	maxQueryWords  = 8
	maxRepetition  = 10
)

var (
	// Latin letters with accents, digits, and the punctuation found in drug
	// names: "co-trimoxazole", "vitamin b12", "acetaminophen / codeine",
	// "insulin (human)".
	queryRegex = regexp.MustCompile(`^[\p{Latin}\p{Mn}0-9\s\-\.\+',/()%]+$`)

	// Checked on the lower-cased input with strings.Contains
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"eval(", "expression(", "url(", "@import",
		// SQL injection
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"--", "/*", "*/", "exec(", "execute(",
		// Command injection
		";", "|", "&", "`", "$(", "${",
		// Path traversal
		"../", "..\\", "%2e%2e", "file://",
		// NoSQL injection
		"{$ne:", "{$gt:", "{$where:", "{$regex:",
	}
)

// ErrInvalidQuery wraps every rejection so handlers can map them to one status
var ErrInvalidQuery = errors.New("invalid drug name")

// Compile-time check to ensure QueryValidatorImpl implements QueryValidator
var _ interfaces.QueryValidator = (*QueryValidatorImpl)(nil)

// QueryValidatorImpl implements interfaces.QueryValidator
type QueryValidatorImpl struct{}

// NewQueryValidator creates a new query validator
func NewQueryValidator() *QueryValidatorImpl {
	return &QueryValidatorImpl{}
}

// ValidateInput checks a raw drug name. Blank input passes: emptiness is a
// lookup concern and is reported by the lookup itself.
func (v *QueryValidatorImpl) ValidateInput(input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil
	}

	if !utf8.ValidString(input) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidQuery)
	}

	length := utf8.RuneCountInString(trimmed)
	if length < minQueryLength {
		return fmt.Errorf("%w: minimum %d characters", ErrInvalidQuery, minQueryLength)
	}
	if length > maxQueryLength {
		return fmt.Errorf("%w: maximum %d characters", ErrInvalidQuery, maxQueryLength)
	}

	if len(strings.Fields(trimmed)) > maxQueryWords {
		return fmt.Errorf("%w: maximum %d words allowed", ErrInvalidQuery, maxQueryWords)
	}

	lower := strings.ToLower(trimmed)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("%w: potentially dangerous content", ErrInvalidQuery)
		}
	}

	if !queryRegex.MatchString(trimmed) {
		return fmt.Errorf("%w: only letters, numbers, spaces and - . + ' , / ( ) %% are allowed", ErrInvalidQuery)
	}

	if hasExcessiveRepetition(trimmed) {
		return fmt.Errorf("%w: excessive character repetition", ErrInvalidQuery)
	}

	return nil
}

// hasExcessiveRepetition reports a rune repeated more than maxRepetition times in a row
func hasExcessiveRepetition(input string) bool {
	var prev rune
	run := 0
	for _, r := range input {
		if r == prev {
			run++
			if run > maxRepetition {
				return true
			}
			continue
		}
		prev = r
		run = 1
	}
	return false
}
