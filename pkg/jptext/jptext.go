package jptext

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// Normalize folds full-width characters to their half-width form. Form input
// frequently arrives with full-width digits (e.g. "１６０．５"); numeric
// parsing runs on the narrowed result.
func Normalize(s string) string {
	return width.Narrow.String(s)
}

// SplitTerms splits free-text search input into terms on any whitespace,
// including the ideographic space U+3000 used between Japanese names.
func SplitTerms(s string) []string {
	return strings.Fields(Normalize(s))
}

// IsKana reports whether s consists only of hiragana, the prolonged sound
// mark, and spaces. Used for phonetic-reading validation.
func IsKana(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hiragana, r) || r == 'ー' || r == ' ' || r == '　' {
			continue
		}
		return false
	}
	return true
}

// IsAlphanumeric reports whether s consists only of ASCII letters and digits.
func IsAlphanumeric(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			continue
		}
		return false
	}
	return true
}
