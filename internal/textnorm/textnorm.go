// Package textnorm provides the text normalization shared by indexing,
// querying and ticket matching.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases s and strips diacritics ("Champú" -> "champu").
func Normalize(s string) string {
	// transform.Chain keeps state, so each call gets its own chain.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return result
}

// Words normalizes s and splits it on every non-alphanumeric rune,
// dropping empty tokens.
func Words(s string) []string {
	return strings.FieldsFunc(Normalize(s), isSeparator)
}

// Key builds the lookup key used for learned associations.
func Key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Prefixes returns every prefix of word with a length between minLen
// and min(maxLen, len(word)), counted in runes.
func Prefixes(word string, minLen, maxLen int) []string {
	r := []rune(word)
	upper := min(maxLen, len(r))
	if upper < minLen {
		return nil
	}
	out := make([]string, 0, upper-minLen+1)
	for n := minLen; n <= upper; n++ {
		out = append(out, string(r[:n]))
	}
	return out
}

// IsDigits reports whether s is made only of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// HasLetter reports whether s contains at least one letter.
func HasLetter(s string) bool {
	for _, c := range s {
		if unicode.IsLetter(c) {
			return true
		}
	}
	return false
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
