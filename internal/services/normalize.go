package services

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// lower builds a Caser per call; Casers are stateful and not safe to share
// between goroutines.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// NormalizeName returns the identity key of a participant: trimmed, lower
// case, first letter of each space separated word upper case, words joined
// by single spaces.
func NormalizeName(raw string) string {
	words := strings.Fields(lower(raw))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		// Single-rune mapping keeps the result stable under renormalization.
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// sameName is the loose match used when removing users: trimmed and case
// insensitive, without rewriting inner whitespace.
func sameName(a, b string) bool {
	return lower(strings.TrimSpace(a)) == lower(strings.TrimSpace(b))
}
