// Package tokenizer provides text tokenisation for the search engine. It
// lower-cases input and splits on non-letter/non-digit boundaries, which
// handles Latin and non-Latin scripts uniformly. No stemming or stop-word
// removal is applied: matching is token and substring based, and an English
// suffix stemmer would special-case Latin text.
package tokenizer

import (
	"strings"
	"unicode"
)

// Tokenize breaks text into lowercased tokens.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Unique returns tokens with duplicates removed, preserving first-seen order.
func Unique(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
