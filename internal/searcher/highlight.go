package searcher

import (
	"regexp"
	"strings"
)

// Highlight wraps case-insensitive occurrences of the raw query inside text
// with <mark> tags. Returns "" when no highlight is constructible, in which
// case the consumer falls back to the raw title.
func Highlight(text, query string) string {
	query = strings.TrimSpace(query)
	if text == "" || query == "" {
		return ""
	}
	pattern, err := regexp.Compile("(?i)(" + regexp.QuoteMeta(query) + ")")
	if err != nil {
		return ""
	}
	if !pattern.MatchString(text) {
		return ""
	}
	return pattern.ReplaceAllString(text, "<mark>$1</mark>")
}
