package listing

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Sanitize strips markup tags, trims surrounding whitespace and truncates
// the result to at most limit runes.
func Sanitize(s string, limit int) string {
	s = strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:limit]))
}
