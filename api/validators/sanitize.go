package validators

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeString trims input and caps it at maxLen runes.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && utf8.RuneCountInString(trimmed) > maxLen {
		return strings.TrimSpace(string([]rune(trimmed)[:maxLen]))
	}
	return trimmed
}

// SanitizeText strips every HTML tag from user text such as a printed jersey
// name, then trims and caps it. Entities are decoded so "O'Neil" stays readable.
func SanitizeText(input string, maxLen int) string {
	stripped := html.UnescapeString(strictPolicy.Sanitize(input))
	return SanitizeString(stripped, maxLen)
}
