package schema

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeTabName trims whitespace, folds control characters to spaces and
// caps the name at max runes. An empty result clears the custom name.
func NormalizeTabName(name string, max int) (TabName, error) {
	if !utf8.ValidString(name) {
		return "", ErrInvalidName
	}
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, name)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if max > 0 && utf8.RuneCountInString(cleaned) > max {
		runes := []rune(cleaned)
		cleaned = strings.TrimSpace(string(runes[:max]))
	}
	return TabName(cleaned), nil
}
