package manifest

import (
	"strings"
	"unicode"
)

// SafeFileName reduces a section name to characters safe for a download
// filename: letters, digits, space, underscore and hyphen, with trailing
// spaces trimmed.
func SafeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	out := strings.TrimRight(b.String(), " ")
	if out == "" {
		out = "section"
	}
	return out
}
