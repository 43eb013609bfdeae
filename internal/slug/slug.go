// Package slug derives filesystem-safe product names from free-form
// target and proposal names.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Make converts a product or target name into a lowercase, dash-separated
// slug suitable for output filenames. Accented characters are NFD-decomposed
// and stripped of combining marks, whitespace and underscores become dashes,
// and anything that is not a letter, digit, or dash is dropped.
func Make(name string) string {
	decomposed := norm.NFD.String(name)

	var b strings.Builder
	b.Grow(len(decomposed))
	lastDash := true // suppress a leading dash
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark from decomposition
		case unicode.IsSpace(r) || r == '_' || r == '-':
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastDash = false
		}
	}

	return strings.TrimRight(b.String(), "-")
}
