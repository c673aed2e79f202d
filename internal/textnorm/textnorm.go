// Package textnorm implements the normalization applied to all extracted text:
// lower-cased, punctuation stripped, whitespace collapsed.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Text normalizes s. Punctuation and symbol runes are removed outright (so
// "don't" becomes "dont"), control runes count as whitespace, and whitespace
// runs collapse to a single space with no leading or trailing space.
// Text is idempotent.
func Text(s string) string {
	s = cases.Lower(language.Und).String(s)

	var sb strings.Builder
	sb.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r) || unicode.IsControl(r):
			pendingSpace = sb.Len() > 0
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
		default:
			if pendingSpace {
				sb.WriteByte(' ')
				pendingSpace = false
			}
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// CollapseSpace collapses whitespace runs to single spaces without any other
// transformation.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
