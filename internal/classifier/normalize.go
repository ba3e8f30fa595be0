package classifier

import (
	"strings"
	"unicode"
)

// Designated script block kept by Normalize (Arabic, which Urdu is written in).
const (
	scriptFirst = '\u0600'
	scriptLast  = '\u06FF'
)

// Normalize reduces raw text to Urdu script characters separated by single
// spaces. Latin letters and digits are removed first, then everything outside
// the Arabic block except whitespace, and finally whitespace is collapsed and
// trimmed. Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	stripped := strings.Map(func(r rune) rune {
		if isLatinAlnum(r) {
			return -1
		}
		if InScript(r) || isSpace(r) {
			return r
		}
		return -1
	}, text)

	return strings.Join(strings.FieldsFunc(stripped, isSpace), " ")
}

// InScript reports whether r belongs to the designated script block.
func InScript(r rune) bool {
	return r >= scriptFirst && r <= scriptLast
}

// isSpace also treats the ASCII file, group, record and unit separators
// (U+001C..U+001F) as whitespace.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= '\u001C' && r <= '\u001F')
}

func isLatinAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
