package deduplication

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes question text for comparison.
//
// The text is lower-cased and NFD-decomposed, combining diacritical marks
// (U+0300-U+036F) are dropped, every rune that is neither an ASCII word
// character nor whitespace is removed, whitespace runs collapse to a single
// space and the result is trimmed. An all-punctuation input yields "".
//
//	Normalize("Quelle est la Capitale de la France ?") == "quelle est la capitale de la france"
func Normalize(text string) string {
	decomposed := norm.NFD.String(strings.ToLower(text))

	var b strings.Builder
	b.Grow(len(decomposed))
	pendingSpace := false
	for _, r := range decomposed {
		switch {
		case isWordRune(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case isSpace(r):
			pendingSpace = true
		}
		// combining marks and punctuation fall through and are dropped
	}
	return b.String()
}

// isWordRune matches the ASCII word class [A-Za-z0-9_].
func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// isSpace matches the whitespace set used for collapsing: ASCII whitespace,
// no-break spaces, the Unicode space separators, line/paragraph separators
// and the byte order mark.
func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		'\u00a0', '\u1680', '\u2028', '\u2029', '\u202f', '\u205f', '\u3000', '\ufeff':
		return true
	}
	return r >= '\u2000' && r <= '\u200a'
}
