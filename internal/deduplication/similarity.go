package deduplication

import "unicode/utf8"

// Similarity scores two normalized texts in [0, 1]: 1 for identical strings,
// 0 when every rune of the longer string has to change.
//
// The score is (len(longer) - EditDistance(longer, shorter)) / len(longer).
// Stored similarity percentages were computed with exactly this formula, so
// thresholds only stay comparable if it is kept as is. Two empty strings are
// identical by definition.
func Similarity(a, b string) float64 {
	longer, shorter := b, a
	if utf8.RuneCountInString(a) > utf8.RuneCountInString(b) {
		longer, shorter = a, b
	}

	longerLen := utf8.RuneCountInString(longer)
	if longerLen == 0 {
		return 1.0
	}

	distance := EditDistance(longer, shorter)
	return float64(longerLen-distance) / float64(longerLen)
}
