package deduplication

// EditDistance returns the Levenshtein distance between a and b: the minimum
// number of single-rune insertions, deletions or substitutions turning a
// into b.
//
// The full (len(b)+1) x (len(a)+1) matrix is filled; there is no early exit.
// Question texts are tens to a few hundred runes, so the quadratic cost is
// bounded per comparison.
func EditDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	matrix := make([][]int, len(rb)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(ra)+1)
		matrix[i][0] = i
	}
	for j := 0; j <= len(ra); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(rb); i++ {
		for j := 1; j <= len(ra); j++ {
			if rb[i-1] == ra[j-1] {
				matrix[i][j] = matrix[i-1][j-1]
				continue
			}
			matrix[i][j] = 1 + min(
				matrix[i-1][j-1], // substitution
				matrix[i][j-1],   // insertion
				matrix[i-1][j],   // deletion
			)
		}
	}

	return matrix[len(rb)][len(ra)]
}
