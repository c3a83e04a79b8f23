package dedupe

import (
	"math"

	"github.com/spachava753/contacttidy/contacts"
)

// Similarity returns a 0-100 score for two names based on the Levenshtein
// distance between their normalized forms.
func Similarity(a, b string) int {
	a = contacts.NormalizeName(a)
	b = contacts.NormalizeName(b)
	if a == b {
		return 100
	}

	ra, rb := []rune(a), []rune(b)
	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 0
	}

	distance := levenshteinRunes(ra, rb)
	return int(math.Round(float64(maxLen-distance) / float64(maxLen) * 100))
}

// Levenshtein returns the edit distance between a and b, counted in runes.
func Levenshtein(a, b string) int {
	return levenshteinRunes([]rune(a), []rune(b))
}

func levenshteinRunes(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Two rows of the DP matrix are enough.
	prev := make([]int, len(b)+1)
	row := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			row[j] = min(row[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, row = row, prev
	}

	return prev[len(b)]
}
