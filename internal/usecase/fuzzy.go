package usecase

import (
	"strings"
	"unicode"
)

// fuzzySimilarity scores how well needle occurs anywhere inside haystack, in [0, 1].
// It is 1 - d/len(needle), where d is the smallest edit distance (insertions, deletions,
// substitutions and adjacent transpositions) between needle and any substring of haystack.
func fuzzySimilarity(needle, haystack string) float64 {
	n := []rune(normalizeForFuzzy(needle))
	h := []rune(normalizeForFuzzy(haystack))

	if len(n) == 0 {
		return 0
	}
	if len(h) == 0 {
		return 0
	}

	d := substringEditDistance(n, h)
	score := 1 - float64(d)/float64(len(n))
	if score < 0 {
		return 0
	}
	return score
}

// normalizeForFuzzy lower-cases, drops symbols and collapses whitespace
func normalizeForFuzzy(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// substringEditDistance is Sellers' variant of the Levenshtein recurrence: the first row is
// all zeros so a match may start anywhere in h, and the answer is the minimum of the last row.
// Three rows are kept for the transposition step.
func substringEditDistance(n, h []rune) int {
	cols := len(h) + 1

	prevPrev := make([]int, cols)
	prev := make([]int, cols)
	curr := make([]int, cols)

	for i := 1; i <= len(n); i++ {
		curr[0] = i
		for j := 1; j <= len(h); j++ {
			cost := 0
			if n[i-1] != h[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
			if i > 1 && j > 1 && n[i-1] == h[j-2] && n[i-2] == h[j-1] {
				curr[j] = min(curr[j], prevPrev[j-2]+1)
			}
		}
		prevPrev, prev, curr = prev, curr, prevPrev
	}

	best := prev[0]
	for _, v := range prev[1:] {
		if v < best {
			best = v
		}
	}
	return best
}
