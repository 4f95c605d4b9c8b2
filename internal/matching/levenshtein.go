package matching

// maxLengthGap bounds the length difference above which Levenshtein skips the
// DP and reports the longer length as the distance.
const maxLengthGap = 20

// Levenshtein computes the rune-level edit distance between a and b with unit
// insert, delete and substitute costs.
//
// Time complexity: O(len(a) * len(b)) unless the length gap exceeds
// maxLengthGap, in which case it returns max(len(a), len(b)) immediately.
func Levenshtein(a, b string) int {
	return levenshteinRunes([]rune(a), []rune(b))
}

func levenshteinRunes(a, b []rune) int {
	la, lb := len(a), len(b)
	if la-lb > maxLengthGap || lb-la > maxLengthGap {
		return max(la, lb)
	}
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	// Keep a as the shorter string so the rows stay small.
	if la > lb {
		a, b = b, a
		la, lb = lb, la
	}

	prev := make([]int, la+1)
	curr := make([]int, la+1)
	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= lb; j++ {
		curr[0] = j
		for i := 1; i <= la; i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[i] = min(
				prev[i]+1,      // deletion
				curr[i-1]+1,    // insertion
				prev[i-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[la]
}
