package matching

import (
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/tombamento-backend/pkg/errors"
)

const (
	containmentScore = 0.92

	jaccardWeight       = 0.6
	minTokenLength      = 3
	substringWeight     = 0.3
	maxSubstringSize    = 8
	minSubstringSize    = 4
	levenshteinWeight   = 0.2
	levenshteinMaxChars = 50
)

// Similarity scores how alike two free-text descriptions are, in [0,1].
//
// Equal normalized strings score 1.0 and containment in either direction
// scores 0.92. Anything else is a capped sum of word-set Jaccard overlap
// (0.6), a shared-substring bonus (up to 0.3) and, for strings shorter than
// 50 characters, an edit-distance bonus (up to 0.2).
//
// An empty operand scores 0, even against another empty string, so a blank
// description is never a perfect or containment match for anything.
func Similarity(a, b string) float64 {
	na, nb := NormalizeText(a), NormalizeText(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return containmentScore
	}

	ra, rb := []rune(na), []rune(nb)
	maxLen := float64(max(len(ra), len(rb)))

	score := jaccard(tokenSet(na), tokenSet(nb)) * jaccardWeight

	if size := sharedSubstringSize(ra, nb); size > 0 {
		score += float64(size) / maxLen * substringWeight
	}

	if len(ra) < levenshteinMaxChars && len(rb) < levenshteinMaxChars {
		distance := levenshteinRunes(ra, rb)
		score += (1 - float64(distance)/maxLen) * levenshteinWeight
	}

	return min(score, 1)
}

// SimilarityOf is Similarity for untyped operands such as decoded JSON values.
// Strings, fmt.Stringer values, booleans and numbers are coerced; anything
// else is rejected with a validation error.
func SimilarityOf(a, b any) (float64, error) {
	sa, err := coerceString(a)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "first operand is not text").
			WithDetails(map[string]any{"operand": "a", "type": fmt.Sprintf("%T", a)})
	}
	sb, err := coerceString(b)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "second operand is not text").
			WithDetails(map[string]any{"operand": "b", "type": fmt.Sprintf("%T", b)})
	}
	return Similarity(sa, sb), nil
}

func coerceString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case fmt.Stringer:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int32:
		return strconv.FormatInt(int64(t), 10), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint:
		return strconv.FormatUint(uint64(t), 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case nil:
		return "", fmt.Errorf("nil operand")
	}
	return "", fmt.Errorf("unsupported operand type %T", v)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Fields(s) {
		if len([]rune(token)) >= minTokenLength {
			set[token] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// sharedSubstringSize returns the largest size in [4,8] for which some
// substring of a also occurs in b, or 0.
func sharedSubstringSize(a []rune, b string) int {
	for size := maxSubstringSize; size >= minSubstringSize; size-- {
		for i := 0; i+size <= len(a); i++ {
			if strings.Contains(b, string(a[i:i+size])) {
				return size
			}
		}
	}
	return 0
}
