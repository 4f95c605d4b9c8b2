package enums

import "fmt"

// MatchType classifies how a pasted batch row was resolved against the inventory pool.
type MatchType string

const (
	MatchTypePerfect    MatchType = "perfect"
	MatchTypeHigh       MatchType = "high"
	MatchTypeExact      MatchType = "exact"
	MatchTypeSimilarity MatchType = "similarity"
	MatchTypeAmbiguous  MatchType = "ambiguous"
	MatchTypeNotFound   MatchType = "not_found"
)

var validMatchTypes = []MatchType{
	MatchTypePerfect,
	MatchTypeHigh,
	MatchTypeExact,
	MatchTypeSimilarity,
	MatchTypeAmbiguous,
	MatchTypeNotFound,
}

// String implements fmt.Stringer.
func (m MatchType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MatchType.
func (m MatchType) IsValid() bool {
	for _, candidate := range validMatchTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// Matched reports whether the type carries a pool assignment.
func (m MatchType) Matched() bool {
	switch m {
	case MatchTypePerfect, MatchTypeHigh, MatchTypeExact, MatchTypeSimilarity:
		return true
	}
	return false
}

// ParseMatchType converts raw input into a MatchType.
func ParseMatchType(value string) (MatchType, error) {
	for _, candidate := range validMatchTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid match type %q", value)
}
