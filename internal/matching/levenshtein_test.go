package matching

import (
	"strings"
	"testing"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a        string
		b        string
		expected int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"a", "b", 1},
		{"ab", "abc", 1},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"cadeira", "cadeira", 0},
		{"ação", "acao", 2}, // runes, not bytes
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			if got := Levenshtein(tt.a, tt.b); got != tt.expected {
				t.Errorf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.expected)
			}
			if got := Levenshtein(tt.b, tt.a); got != tt.expected {
				t.Errorf("Levenshtein symmetry failed for (%q, %q): %d", tt.b, tt.a, got)
			}
		})
	}
}

func TestLevenshteinLengthGapShortCircuit(t *testing.T) {
	long := strings.Repeat("a", 30)
	if got := Levenshtein(long, "aaaaa"); got != 30 {
		t.Fatalf("expected short-circuit distance 30, got %d", got)
	}
	// a gap of exactly 20 still runs the DP
	if got := Levenshtein(strings.Repeat("a", 25), "aaaaa"); got != 20 {
		t.Fatalf("expected DP distance 20, got %d", got)
	}
}
