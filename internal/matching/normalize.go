package matching

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/angelmondragon/tombamento-backend/pkg/enums"
)

// assetTagFloatPattern matches digit tags with an optional leading zero and a
// trailing ".0" left behind by spreadsheet exports.
var assetTagFloatPattern = regexp.MustCompile(`^0?\d+(\.0)?$`)

var donationPrefixes = []string{NormalizeText("doação"), "doacao"}

// NormalizeText lowercases s, strips diacritics and trims surrounding space.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.TrimSpace(folded)
}

// NormalizeAssetTag returns the canonical form of a ledger asset tag.
// "0150" and "150.0" both become "150"; non-numeric tags such as "S/T" are
// only trimmed.
func NormalizeAssetTag(tag string) string {
	trimmed := strings.TrimSpace(tag)
	if !assetTagFloatPattern.MatchString(trimmed) {
		return trimmed
	}
	digits := strings.TrimSuffix(trimmed, ".0")
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return strings.TrimLeft(digits, "0")
	}
	return strconv.FormatUint(n, 10)
}

// IsUntaggedAssetTag reports whether tag is empty or the "S/T" placeholder.
func IsUntaggedAssetTag(tag string) bool {
	switch NormalizeText(tag) {
	case "", "s/t", "st", "s/tomb", "sem tombamento":
		return true
	}
	return false
}

// ConditionOrigin is the structured form of a free-text condition note.
type ConditionOrigin struct {
	State  enums.ConditionState `json:"estado"`
	Origin string               `json:"origem"`
}

// ParseConditionAndOrigin recovers a condition state and donation origin from
// notes such as "Bom (Doação Secretaria X)".
func ParseConditionAndOrigin(text string) ConditionOrigin {
	raw := norm.NFC.String(strings.TrimSpace(text))
	normalized := NormalizeText(raw)
	if normalized == "" {
		return ConditionOrigin{State: enums.DefaultConditionState}
	}

	for _, state := range enums.ConditionStates {
		prefix := NormalizeText(state.String())
		if !strings.HasPrefix(normalized, prefix) {
			continue
		}
		// Lowercasing and mark removal keep rune counts aligned, so the raw
		// remainder starts at the same rune offset as the normalized one.
		rest := string([]rune(raw)[len([]rune(prefix)):])
		return ConditionOrigin{State: state, Origin: parseOrigin(rest)}
	}

	for _, state := range enums.ConditionStates {
		if normalized == NormalizeText(state.String()) {
			return ConditionOrigin{State: state}
		}
	}
	return ConditionOrigin{State: enums.DefaultConditionState}
}

func parseOrigin(rest string) string {
	rest = stripEnclosure(strings.TrimSpace(rest))
	normalized := NormalizeText(rest)
	for _, prefix := range donationPrefixes {
		if strings.HasPrefix(normalized, prefix) {
			return strings.TrimSpace(string([]rune(rest)[len([]rune(prefix)):]))
		}
	}
	return ""
}

// stripEnclosure removes one layer of () or [] around s, or a leading hyphen.
func stripEnclosure(s string) string {
	switch {
	case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"),
		strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		return strings.TrimSpace(s[1 : len(s)-1])
	case strings.HasPrefix(s, "-"):
		return strings.TrimSpace(s[1:])
	}
	return s
}
