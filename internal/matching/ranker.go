package matching

import (
	"sort"
	"strings"
)

const (
	supplierMatchThreshold = 0.7
	supplierBonus          = 0.15

	patternSystemThreshold = 0.7
	patternLedgerThreshold = 0.6
	patternWeight          = 0.2
)

// placeholderSuppliers are supplier values that carry no information.
var placeholderSuppliers = map[string]struct{}{
	"":               {},
	"-":              {},
	"--":             {},
	"n/a":            {},
	"na":             {},
	"s/f":            {},
	"sem fornecedor": {},
	"nao informado":  {},
	"desconhecido":   {},
}

// Item is the inventory-side view the engine matches on.
type Item struct {
	ID          string
	Description string
	Supplier    string
	Location    string
	Condition   string
}

// SystemDescriptor is the text compared against ledger descriptors.
func (i Item) SystemDescriptor() string {
	return joinDescriptor(i.Description, i.Supplier)
}

// LedgerCandidate is the ledger-side view the engine ranks.
type LedgerCandidate struct {
	AssetTag     string
	Description  string
	Species      string
	SupplierName string
}

// Descriptor is the text compared against inventory descriptors.
func (c LedgerCandidate) Descriptor() string {
	return joinDescriptor(c.Description, c.Species, c.SupplierName)
}

// Candidate is one scored ledger entry of a ranking.
type Candidate struct {
	Record     LedgerCandidate
	BaseScore  float64
	BonusScore float64
	Score      float64
}

// Ranking is the result of RankCandidates.
type Ranking struct {
	Candidates []Candidate
	TopScore   float64
}

// RankOption adjusts a RankCandidates call.
type RankOption func(*rankOptions)

type rankOptions struct {
	limit int
}

// WithLimit truncates the ranking to the best n candidates.
func WithLimit(n int) RankOption {
	return func(o *rankOptions) {
		o.limit = n
	}
}

// RankCandidates scores every pool entry against item and returns them best
// first. memory may be nil; when present, confirmed patterns whose system side
// resembles item lift candidates that resemble the pattern's ledger side.
func RankCandidates(item Item, pool []LedgerCandidate, memory PatternReader, opts ...RankOption) Ranking {
	var options rankOptions
	for _, opt := range opts {
		opt(&options)
	}

	systemDescriptor := item.SystemDescriptor()
	systemSupplier := informativeSupplier(item.Supplier)

	candidates := make([]Candidate, len(pool))
	descriptors := make([]string, len(pool))
	for i, record := range pool {
		descriptors[i] = record.Descriptor()
		base := Similarity(systemDescriptor, descriptors[i])
		if systemSupplier != "" {
			if ledgerSupplier := informativeSupplier(record.SupplierName); ledgerSupplier != "" &&
				Similarity(systemSupplier, ledgerSupplier) > supplierMatchThreshold {
				base += supplierBonus
			}
		}
		candidates[i] = Candidate{Record: record, BaseScore: min(base, 1)}
	}

	if memory != nil {
		for _, pattern := range memory.Snapshot() {
			simSystem := Similarity(systemDescriptor, pattern.SystemDescriptor)
			if simSystem <= patternSystemThreshold {
				continue
			}
			for i := range candidates {
				simLedger := Similarity(descriptors[i], pattern.LedgerDescriptor)
				if simLedger <= patternLedgerThreshold {
					continue
				}
				candidates[i].BonusScore += simSystem * simLedger * patternWeight
			}
		}
	}

	for i := range candidates {
		candidates[i].Score = min(1, candidates[i].BaseScore+candidates[i].BonusScore)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Record.AssetTag < candidates[j].Record.AssetTag
	})

	ranking := Ranking{Candidates: candidates}
	if len(candidates) > 0 {
		ranking.TopScore = candidates[0].Score
	}
	if options.limit > 0 && len(ranking.Candidates) > options.limit {
		ranking.Candidates = ranking.Candidates[:options.limit]
	}
	return ranking
}

func informativeSupplier(s string) string {
	normalized := NormalizeText(s)
	if _, ok := placeholderSuppliers[normalized]; ok {
		return ""
	}
	return s
}

func joinDescriptor(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, " ")
}
