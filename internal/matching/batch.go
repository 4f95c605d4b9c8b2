package matching

import (
	"fmt"
	"math"
	"sort"

	"github.com/angelmondragon/tombamento-backend/pkg/enums"
)

const (
	batchSimilarityThreshold = 0.65
	ambiguityGap             = 0.1
)

// PastedRow is one spreadsheet row pasted for bulk matching.
type PastedRow struct {
	Description string
	AssetTag    string
	Location    string
	Condition   string
}

// BatchResult is the outcome for one pasted row. PoolIndex is -1 when the row
// matched nothing.
type BatchResult struct {
	RowIndex  int
	PoolIndex int
	MatchType enums.MatchType
	Status    string
	Score     float64
}

// Matched reports whether the row was assigned a pool entry.
func (r BatchResult) Matched() bool {
	return r.PoolIndex >= 0
}

type normalizedItem struct {
	description string
	location    string
	condition   string
}

// MatchBatch assigns pasted rows to pool items greedily in row order. Each
// pool item is used at most once per call; the pool slice is not modified.
//
// Tiers, first hit wins: description+location+condition (Perfect),
// description+location (High), description (Exact), then a similarity
// fallback above 0.65 that refuses to pick when the best two scores are
// closer than 0.1 (Ambiguous).
func MatchBatch(rows []PastedRow, pool []Item) []BatchResult {
	consumed := make([]bool, len(pool))
	items := make([]normalizedItem, len(pool))
	for i, item := range pool {
		items[i] = normalizedItem{
			description: NormalizeText(item.Description),
			location:    NormalizeText(item.Location),
			condition:   NormalizeText(item.Condition),
		}
	}

	results := make([]BatchResult, len(rows))
	for r, row := range rows {
		result := matchRow(row, pool, items, consumed)
		result.RowIndex = r
		if result.Matched() {
			consumed[result.PoolIndex] = true
		}
		results[r] = result
	}
	return results
}

func matchRow(row PastedRow, pool []Item, items []normalizedItem, consumed []bool) BatchResult {
	description := NormalizeText(row.Description)
	location := NormalizeText(row.Location)
	condition := NormalizeText(row.Condition)

	tiers := []struct {
		matchType enums.MatchType
		status    string
		accept    func(normalizedItem) bool
	}{
		{enums.MatchTypePerfect, "Perfect", func(it normalizedItem) bool {
			return it.description == description && it.location == location && it.condition == condition
		}},
		{enums.MatchTypeHigh, "High", func(it normalizedItem) bool {
			return it.description == description && it.location == location
		}},
		{enums.MatchTypeExact, "Exact", func(it normalizedItem) bool {
			return it.description == description
		}},
	}

	for _, tier := range tiers {
		for i, it := range items {
			if consumed[i] || !tier.accept(it) {
				continue
			}
			return BatchResult{PoolIndex: i, MatchType: tier.matchType, Status: tier.status, Score: 1}
		}
	}

	type scored struct {
		index int
		score float64
	}
	var hits []scored
	for i := range pool {
		if consumed[i] {
			continue
		}
		if score := Similarity(row.Description, pool[i].Description); score > batchSimilarityThreshold {
			hits = append(hits, scored{index: i, score: score})
		}
	}
	if len(hits) == 0 {
		return BatchResult{PoolIndex: -1, MatchType: enums.MatchTypeNotFound, Status: "Not found"}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
	if len(hits) > 1 && hits[0].score-hits[1].score < ambiguityGap {
		return BatchResult{PoolIndex: -1, MatchType: enums.MatchTypeAmbiguous, Status: "Ambiguous", Score: hits[0].score}
	}

	best := hits[0]
	return BatchResult{
		PoolIndex: best.index,
		MatchType: enums.MatchTypeSimilarity,
		Status:    fmt.Sprintf("By similarity (%d%%)", int(math.Round(best.score*100))),
		Score:     best.score,
	}
}
