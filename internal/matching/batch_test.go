package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tombamento-backend/pkg/enums"
)

func TestMatchBatchPerfect(t *testing.T) {
	pool := []Item{{ID: "a", Description: "Cadeira de escritório", Location: "Sala 1", Condition: "Bom"}}
	rows := []PastedRow{{Description: "Cadeira de escritório", Location: "Sala 1", Condition: "Bom"}}

	results := MatchBatch(rows, pool)
	require.Len(t, results, 1)
	assert.Equal(t, enums.MatchTypePerfect, results[0].MatchType)
	assert.Equal(t, "Perfect", results[0].Status)
	assert.Equal(t, 0, results[0].PoolIndex)
	assert.True(t, results[0].Matched())
}

func TestMatchBatchTierOrder(t *testing.T) {
	pool := []Item{
		{Description: "Mesa", Location: "Sala 2", Condition: "Regular"},
		{Description: "Mesa", Location: "Sala 1", Condition: "Regular"},
	}
	rows := []PastedRow{
		{Description: "mesa", Location: "sala 1", Condition: "Bom"},
		{Description: "MESA", Location: "Sala 9", Condition: "Bom"},
	}

	results := MatchBatch(rows, pool)
	require.Len(t, results, 2)
	assert.Equal(t, enums.MatchTypeHigh, results[0].MatchType)
	assert.Equal(t, 1, results[0].PoolIndex)
	assert.Equal(t, enums.MatchTypeExact, results[1].MatchType)
	assert.Equal(t, 0, results[1].PoolIndex)
}

func TestMatchBatchNeverReusesPoolEntry(t *testing.T) {
	pool := []Item{{Description: "Cadeira de escritório", Location: "Sala 1", Condition: "Bom"}}
	row := PastedRow{Description: "Cadeira de escritório", Location: "Sala 1", Condition: "Bom"}

	results := MatchBatch([]PastedRow{row, row, row}, pool)
	require.Len(t, results, 3)

	seen := map[int]int{}
	for _, result := range results {
		if result.Matched() {
			seen[result.PoolIndex]++
		}
	}
	assert.Equal(t, map[int]int{0: 1}, seen)
	assert.Equal(t, enums.MatchTypeNotFound, results[1].MatchType)
	assert.Equal(t, 2, results[2].RowIndex)
}

func TestMatchBatchAmbiguousRows(t *testing.T) {
	pool := []Item{
		{Description: "Cadeira giratória azul", Location: "Sala 1"},
		{Description: "Cadeira giratória azul", Location: "Sala 2"},
	}
	row := PastedRow{Description: "Cadeira giratoria", Location: "Sala 3"}

	results := MatchBatch([]PastedRow{row, row}, pool)
	require.Len(t, results, 2)
	for _, result := range results {
		assert.Equal(t, enums.MatchTypeAmbiguous, result.MatchType)
		assert.Equal(t, "Ambiguous", result.Status)
		assert.False(t, result.Matched())
	}
}

func TestMatchBatchSimilarityFallback(t *testing.T) {
	pool := []Item{
		{Description: "Mesa"},
		{Description: "Arquivo aço quatro gavetas"},
	}
	rows := []PastedRow{{Description: "Arquivo de aço 4 gavetas"}}

	results := MatchBatch(rows, pool)
	require.Len(t, results, 1)
	assert.Equal(t, enums.MatchTypeSimilarity, results[0].MatchType)
	assert.Equal(t, "By similarity (67%)", results[0].Status)
	assert.Equal(t, 1, results[0].PoolIndex)
	assert.InDelta(t, 0.673, results[0].Score, 0.001)
}

func TestMatchBatchNotFound(t *testing.T) {
	results := MatchBatch([]PastedRow{{Description: "Projetor"}}, []Item{{Description: "Mesa"}})
	require.Len(t, results, 1)
	assert.Equal(t, enums.MatchTypeNotFound, results[0].MatchType)
	assert.Equal(t, "Not found", results[0].Status)
	assert.Equal(t, -1, results[0].PoolIndex)
}

func TestMatchBatchDoesNotModifyPool(t *testing.T) {
	pool := []Item{{ID: "x", Description: "Mesa"}}
	snapshot := append([]Item(nil), pool...)

	MatchBatch([]PastedRow{{Description: "Mesa"}}, pool)
	assert.Equal(t, snapshot, pool)
}
