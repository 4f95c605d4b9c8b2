package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MatchingMetrics records reconciliation engine activity.
type MatchingMetrics struct {
	rankDuration  prometheus.Histogram
	topScore      prometheus.Histogram
	batchRows     *prometheus.CounterVec
	ledgerRecords prometheus.Gauge
}

// NewMatchingMetrics registers the matching metrics on the provided registerer.
func NewMatchingMetrics(reg prometheus.Registerer) *MatchingMetrics {
	if reg == nil {
		return &MatchingMetrics{}
	}
	rankDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "matching_rank_duration_seconds",
		Help:    "Time spent ranking ledger candidates for one inventory record.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	topScore := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "matching_suggestion_top_score",
		Help:    "Best candidate score of each suggestion.",
		Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
	})
	batchRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matching_batch_rows_total",
		Help: "Pasted rows classified by the batch matcher.",
	}, []string{"match_type"})
	ledgerRecords := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_snapshot_records",
		Help: "Records loaded from the latest ledger snapshot.",
	})
	reg.MustRegister(rankDuration, topScore, batchRows, ledgerRecords)
	return &MatchingMetrics{
		rankDuration:  rankDuration,
		topScore:      topScore,
		batchRows:     batchRows,
		ledgerRecords: ledgerRecords,
	}
}

// ObserveRanking records one RankCandidates call.
func (m *MatchingMetrics) ObserveRanking(duration time.Duration, topScore float64) {
	if m == nil || m.rankDuration == nil {
		return
	}
	m.rankDuration.Observe(duration.Seconds())
	m.topScore.Observe(topScore)
}

// IncBatchRow counts one classified batch row.
func (m *MatchingMetrics) IncBatchRow(matchType string) {
	if m == nil || m.batchRows == nil {
		return
	}
	m.batchRows.WithLabelValues(normalizeLabel(matchType)).Inc()
}

// SetLedgerRecords reports the size of the active ledger snapshot.
func (m *MatchingMetrics) SetLedgerRecords(n int) {
	if m == nil || m.ledgerRecords == nil {
		return
	}
	m.ledgerRecords.Set(float64(n))
}
