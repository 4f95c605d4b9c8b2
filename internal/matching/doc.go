// Package matching links untagged inventory records to ledger entries.
//
// Everything here is pure computation over materialized slices:
//   - NormalizeText, NormalizeAssetTag, ParseConditionAndOrigin: input canonicalization
//   - Similarity: composite fuzzy score in [0,1]
//   - PatternMemory: bounded newest-first log of confirmed links
//   - RankCandidates: ranked ledger suggestions for one inventory record
//   - MatchBatch: greedy, order-dependent matching of pasted spreadsheet rows
//
// The package performs no I/O. Callers scope the pools (unit, availability,
// consumed tags) before handing them in.
package matching
