package matching

import (
	"sync"
	"time"
)

// DefaultPatternCapacity is how many confirmed links a session remembers.
const DefaultPatternCapacity = 300

// Pattern is a confirmed inventory-to-ledger pairing retained to bias later
// suggestions.
type Pattern struct {
	AssetTag         string
	SystemDescriptor string
	LedgerDescriptor string
	SystemSupplier   string
	LedgerSupplier   string
	Unit             string
	ItemType         string
	Score            float64
	ConfirmedAt      time.Time
}

// PatternReader exposes the read side of a pattern store to the ranker.
type PatternReader interface {
	Snapshot() []Pattern
}

// PatternMemory is a bounded, newest-first list of confirmed patterns.
// Appends are serialized; readers get a copy and never block each other.
type PatternMemory struct {
	mu       sync.RWMutex
	capacity int
	patterns []Pattern
}

// NewPatternMemory builds a memory seeded with newest-first patterns. Entries
// beyond capacity are dropped. A non-positive capacity falls back to
// DefaultPatternCapacity.
func NewPatternMemory(capacity int, seed ...Pattern) *PatternMemory {
	if capacity <= 0 {
		capacity = DefaultPatternCapacity
	}
	n := min(len(seed), capacity)
	patterns := make([]Pattern, n, capacity)
	copy(patterns, seed[:n])
	return &PatternMemory{capacity: capacity, patterns: patterns}
}

// Append records p as the newest pattern, evicting the oldest when full.
func (m *PatternMemory) Append(p Pattern) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.patterns) < m.capacity {
		m.patterns = append(m.patterns, Pattern{})
	}
	copy(m.patterns[1:], m.patterns[:len(m.patterns)-1])
	m.patterns[0] = p
}

// Snapshot returns the patterns newest-first.
func (m *PatternMemory) Snapshot() []Pattern {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Pattern, len(m.patterns))
	copy(out, m.patterns)
	return out
}

// Len reports how many patterns are held.
func (m *PatternMemory) Len() int {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.patterns)
}

// Capacity reports the eviction bound.
func (m *PatternMemory) Capacity() int {
	if m == nil {
		return 0
	}
	return m.capacity
}
