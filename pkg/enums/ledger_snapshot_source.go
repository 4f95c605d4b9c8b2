package enums

import "fmt"

// LedgerSnapshotSource selects where the ledger spreadsheet snapshot is read from.
type LedgerSnapshotSource string

const (
	LedgerSnapshotSourceFile LedgerSnapshotSource = "file"
	LedgerSnapshotSourceGCS  LedgerSnapshotSource = "gcs"
)

var validLedgerSnapshotSources = []LedgerSnapshotSource{
	LedgerSnapshotSourceFile,
	LedgerSnapshotSourceGCS,
}

// IsValid reports whether the value is a known LedgerSnapshotSource.
func (s LedgerSnapshotSource) IsValid() bool {
	for _, candidate := range validLedgerSnapshotSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLedgerSnapshotSource converts raw input into a LedgerSnapshotSource.
func ParseLedgerSnapshotSource(value string) (LedgerSnapshotSource, error) {
	for _, candidate := range validLedgerSnapshotSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger snapshot source %q", value)
}
