package reconciliation

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tombamento-backend/internal/inventory"
	"github.com/angelmondragon/tombamento-backend/internal/matching"
	"github.com/angelmondragon/tombamento-backend/pkg/enums"
)

// StartSessionInput opens a session over the untagged records of a unit.
type StartSessionInput struct {
	Unit     string `json:"unit" validate:"required,max=200"`
	ItemType string `json:"item_type" validate:"omitempty,max=100"`
	Operator string `json:"operator" validate:"omitempty,max=200"`
}

// SessionDTO is the API view of a session.
type SessionDTO struct {
	ID        uuid.UUID `json:"id"`
	Unit      string    `json:"unit"`
	ItemType  string    `json:"item_type,omitempty"`
	Operator  string    `json:"operator,omitempty"`
	Patterns  int       `json:"patterns"`
	StartedAt time.Time `json:"started_at"`
}

func toSessionDTO(s *Session) SessionDTO {
	return SessionDTO{
		ID:        s.ID,
		Unit:      s.Unit,
		ItemType:  s.ItemType,
		Operator:  s.Operator,
		Patterns:  s.Memory.Len(),
		StartedAt: s.StartedAt,
	}
}

// CandidateDTO is one ranked ledger entry.
type CandidateDTO struct {
	AssetTag     string  `json:"asset_tag"`
	Description  string  `json:"description"`
	Species      string  `json:"species,omitempty"`
	SupplierName string  `json:"supplier_name,omitempty"`
	BaseScore    float64 `json:"base_score"`
	BonusScore   float64 `json:"bonus_score"`
	Score        float64 `json:"score"`
}

func toCandidateDTO(c matching.Candidate) CandidateDTO {
	return CandidateDTO{
		AssetTag:     c.Record.AssetTag,
		Description:  c.Record.Description,
		Species:      c.Record.Species,
		SupplierName: c.Record.SupplierName,
		BaseScore:    c.BaseScore,
		BonusScore:   c.BonusScore,
		Score:        c.Score,
	}
}

// Suggestion is the ranked candidate list for one inventory record.
type Suggestion struct {
	SessionID  uuid.UUID           `json:"session_id"`
	Item       inventory.RecordDTO `json:"item"`
	Candidates []CandidateDTO      `json:"candidates"`
	TopScore   float64             `json:"top_score"`
	PoolSize   int                 `json:"pool_size"`
	Truncated  bool                `json:"truncated"`
	PendingTag string              `json:"pending_tag,omitempty"`
}

// ProposeInput reserves a ledger tag for an inventory record.
type ProposeInput struct {
	SessionID   uuid.UUID `json:"-"`
	InventoryID uuid.UUID `json:"-"`
	AssetTag    string    `json:"asset_tag" validate:"required,max=50"`
}

// PendingLink is a proposed pairing held until it is confirmed or the
// session ends.
type PendingLink struct {
	SessionID        uuid.UUID `json:"session_id"`
	InventoryID      uuid.UUID `json:"inventory_id"`
	AssetTag         string    `json:"asset_tag"`
	LedgerDescriptor string    `json:"ledger_descriptor"`
	Replaced         string    `json:"replaced,omitempty"`
}

// ConfirmInput commits a pairing. ConfirmedAt is the caller's wall clock.
type ConfirmInput struct {
	SessionID     uuid.UUID `json:"-"`
	InventoryID   uuid.UUID `json:"-"`
	AssetTag      string    `json:"asset_tag" validate:"required,max=50"`
	Score         float64   `json:"score" validate:"gte=0,lte=1"`
	UseLedgerText bool      `json:"use_ledger_text"`
	ConfirmedBy   string    `json:"confirmed_by" validate:"omitempty,max=200"`
	ConfirmedAt   time.Time `json:"-"`
}

// ConfirmResult reports the updated record. PatternPersisted is false when
// the link is only held in session memory.
type ConfirmResult struct {
	Record           inventory.RecordDTO `json:"record"`
	AssetTag         string              `json:"asset_tag"`
	Patterns         int                 `json:"patterns"`
	PatternPersisted bool                `json:"pattern_persisted"`
}

// BatchInput matches pasted spreadsheet rows against a unit's untagged
// records. With Commit set, every matched row's asset tag is assigned.
type BatchInput struct {
	Unit        string
	ItemType    string
	Rows        []matching.PastedRow
	Commit      bool
	ConfirmedBy string
}

// BatchRowResult is the outcome of one pasted row.
type BatchRowResult struct {
	RowIndex    int             `json:"row_index"`
	Description string          `json:"description"`
	AssetTag    string          `json:"asset_tag,omitempty"`
	MatchType   enums.MatchType `json:"match_type"`
	Status      string          `json:"status"`
	Score       float64         `json:"score"`
	InventoryID *uuid.UUID      `json:"inventory_id,omitempty"`
	Matched     string          `json:"matched_description,omitempty"`
	Committed   bool            `json:"committed"`
	Error       string          `json:"error,omitempty"`
}

// BatchOutcome summarizes a batch run. Skipped lists pasted lines left out
// before matching.
type BatchOutcome struct {
	Unit      string           `json:"unit"`
	PoolSize  int              `json:"pool_size"`
	Rows      []BatchRowResult `json:"rows"`
	Matched   int              `json:"matched"`
	Ambiguous int              `json:"ambiguous"`
	NotFound  int              `json:"not_found"`
	Committed int              `json:"committed"`
	Errors    []string         `json:"errors,omitempty"`
	Skipped   []string         `json:"skipped,omitempty"`
}
