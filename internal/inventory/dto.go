package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tombamento-backend/internal/matching"
	"github.com/angelmondragon/tombamento-backend/pkg/db/models"
	"github.com/angelmondragon/tombamento-backend/pkg/enums"
)

// AssignTagInput links a ledger asset tag to an inventory record. Description
// and Supplier, when set, overwrite the record's values with the ledger's.
type AssignTagInput struct {
	AssetTag    string
	Description string
	Supplier    string
}

// TransferInput moves a record to another unit and location.
type TransferInput struct {
	Unit     string `json:"unit" validate:"required"`
	Location string `json:"location"`
}

// RecordDTO is the API view of an inventory record.
type RecordDTO struct {
	ID             uuid.UUID            `json:"id"`
	AssetTag       string               `json:"asset_tag,omitempty"`
	Description    string               `json:"description"`
	Supplier       string               `json:"supplier,omitempty"`
	Location       string               `json:"location,omitempty"`
	Unit           string               `json:"unit"`
	ItemType       string               `json:"item_type,omitempty"`
	ConditionState enums.ConditionState `json:"condition_state"`
	DonationOrigin string               `json:"donation_origin,omitempty"`
	PendingTag     bool                 `json:"pending_tag"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// FromModel maps a persisted record to its API view.
func FromModel(r models.InventoryRecord) RecordDTO {
	return RecordDTO{
		ID:             r.ID,
		AssetTag:       r.Tag(),
		Description:    r.Description,
		Supplier:       r.Supplier,
		Location:       r.Location,
		Unit:           r.Unit,
		ItemType:       r.ItemType,
		ConditionState: r.ConditionState,
		DonationOrigin: r.DonationOrigin,
		PendingTag:     r.PendingTag,
		UpdatedAt:      r.UpdatedAt,
	}
}

// ToMatchItem is the engine's view of a record.
func ToMatchItem(r models.InventoryRecord) matching.Item {
	return matching.Item{
		ID:          r.ID.String(),
		Description: r.Description,
		Supplier:    r.Supplier,
		Location:    r.Location,
		Condition:   r.ConditionState.String(),
	}
}
