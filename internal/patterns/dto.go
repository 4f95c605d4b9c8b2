package patterns

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tombamento-backend/internal/matching"
	"github.com/angelmondragon/tombamento-backend/pkg/db/models"
)

// LinkDTO is the API view of a confirmed link.
type LinkDTO struct {
	ID               uuid.UUID `json:"id"`
	InventoryID      uuid.UUID `json:"inventory_id"`
	AssetTag         string    `json:"asset_tag"`
	SystemDescriptor string    `json:"system_descriptor"`
	LedgerDescriptor string    `json:"ledger_descriptor"`
	SystemSupplier   string    `json:"system_supplier,omitempty"`
	LedgerSupplier   string    `json:"ledger_supplier,omitempty"`
	Unit             string    `json:"unit"`
	ItemType         string    `json:"item_type,omitempty"`
	Score            float64   `json:"score"`
	ConfirmedBy      string    `json:"confirmed_by,omitempty"`
	ConfirmedAt      time.Time `json:"confirmed_at"`
}

func FromModel(l models.ConfirmedLink) LinkDTO {
	return LinkDTO{
		ID:               l.ID,
		InventoryID:      l.InventoryID,
		AssetTag:         l.AssetTag,
		SystemDescriptor: l.SystemDescriptor,
		LedgerDescriptor: l.LedgerDescriptor,
		SystemSupplier:   l.SystemSupplier,
		LedgerSupplier:   l.LedgerSupplier,
		Unit:             l.Unit,
		ItemType:         l.ItemType,
		Score:            l.Score,
		ConfirmedBy:      l.ConfirmedBy,
		ConfirmedAt:      l.ConfirmedAt,
	}
}

// ToPattern converts a stored link into the engine's pattern type.
func ToPattern(l models.ConfirmedLink) matching.Pattern {
	return matching.Pattern{
		AssetTag:         l.AssetTag,
		SystemDescriptor: l.SystemDescriptor,
		LedgerDescriptor: l.LedgerDescriptor,
		SystemSupplier:   l.SystemSupplier,
		LedgerSupplier:   l.LedgerSupplier,
		Unit:             l.Unit,
		ItemType:         l.ItemType,
		Score:            l.Score,
		ConfirmedAt:      l.ConfirmedAt,
	}
}

// FromPattern builds the row persisted for a confirmed pattern.
func FromPattern(inventoryID uuid.UUID, confirmedBy string, p matching.Pattern) models.ConfirmedLink {
	return models.ConfirmedLink{
		InventoryID:      inventoryID,
		AssetTag:         p.AssetTag,
		SystemDescriptor: p.SystemDescriptor,
		LedgerDescriptor: p.LedgerDescriptor,
		SystemSupplier:   p.SystemSupplier,
		LedgerSupplier:   p.LedgerSupplier,
		Unit:             p.Unit,
		ItemType:         p.ItemType,
		Score:            p.Score,
		ConfirmedBy:      confirmedBy,
		ConfirmedAt:      p.ConfirmedAt.UTC(),
	}
}
