package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConfirmedLink is the append-only history of human-confirmed pairings.
type ConfirmedLink struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	InventoryID      uuid.UUID `gorm:"column:inventory_id;type:uuid;not null"`
	AssetTag         string    `gorm:"column:asset_tag;not null"`
	SystemDescriptor string    `gorm:"column:system_descriptor;not null"`
	LedgerDescriptor string    `gorm:"column:ledger_descriptor;not null"`
	SystemSupplier   string    `gorm:"column:system_supplier;not null;default:''"`
	LedgerSupplier   string    `gorm:"column:ledger_supplier;not null;default:''"`
	Unit             string    `gorm:"column:unit;not null;default:''"`
	ItemType         string    `gorm:"column:item_type;not null;default:''"`
	Score            float64   `gorm:"column:score;not null"`
	ConfirmedBy      string    `gorm:"column:confirmed_by;not null;default:''"`
	ConfirmedAt      time.Time `gorm:"column:confirmed_at;not null"`
}

func (ConfirmedLink) TableName() string { return "confirmed_links" }

func (l *ConfirmedLink) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
