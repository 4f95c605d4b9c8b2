package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tombamento-backend/pkg/enums"
)

// InventoryAssetTagUniqueIndex keeps a real asset tag on at most one record.
// Placeholders for untagged items are left out. It mirrors the goose
// migration of the same name so AutoMigrate-built test schemas carry it too.
const InventoryAssetTagUniqueIndex = `CREATE UNIQUE INDEX IF NOT EXISTS uq_inventory_records_asset_tag
    ON inventory_records (asset_tag)
    WHERE asset_tag IS NOT NULL
      AND TRIM(asset_tag) <> ''
      AND UPPER(TRIM(asset_tag)) NOT IN ('S/T', 'ST', 'S/TOMB', 'SEM TOMBAMENTO')`

// InventoryRecord is one physical asset tracked by the audit team.
type InventoryRecord struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	AssetTag       *string              `gorm:"column:asset_tag"`
	Description    string               `gorm:"column:description;not null"`
	Supplier       string               `gorm:"column:supplier;not null;default:''"`
	Location       string               `gorm:"column:location;not null;default:''"`
	Unit           string               `gorm:"column:unit;not null"`
	ItemType       string               `gorm:"column:item_type;not null;default:''"`
	ConditionState enums.ConditionState `gorm:"column:condition_state;not null;default:'Regular'"`
	DonationOrigin string               `gorm:"column:donation_origin;not null;default:''"`
	Notes          string               `gorm:"column:notes;not null;default:''"`
	PendingTag     bool                 `gorm:"column:pending_tag;not null;default:false"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryRecord) TableName() string { return "inventory_records" }

func (r *InventoryRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Tag returns the asset tag or "" when the record is untagged.
func (r InventoryRecord) Tag() string {
	if r.AssetTag == nil {
		return ""
	}
	return *r.AssetTag
}
