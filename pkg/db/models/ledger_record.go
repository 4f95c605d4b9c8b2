package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerRecord is one row of the imported ledger snapshot, keyed by its
// canonical asset tag. Rows are replaced wholesale on every refresh.
type LedgerRecord struct {
	AssetTag           string          `gorm:"column:asset_tag;primaryKey"`
	Description        string          `gorm:"column:description;not null"`
	Species            string          `gorm:"column:species;not null;default:''"`
	SupplierName       string          `gorm:"column:supplier_name;not null;default:''"`
	Unit               string          `gorm:"column:unit;not null;default:''"`
	AvailabilityStatus string          `gorm:"column:availability_status;not null;default:''"`
	InvoiceNumber      string          `gorm:"column:invoice_number;not null;default:''"`
	RegistrationDate   *time.Time      `gorm:"column:registration_date"`
	InvoiceValue       decimal.Decimal `gorm:"column:invoice_value;type:numeric(14,2);not null;default:0"`
	SnapshotID         uuid.UUID       `gorm:"column:snapshot_id;type:uuid;not null"`
	ImportedAt         time.Time       `gorm:"column:imported_at;not null"`
}

func (LedgerRecord) TableName() string { return "ledger_records" }
