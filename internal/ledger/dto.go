package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tombamento-backend/pkg/db/models"
)

// RecordDTO is the API view of a ledger entry.
type RecordDTO struct {
	AssetTag           string          `json:"asset_tag"`
	Description        string          `json:"description"`
	Species            string          `json:"species,omitempty"`
	SupplierName       string          `json:"supplier_name,omitempty"`
	Unit               string          `json:"unit,omitempty"`
	AvailabilityStatus string          `json:"availability_status,omitempty"`
	Available          bool            `json:"available"`
	InvoiceNumber      string          `json:"invoice_number,omitempty"`
	RegistrationDate   *time.Time      `json:"registration_date,omitempty"`
	InvoiceValue       decimal.Decimal `json:"invoice_value"`
	ImportedAt         time.Time       `json:"imported_at"`
}

func FromModel(r models.LedgerRecord) RecordDTO {
	return RecordDTO{
		AssetTag:           r.AssetTag,
		Description:        r.Description,
		Species:            r.Species,
		SupplierName:       r.SupplierName,
		Unit:               r.Unit,
		AvailabilityStatus: r.AvailabilityStatus,
		Available:          IsAvailable(r.AvailabilityStatus),
		InvoiceNumber:      r.InvoiceNumber,
		RegistrationDate:   r.RegistrationDate,
		InvoiceValue:       r.InvoiceValue,
		ImportedAt:         r.ImportedAt,
	}
}
