package ledger

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/tombamento-backend/internal/matching"
	"github.com/angelmondragon/tombamento-backend/pkg/db/models"
)

const insertBatchSize = 500

// unavailableStatuses lists normalized availability statuses whose assets can
// no longer be linked to an inventory record.
var unavailableStatuses = map[string]struct{}{
	"baixado":      {},
	"baixada":      {},
	"alienado":     {},
	"alienada":     {},
	"extraviado":   {},
	"extraviada":   {},
	"inservivel":   {},
	"doado":        {},
	"doada":        {},
	"indisponivel": {},
}

// IsAvailable reports whether a ledger entry with the given status may be
// offered as a candidate. Unknown and empty statuses count as available.
func IsAvailable(status string) bool {
	_, blocked := unavailableStatuses[matching.NormalizeText(status)]
	return !blocked
}

// Repository manages the persisted ledger snapshot.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListAvailable(ctx context.Context, unit string) ([]models.LedgerRecord, error)
	GetByAssetTag(ctx context.Context, tag string) (*models.LedgerRecord, error)
	ReplaceSnapshot(ctx context.Context, records []models.LedgerRecord) error
	Count(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// ListAvailable returns the unit's ledger entries whose status allows
// linking, ordered by asset tag. An empty unit lists every unit.
func (r *repository) ListAvailable(ctx context.Context, unit string) ([]models.LedgerRecord, error) {
	query := r.db.WithContext(ctx)
	if u := strings.TrimSpace(unit); u != "" {
		query = query.Where("LOWER(TRIM(unit)) = LOWER(?)", u)
	}

	var records []models.LedgerRecord
	if err := query.Order("asset_tag ASC").Find(&records).Error; err != nil {
		return nil, err
	}

	available := records[:0]
	for _, record := range records {
		if IsAvailable(record.AvailabilityStatus) {
			available = append(available, record)
		}
	}
	return available, nil
}

func (r *repository) GetByAssetTag(ctx context.Context, tag string) (*models.LedgerRecord, error) {
	var record models.LedgerRecord
	if err := r.db.WithContext(ctx).
		Where("asset_tag = ?", matching.NormalizeAssetTag(tag)).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ReplaceSnapshot swaps the stored ledger for records in one transaction.
func (r *repository) ReplaceSnapshot(ctx context.Context, records []models.LedgerRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&models.LedgerRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, insertBatchSize).Error
	})
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.LedgerRecord{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
