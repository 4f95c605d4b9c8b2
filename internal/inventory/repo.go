package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tombamento-backend/internal/matching"
	"github.com/angelmondragon/tombamento-backend/pkg/db/models"
)

// Repository manages persistence for inventory records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryRecord, error)
	ListUntagged(ctx context.Context, unit, itemType string) ([]models.InventoryRecord, error)
	ListByUnit(ctx context.Context, unit string) ([]models.InventoryRecord, error)
	AssignedTags(ctx context.Context) (map[string]struct{}, error)
	FindByAssetTag(ctx context.Context, tag string) (*models.InventoryRecord, error)
	AssignTag(ctx context.Context, id uuid.UUID, input AssignTagInput) error
	Transfer(ctx context.Context, id uuid.UUID, unit, location string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// untaggedClause matches NULL, blank and "S/T" style placeholders.
const untaggedClause = "(asset_tag IS NULL OR TRIM(asset_tag) = '' OR UPPER(TRIM(asset_tag)) IN ('S/T', 'ST', 'S/TOMB', 'SEM TOMBAMENTO'))"

func (r *repository) ListUntagged(ctx context.Context, unit, itemType string) ([]models.InventoryRecord, error) {
	query := r.db.WithContext(ctx).
		Where("unit = ?", unit).
		Where(untaggedClause)
	if strings.TrimSpace(itemType) != "" {
		query = query.Where("item_type = ?", itemType)
	}

	var records []models.InventoryRecord
	if err := query.Order("description ASC, id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) ListByUnit(ctx context.Context, unit string) ([]models.InventoryRecord, error) {
	var records []models.InventoryRecord
	if err := r.db.WithContext(ctx).
		Where("unit = ?", unit).
		Order("location ASC, description ASC, id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// AssignedTags returns the canonical asset tags held by any inventory record.
func (r *repository) AssignedTags(ctx context.Context) (map[string]struct{}, error) {
	var tags []string
	if err := r.db.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("NOT " + untaggedClause).
		Distinct().
		Pluck("asset_tag", &tags).Error; err != nil {
		return nil, err
	}

	assigned := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		assigned[matching.NormalizeAssetTag(tag)] = struct{}{}
	}
	return assigned, nil
}

// FindByAssetTag returns the record holding tag, or nil when none does.
// Stored tags are compared in canonical form.
func (r *repository) FindByAssetTag(ctx context.Context, tag string) (*models.InventoryRecord, error) {
	canonical := matching.NormalizeAssetTag(tag)
	candidates := []string{canonical, "0" + canonical, canonical + ".0", "0" + canonical + ".0"}

	var records []models.InventoryRecord
	if err := r.db.WithContext(ctx).
		Where("TRIM(asset_tag) IN ?", candidates).
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	for i := range records {
		if matching.NormalizeAssetTag(records[i].Tag()) == canonical {
			return &records[i], nil
		}
	}
	return nil, nil
}

func (r *repository) AssignTag(ctx context.Context, id uuid.UUID, input AssignTagInput) error {
	updates := map[string]any{
		"asset_tag":   input.AssetTag,
		"pending_tag": false,
	}
	if strings.TrimSpace(input.Description) != "" {
		updates["description"] = input.Description
	}
	if strings.TrimSpace(input.Supplier) != "" {
		updates["supplier"] = input.Supplier
	}
	return r.updateOne(ctx, id, updates)
}

func (r *repository) Transfer(ctx context.Context, id uuid.UUID, unit, location string) error {
	return r.updateOne(ctx, id, map[string]any{
		"unit":     unit,
		"location": location,
	})
}

func (r *repository) updateOne(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
