package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tombamento-backend/internal/matching"
	"github.com/angelmondragon/tombamento-backend/pkg/db"
	"github.com/angelmondragon/tombamento-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tombamento-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the inventory operations reconciliation depends on.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.InventoryRecord, error)
	ListUntagged(ctx context.Context, unit, itemType string) ([]models.InventoryRecord, error)
	AssignedTags(ctx context.Context) (map[string]struct{}, error)
	AssignTag(ctx context.Context, id uuid.UUID, input AssignTagInput) (*models.InventoryRecord, error)
	Transfer(ctx context.Context, id uuid.UUID, input TransferInput) (*models.InventoryRecord, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires an inventory service with its repository and transaction runner.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.InventoryRecord, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory id is required")
	}
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
	}
	return record, nil
}

func (s *service) ListUntagged(ctx context.Context, unit, itemType string) ([]models.InventoryRecord, error) {
	if strings.TrimSpace(unit) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit is required")
	}
	records, err := s.repo.ListUntagged(ctx, unit, itemType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list untagged inventory")
	}
	return records, nil
}

func (s *service) AssignedTags(ctx context.Context) (map[string]struct{}, error) {
	tags, err := s.repo.AssignedTags(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assigned asset tags")
	}
	return tags, nil
}

// AssignTag stores the canonical tag on the record. Re-assigning the same tag
// is a no-op; a tag held by another record or a record that already carries a
// different tag is rejected.
func (s *service) AssignTag(ctx context.Context, id uuid.UUID, input AssignTagInput) (*models.InventoryRecord, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory id is required")
	}
	tag := matching.NormalizeAssetTag(input.AssetTag)
	if matching.IsUntaggedAssetTag(tag) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset tag is required").
			WithDetails(map[string]any{"asset_tag": input.AssetTag})
	}
	input.AssetTag = tag

	var updated *models.InventoryRecord
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		record, err := repo.GetByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
		}

		current := matching.NormalizeAssetTag(record.Tag())
		if current == tag {
			updated = record
			return nil
		}
		if !matching.IsUntaggedAssetTag(current) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "inventory record already has an asset tag").
				WithDetails(map[string]any{"inventory_id": id, "asset_tag": current})
		}

		holder, err := repo.FindByAssetTag(ctx, tag)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up asset tag")
		}
		if holder != nil && holder.ID != id {
			return pkgerrors.New(pkgerrors.CodeConflict, "asset tag already assigned").
				WithDetails(map[string]any{"asset_tag": tag, "inventory_id": holder.ID})
		}

		if err := repo.AssignTag(ctx, id, input); err != nil {
			// a concurrent confirm committed the same tag after the lookup
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "asset tag already assigned").
					WithDetails(map[string]any{"asset_tag": tag})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign asset tag")
		}
		updated, err = repo.GetByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload inventory record")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Transfer(ctx context.Context, id uuid.UUID, input TransferInput) (*models.InventoryRecord, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory id is required")
	}
	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit is required")
	}

	if err := s.repo.Transfer(ctx, id, unit, strings.TrimSpace(input.Location)); err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transfer inventory record")
	}
	return s.Get(ctx, id)
}
