package ledger

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/tombamento-backend/internal/matching"
	"github.com/angelmondragon/tombamento-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tombamento-backend/pkg/errors"
)

// Service exposes the ledger snapshot to reconciliation and the API.
type Service interface {
	ListAvailable(ctx context.Context, unit string) ([]models.LedgerRecord, error)
	Get(ctx context.Context, assetTag string) (*models.LedgerRecord, error)
	Count(ctx context.Context) (int64, error)
	Refresh(ctx context.Context) (*RefreshResult, error)
}

type refresher interface {
	Refresh(ctx context.Context) (*RefreshResult, error)
}

type service struct {
	repo      Repository
	refresher refresher
}

// NewService wires a ledger service. refresher may be nil when the process
// only reads the snapshot.
func NewService(repo Repository, refresher refresher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo, refresher: refresher}, nil
}

func (s *service) ListAvailable(ctx context.Context, unit string) ([]models.LedgerRecord, error) {
	records, err := s.repo.ListAvailable(ctx, unit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger records")
	}
	return records, nil
}

func (s *service) Get(ctx context.Context, assetTag string) (*models.LedgerRecord, error) {
	tag := matching.NormalizeAssetTag(assetTag)
	if matching.IsUntaggedAssetTag(tag) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset tag is required")
	}
	record, err := s.repo.GetByAssetTag(ctx, tag)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset tag not found in ledger").
				WithDetails(map[string]any{"asset_tag": tag})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger record")
	}
	return record, nil
}

func (s *service) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count ledger records")
	}
	return n, nil
}

func (s *service) Refresh(ctx context.Context) (*RefreshResult, error) {
	if s.refresher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ledger refresh is not configured")
	}
	return s.refresher.Refresh(ctx)
}

// ToCandidate converts a stored ledger row into the ranker's candidate type.
func ToCandidate(r models.LedgerRecord) matching.LedgerCandidate {
	return matching.LedgerCandidate{
		AssetTag:     r.AssetTag,
		Description:  r.Description,
		Species:      r.Species,
		SupplierName: r.SupplierName,
	}
}
