package patterns

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/tombamento-backend/internal/matching"
	"github.com/angelmondragon/tombamento-backend/pkg/db"
	"github.com/angelmondragon/tombamento-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tombamento-backend/pkg/errors"
	"github.com/angelmondragon/tombamento-backend/pkg/pagination"
)

// Service persists confirmed links and rebuilds pattern memory from them.
type Service interface {
	Record(ctx context.Context, link *models.ConfirmedLink) error
	Hydrate(ctx context.Context, capacity int) (*matching.PatternMemory, error)
	List(ctx context.Context, params ListParams) (*pagination.Page[LinkDTO], error)
}

// ListParams filters the confirmed link history.
type ListParams struct {
	Unit string
	pagination.Params
}

type service struct {
	repo Repository
}

// NewService wires a patterns service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("patterns repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, link *models.ConfirmedLink) error {
	if link == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "confirmed link is required")
	}
	if link.InventoryID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "inventory id is required")
	}
	if matching.IsUntaggedAssetTag(link.AssetTag) {
		return pkgerrors.New(pkgerrors.CodeValidation, "asset tag is required")
	}
	if strings.TrimSpace(link.SystemDescriptor) == "" || strings.TrimSpace(link.LedgerDescriptor) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "descriptors are required")
	}
	if link.ConfirmedAt.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "confirmed at is required")
	}
	link.ConfirmedAt = link.ConfirmedAt.UTC()

	if err := s.repo.Create(ctx, link); err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.New(pkgerrors.CodeConflict, "confirmed link already recorded").
				WithDetails(map[string]any{"link_id": link.ID})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist confirmed link")
	}
	return nil
}

// Hydrate loads the newest capacity links into a fresh pattern memory.
func (s *service) Hydrate(ctx context.Context, capacity int) (*matching.PatternMemory, error) {
	if capacity <= 0 {
		capacity = matching.DefaultPatternCapacity
	}
	links, err := s.repo.ListRecent(ctx, capacity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load confirmed links")
	}
	seed := make([]matching.Pattern, 0, len(links))
	for _, link := range links {
		seed = append(seed, ToPattern(link))
	}
	return matching.NewPatternMemory(capacity, seed...), nil
}

func (s *service) List(ctx context.Context, params ListParams) (*pagination.Page[LinkDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, ListQuery{
		Unit:   params.Unit,
		Limit:  pagination.LimitWithBuffer(params.Limit),
		Cursor: cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list confirmed links")
	}

	page := pagination.Paginate(rows, params.Limit, func(l models.ConfirmedLink) pagination.Cursor {
		return pagination.Cursor{At: l.ConfirmedAt, ID: l.ID}
	})
	items := make([]LinkDTO, len(page.Items))
	for i, row := range page.Items {
		items[i] = FromModel(row)
	}
	return &pagination.Page[LinkDTO]{Items: items, NextCursor: page.NextCursor}, nil
}
