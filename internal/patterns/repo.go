package patterns

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/tombamento-backend/pkg/db/models"
	"github.com/angelmondragon/tombamento-backend/pkg/pagination"
)

// Repository manages the confirmed link history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, link *models.ConfirmedLink) error
	ListRecent(ctx context.Context, limit int) ([]models.ConfirmedLink, error)
	List(ctx context.Context, query ListQuery) ([]models.ConfirmedLink, error)
}

// ListQuery selects one page of history ordered newest first. Limit already
// includes the look-ahead row.
type ListQuery struct {
	Unit   string
	Limit  int
	Cursor *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a confirmed link repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, link *models.ConfirmedLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *repository) ListRecent(ctx context.Context, limit int) ([]models.ConfirmedLink, error) {
	var links []models.ConfirmedLink
	if err := r.db.WithContext(ctx).
		Order("confirmed_at DESC, id DESC").
		Limit(limit).
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.ConfirmedLink, error) {
	q := r.db.WithContext(ctx)
	if unit := strings.TrimSpace(query.Unit); unit != "" {
		q = q.Where("unit = ?", unit)
	}
	if query.Cursor != nil {
		q = q.Where("(confirmed_at < ?) OR (confirmed_at = ? AND id < ?)",
			query.Cursor.At, query.Cursor.At, query.Cursor.ID)
	}

	var links []models.ConfirmedLink
	if err := q.Order("confirmed_at DESC, id DESC").
		Limit(query.Limit).
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}
