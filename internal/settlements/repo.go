package settlements

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camilavaldes/splitabill-backend/pkg/db/models"
)

// ListQuery filters the settlement listing. Nil fields are unconstrained.
type ListQuery struct {
	FromUserID *uuid.UUID
	ToUserID   *uuid.UUID
	InvoiceID  *uuid.UUID
	Limit      int
}

// Repository handles settlement persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, settlement *models.Settlement) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Settlement, error)
	List(ctx context.Context, query ListQuery) ([]models.Settlement, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a settlements repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, settlement *models.Settlement) error {
	return r.db.WithContext(ctx).Create(settlement).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	var settlement models.Settlement
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&settlement).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &settlement, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Settlement, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	q := r.db.WithContext(ctx).Model(&models.Settlement{})
	if query.FromUserID != nil {
		q = q.Where("from_user_id = ?", *query.FromUserID)
	}
	if query.ToUserID != nil {
		q = q.Where("to_user_id = ?", *query.ToUserID)
	}
	if query.InvoiceID != nil {
		q = q.Where("invoice_id = ?", *query.InvoiceID)
	}

	var settlements []models.Settlement
	if err := q.Order("settlement_date DESC").Limit(limit).Find(&settlements).Error; err != nil {
		return nil, err
	}
	return settlements, nil
}
