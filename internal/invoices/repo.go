package invoices

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camilavaldes/splitabill-backend/pkg/db/models"
	"github.com/camilavaldes/splitabill-backend/pkg/enums"
)

// Repository handles invoice persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, invoice *models.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	Update(ctx context.Context, invoice *models.Invoice) error
	List(ctx context.Context, query ListQuery) ([]models.Invoice, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error)
	ListPendingByPayer(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error)
	ListPaidPayersBySession(ctx context.Context, sessionID uuid.UUID) ([]uuid.UUID, error)
}

// ListQuery filters invoice list queries. Nil fields are ignored.
type ListQuery struct {
	SessionID  *uuid.UUID
	GroupID    *uuid.UUID
	FromUserID *uuid.UUID
	ToUserID   *uuid.UUID
	Status     *enums.InvoiceStatus
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an invoices repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&invoice).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) Update(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", invoice.ID).
		Updates(map[string]any{
			"group_id":        invoice.GroupID,
			"description":     invoice.Description,
			"status":          invoice.Status,
			"due_date":        invoice.DueDate,
			"paid_at":         invoice.PaidAt,
			"frequency_cycle": invoice.FrequencyCycle,
		}).Error
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Invoice, error) {
	q := r.db.WithContext(ctx).Preload("Items")
	if query.SessionID != nil {
		q = q.Where("session_id = ?", *query.SessionID)
	}
	if query.GroupID != nil {
		q = q.Where("group_id = ?", *query.GroupID)
	}
	if query.FromUserID != nil {
		q = q.Where("from_user_id = ?", *query.FromUserID)
	}
	if query.ToUserID != nil {
		q = q.Where("to_user_id = ?", *query.ToUserID)
	}
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	var invoices []models.Invoice
	if err := q.Order("created_at DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repository) ListPendingByPayer(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("from_user_id = ? AND status = ?", userID, enums.InvoiceStatusPending).
		Order("created_at DESC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repository) ListPaidPayersBySession(ctx context.Context, sessionID uuid.UUID) ([]uuid.UUID, error) {
	var payers []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Distinct("from_user_id").
		Where("session_id = ? AND status = ?", sessionID, enums.InvoiceStatusPaid).
		Pluck("from_user_id", &payers).Error; err != nil {
		return nil, err
	}
	return payers, nil
}
