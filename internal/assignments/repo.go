package assignments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camilavaldes/splitabill-backend/pkg/db/models"
)

// Repository handles item assignment persistence plus the order item and
// participant lookups the engine validates against.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, assignment *models.ItemAssignment) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ItemAssignment, error)
	ListByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]models.ItemAssignment, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.ItemAssignment, error)
	UpdateAmountsForItem(ctx context.Context, orderItemID uuid.UUID, amount int) error
	FindOrderItem(ctx context.Context, id uuid.UUID) (*models.OrderItem, error)
	ListOrderItems(ctx context.Context, sessionID uuid.UUID) ([]models.OrderItem, error)
	FindParticipant(ctx context.Context, id uuid.UUID) (*models.TableParticipant, error)
	FindParticipantByUser(ctx context.Context, sessionID, userID uuid.UUID) (*models.TableParticipant, error)
	ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]models.TableParticipant, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an assignments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, assignment *models.ItemAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.ItemAssignment{}).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ItemAssignment, error) {
	var assignment models.ItemAssignment
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&assignment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) ListByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]models.ItemAssignment, error) {
	var assignments []models.ItemAssignment
	if err := r.db.WithContext(ctx).
		Where("order_item_id = ?", orderItemID).
		Order("id ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.ItemAssignment, error) {
	var assignments []models.ItemAssignment
	if err := r.db.WithContext(ctx).
		Joins("JOIN order_items ON order_items.id = item_assignments.order_item_id").
		Where("order_items.session_id = ?", sessionID).
		Order("item_assignments.id ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *repository) UpdateAmountsForItem(ctx context.Context, orderItemID uuid.UUID, amount int) error {
	return r.db.WithContext(ctx).
		Model(&models.ItemAssignment{}).
		Where("order_item_id = ?", orderItemID).
		Update("assigned_amount", amount).Error
}

func (r *repository) FindOrderItem(ctx context.Context, id uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&item).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListOrderItems(ctx context.Context, sessionID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("ordered_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindParticipant(ctx context.Context, id uuid.UUID) (*models.TableParticipant, error) {
	var participant models.TableParticipant
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&participant).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &participant, nil
}

func (r *repository) FindParticipantByUser(ctx context.Context, sessionID, userID uuid.UUID) (*models.TableParticipant, error) {
	var participant models.TableParticipant
	if err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&participant).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &participant, nil
}

func (r *repository) ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]models.TableParticipant, error) {
	var participants []models.TableParticipant
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("joined_at ASC").
		Find(&participants).Error; err != nil {
		return nil, err
	}
	return participants, nil
}
