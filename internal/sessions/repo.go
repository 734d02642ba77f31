package sessions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camilavaldes/splitabill-backend/pkg/db/models"
)

// Repository handles table session persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSession(ctx context.Context, session *models.TableSession) error
	FindSessionByID(ctx context.Context, id uuid.UUID) (*models.TableSession, error)
	UpdateSession(ctx context.Context, session *models.TableSession) error
	CreateParticipant(ctx context.Context, participant *models.TableParticipant) error
	FindParticipantByUser(ctx context.Context, sessionID, userID uuid.UUID) (*models.TableParticipant, error)
	ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]models.TableParticipant, error)
	ListOrderItems(ctx context.Context, sessionID uuid.UUID) ([]models.OrderItem, error)
	FindOrderItemByID(ctx context.Context, id uuid.UUID) (*models.OrderItem, error)
	CreateOrderItem(ctx context.Context, item *models.OrderItem) error
	SumAssignedAmounts(ctx context.Context, sessionID uuid.UUID) (int, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a sessions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateSession(ctx context.Context, session *models.TableSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *repository) FindSessionByID(ctx context.Context, id uuid.UUID) (*models.TableSession, error) {
	var session models.TableSession
	if err := r.db.WithContext(ctx).
		Preload("Participants").
		Preload("OrderItems").
		Where("id = ?", id).
		First(&session).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *repository) UpdateSession(ctx context.Context, session *models.TableSession) error {
	return r.db.WithContext(ctx).
		Model(&models.TableSession{}).
		Where("id = ?", session.ID).
		Updates(map[string]any{
			"status":            session.Status,
			"locked":            session.Locked,
			"locked_by_user_id": session.LockedByUserID,
			"total_amount":      session.TotalAmount,
			"session_end":       session.SessionEnd,
		}).Error
}

func (r *repository) CreateParticipant(ctx context.Context, participant *models.TableParticipant) error {
	return r.db.WithContext(ctx).Create(participant).Error
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

func (r *repository) FindOrderItemByID(ctx context.Context, id uuid.UUID) (*models.OrderItem, error) {
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

func (r *repository) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) SumAssignedAmounts(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var total int
	err := r.db.WithContext(ctx).
		Model(&models.ItemAssignment{}).
		Select("COALESCE(SUM(item_assignments.assigned_amount), 0)").
		Joins("JOIN order_items ON order_items.id = item_assignments.order_item_id").
		Where("order_items.session_id = ?", sessionID).
		Scan(&total).Error
	return total, err
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
