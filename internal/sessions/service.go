package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/camilavaldes/splitabill-backend/pkg/db/models"
	"github.com/camilavaldes/splitabill-backend/pkg/enums"
	pkgerrors "github.com/camilavaldes/splitabill-backend/pkg/errors"
	"github.com/camilavaldes/splitabill-backend/pkg/logger"
)

// ServiceParams groups dependencies for the sessions service.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

// Service owns the table session lifecycle: creation, participant membership,
// and the active -> locked -> active -> closed state machine.
type Service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds a sessions service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{repo: params.Repo, logg: params.Logger}, nil
}

// CreateSessionInput carries everything needed to open a session, including
// the initial order items off the table's ticket.
type CreateSessionInput struct {
	RestaurantRUT string
	TableID       uuid.UUID
	Currency      enums.Currency
	Items         []OrderItemInput
}

// OrderItemInput is one billed line at session creation time.
type OrderItemInput struct {
	ItemName  string
	UnitPrice int
}

// CreateSession opens a session in the active state with its initial items.
func (s *Service) CreateSession(ctx context.Context, input CreateSessionInput) (*models.TableSession, error) {
	if input.RestaurantRUT == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant_rut is required")
	}
	if input.TableID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "table_id is required")
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyCLP
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}
	for _, item := range input.Items {
		if item.ItemName == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item_name is required")
		}
		if item.UnitPrice < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit_price must not be negative")
		}
	}

	session := &models.TableSession{
		RestaurantRUT: input.RestaurantRUT,
		TableID:       input.TableID,
		Status:        enums.SessionStatusActive,
		Currency:      currency,
	}
	for _, item := range input.Items {
		session.OrderItems = append(session.OrderItems, models.OrderItem{
			ItemName:  item.ItemName,
			UnitPrice: item.UnitPrice,
		})
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session")
	}
	return session, nil
}

// GetSession loads a session with its participants and items.
func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*models.TableSession, error) {
	session, err := s.repo.FindSessionByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find session")
	}
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
	}
	return session, nil
}

// ListParticipants lists the session's participants in join order.
func (s *Service) ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]models.TableParticipant, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	participants, err := s.repo.ListParticipants(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list participants")
	}
	return participants, nil
}

// ListOrderItems lists the session's order items.
func (s *Service) ListOrderItems(ctx context.Context, sessionID uuid.UUID) ([]models.OrderItem, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListOrderItems(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}
	return items, nil
}

// GetUser resolves a user by id. A nil result without error means the id is
// unknown, which callers treat as an anonymous party.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindUser(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find user")
	}
	return user, nil
}

// JoinResult reports the participant a join resolved to and whether the row
// was created by this call.
type JoinResult struct {
	Participant *models.TableParticipant
	Created     bool
}

// Join attaches a user (or an anonymous guest when userID is nil) to the
// session. An identified user joins at most once per session; rejoining
// returns the existing participant.
func (s *Service) Join(ctx context.Context, sessionID uuid.UUID, userID *uuid.UUID) (*JoinResult, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == enums.SessionStatusClosed {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "session is closed")
	}

	if userID != nil {
		existing, err := s.repo.FindParticipantByUser(ctx, sessionID, *userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find participant")
		}
		if existing != nil {
			return &JoinResult{Participant: existing, Created: false}, nil
		}
	}

	participant := &models.TableParticipant{
		SessionID: sessionID,
		UserID:    userID,
	}
	if err := s.repo.CreateParticipant(ctx, participant); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create participant")
	}
	return &JoinResult{Participant: participant, Created: true}, nil
}

// EnsureUnlocked fails when assignment mutation is frozen. The lock is
// session-wide: it rejects every actor, including the one who locked.
func (s *Service) EnsureUnlocked(ctx context.Context, sessionID uuid.UUID) (*models.TableSession, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Locked {
		return nil, pkgerrors.New(pkgerrors.CodeSessionLocked, "session is locked")
	}
	if session.Status == enums.SessionStatusClosed {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "session is closed")
	}
	return session, nil
}

// Lock freezes assignment mutation and records who holds the lock. Callers
// reach this only through assignment validation.
func (s *Service) Lock(ctx context.Context, sessionID, actingUserID uuid.UUID) (*models.TableSession, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == enums.SessionStatusClosed {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "session is closed")
	}
	session.Locked = true
	session.LockedByUserID = &actingUserID
	if err := s.repo.UpdateSession(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock session")
	}
	return session, nil
}

// Unlock releases the lock. Only the participant who locked may unlock.
func (s *Service) Unlock(ctx context.Context, sessionID, actingUserID uuid.UUID) (*models.TableSession, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Locked {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "session is not locked")
	}
	if session.LockedByUserID == nil || *session.LockedByUserID != actingUserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the locking participant may unlock")
	}
	session.Locked = false
	session.LockedByUserID = nil
	if err := s.repo.UpdateSession(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unlock session")
	}
	return session, nil
}

// Finalize sums every assignment in the session into total_amount, closes the
// session, and stamps session_end. Closed is terminal.
func (s *Service) Finalize(ctx context.Context, sessionID uuid.UUID) (*models.TableSession, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == enums.SessionStatusClosed {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "session already closed")
	}
	total, err := s.repo.SumAssignedAmounts(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum assigned amounts")
	}
	now := time.Now().UTC()
	session.TotalAmount = &total
	session.Status = enums.SessionStatusClosed
	session.SessionEnd = &now
	session.Locked = false
	session.LockedByUserID = nil
	if err := s.repo.UpdateSession(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize session")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"session_id":   sessionID,
		"total_amount": total,
	}), "session finalized")
	return session, nil
}

// Close ends the session without computing a bill total. Used by the
// restaurant-side close endpoint when a table leaves without settling in-app.
func (s *Service) Close(ctx context.Context, sessionID uuid.UUID) (*models.TableSession, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == enums.SessionStatusClosed {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "session already closed")
	}
	now := time.Now().UTC()
	session.Status = enums.SessionStatusClosed
	session.SessionEnd = &now
	session.Locked = false
	session.LockedByUserID = nil
	if err := s.repo.UpdateSession(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close session")
	}
	return session, nil
}
