package assignments

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/camilavaldes/splitabill-backend/pkg/db/models"
	pkgerrors "github.com/camilavaldes/splitabill-backend/pkg/errors"
	"github.com/camilavaldes/splitabill-backend/pkg/logger"
)

// SessionGate is the slice of the sessions service the engine needs: load a
// session and reject mutation while it is locked or closed.
type SessionGate interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.TableSession, error)
	EnsureUnlocked(ctx context.Context, id uuid.UUID) (*models.TableSession, error)
}

// ServiceParams groups dependencies for the assignments service.
type ServiceParams struct {
	Repo     Repository
	Sessions SessionGate
	Logger   *logger.Logger
}

// Service maintains the per-item assignment ledger. Every mutation keeps all
// assignments on one order item at the same equal share of its unit price.
type Service struct {
	repo     Repository
	sessions SessionGate
	logg     *logger.Logger
}

// NewService builds an assignments service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Sessions == nil {
		return nil, errors.New("sessions gate is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{repo: params.Repo, sessions: params.Sessions, logg: params.Logger}, nil
}

// Share returns the equal per-assignment share of unitPrice for an item that
// currently carries count assignments, after applying delta (+1 when adding,
// -1 when removing). A count that would reach zero returns the full unit
// price so a solo payer owes the whole item. Remainders from the integer
// division are dropped, not redistributed.
func Share(unitPrice, count, delta int) int {
	n := count + delta
	if n < 1 {
		return unitPrice
	}
	return unitPrice / n
}

// AssignInput identifies the item and the participants of a new assignment.
// CreditorID and DebtorID are participant ids; a nil DebtorID means the
// creditor pays for themself.
type AssignInput struct {
	OrderItemID uuid.UUID
	CreditorID  uuid.UUID
	DebtorID    *uuid.UUID
}

// AssignResult reports everything one assign mutated, in emission order:
// assignments evicted because the new creditor was a debtor on the item,
// the rewritten equal shares, and the created assignment.
type AssignResult struct {
	EvictedIDs []uuid.UUID
	Updated    []models.ItemAssignment
	Created    models.ItemAssignment
}

// Assign adds an assignment to an order item and rewrites every assignment on
// that item to the new equal share.
func (s *Service) Assign(ctx context.Context, sessionID uuid.UUID, input AssignInput) (*AssignResult, error) {
	if _, err := s.sessions.EnsureUnlocked(ctx, sessionID); err != nil {
		return nil, err
	}

	item, err := s.repo.FindOrderItem(ctx, input.OrderItemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find order item")
	}
	if item == nil || item.SessionID != sessionID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found in this session")
	}

	creditor, err := s.repo.FindParticipant(ctx, input.CreditorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find creditor participant")
	}
	if creditor == nil || creditor.SessionID != sessionID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "creditor participant not found")
	}
	if input.DebtorID != nil {
		debtor, err := s.repo.FindParticipant(ctx, *input.DebtorID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find debtor participant")
		}
		if debtor == nil || debtor.SessionID != sessionID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "debtor participant not found")
		}
	}

	existing, err := s.repo.ListByOrderItem(ctx, item.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}

	// A participant cannot owe and be owed on the same item: any assignment
	// naming the new creditor as debtor goes first.
	result := &AssignResult{}
	remaining := 0
	for _, assignment := range existing {
		if assignment.DebtorID != nil && *assignment.DebtorID == input.CreditorID {
			if err := s.repo.Delete(ctx, assignment.ID); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete conflicting assignment")
			}
			result.EvictedIDs = append(result.EvictedIDs, assignment.ID)
			continue
		}
		remaining++
	}

	share := Share(item.UnitPrice, remaining, +1)

	created := models.ItemAssignment{
		OrderItemID:    item.ID,
		CreditorID:     input.CreditorID,
		DebtorID:       input.DebtorID,
		AssignedAmount: share,
	}
	if err := s.repo.Create(ctx, &created); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
	}
	if err := s.repo.UpdateAmountsForItem(ctx, item.ID, share); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rewrite assignment shares")
	}

	updated, err := s.repo.ListByOrderItem(ctx, item.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}
	result.Updated = updated
	created.AssignedAmount = share
	result.Created = created
	return result, nil
}

// UnassignResult reports the deleted assignment and the rewritten shares on
// the surviving assignments of the same item.
type UnassignResult struct {
	RemovedID uuid.UUID
	Updated   []models.ItemAssignment
}

// Unassign deletes one assignment and rewrites the survivors on the item to
// the new equal share. The share is computed from the count before the delete
// so a last-assignment removal never divides by zero.
func (s *Service) Unassign(ctx context.Context, sessionID, assignmentID uuid.UUID) (*UnassignResult, error) {
	if _, err := s.sessions.EnsureUnlocked(ctx, sessionID); err != nil {
		return nil, err
	}

	assignment, err := s.repo.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find assignment")
	}
	if assignment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
	}
	item, err := s.repo.FindOrderItem(ctx, assignment.OrderItemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find order item")
	}
	if item == nil || item.SessionID != sessionID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found in this session")
	}

	existing, err := s.repo.ListByOrderItem(ctx, item.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}
	share := Share(item.UnitPrice, len(existing), -1)

	if err := s.repo.Delete(ctx, assignmentID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete assignment")
	}
	if err := s.repo.UpdateAmountsForItem(ctx, item.ID, share); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rewrite assignment shares")
	}

	updated, err := s.repo.ListByOrderItem(ctx, item.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}
	return &UnassignResult{RemovedID: assignmentID, Updated: updated}, nil
}

// EqualSplitResult is the convenience even-split preview. Nothing is
// persisted; the integer division may drop minor units.
type EqualSplitResult struct {
	TotalAmount      int `json:"total_amount"`
	ParticipantCount int `json:"participant_count"`
	AmountPerPerson  int `json:"amount_per_person"`
}

// EqualSplit divides the bill total evenly across all participants.
func (s *Service) EqualSplit(ctx context.Context, sessionID uuid.UUID) (*EqualSplitResult, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	total := 0
	if session.TotalAmount != nil {
		total = *session.TotalAmount
	}
	if total == 0 {
		items, err := s.repo.ListOrderItems(ctx, sessionID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
		}
		for _, item := range items {
			total += item.UnitPrice
		}
	}

	participants, err := s.repo.ListParticipants(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list participants")
	}
	if len(participants) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no participants in session")
	}

	return &EqualSplitResult{
		TotalAmount:      total,
		ParticipantCount: len(participants),
		AmountPerPerson:  total / len(participants),
	}, nil
}

// ListForSession lists every assignment in the session.
func (s *Service) ListForSession(ctx context.Context, sessionID uuid.UUID) ([]models.ItemAssignment, error) {
	assignments, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}
	return assignments, nil
}

// Summary aggregates assigned amounts by creditor participant: how much each
// payer is currently committed to pay across the whole session.
func (s *Service) Summary(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]int, error) {
	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	assignments, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}
	summary := make(map[uuid.UUID]int)
	for _, assignment := range assignments {
		summary[assignment.CreditorID] += assignment.AssignedAmount
	}
	return summary, nil
}

// ValidationResult reports bill coverage. AllAssigned holds when every item
// carries at least one assignment and the assigned total covers the billed
// total.
type ValidationResult struct {
	AllAssigned     bool        `json:"all_assigned"`
	UnassignedItems []uuid.UUID `json:"unassigned_items"`
	TotalAssigned   int         `json:"total_assigned"`
	TotalBilled     int         `json:"total_billed"`
}

// Validate computes coverage of the bill by the current assignments. The
// caller locks the session with this result; validation itself does not
// mutate.
func (s *Service) Validate(ctx context.Context, sessionID uuid.UUID) (*ValidationResult, error) {
	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListOrderItems(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}
	assignments, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}

	covered := make(map[uuid.UUID]struct{}, len(assignments))
	totalAssigned := 0
	for _, assignment := range assignments {
		covered[assignment.OrderItemID] = struct{}{}
		totalAssigned += assignment.AssignedAmount
	}

	result := &ValidationResult{
		UnassignedItems: []uuid.UUID{},
		TotalAssigned:   totalAssigned,
	}
	for _, item := range items {
		result.TotalBilled += item.UnitPrice
		if _, ok := covered[item.ID]; !ok {
			result.UnassignedItems = append(result.UnassignedItems, item.ID)
		}
	}
	result.AllAssigned = len(result.UnassignedItems) == 0 && totalAssigned >= result.TotalBilled
	return result, nil
}

// SelectableParticipants returns the user ids that may still be picked as
// debtors on the item by the requesting user: identified participants not
// already a creditor or debtor on the item, excluding the requester.
func (s *Service) SelectableParticipants(ctx context.Context, sessionID, orderItemID, userID uuid.UUID) ([]uuid.UUID, error) {
	participants, err := s.repo.ListParticipants(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list participants")
	}
	assignments, err := s.repo.ListByOrderItem(ctx, orderItemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}

	excluded := make(map[uuid.UUID]struct{})
	for _, assignment := range assignments {
		excluded[assignment.CreditorID] = struct{}{}
		if assignment.DebtorID != nil {
			excluded[*assignment.DebtorID] = struct{}{}
		}
	}
	requester, err := s.repo.FindParticipantByUser(ctx, sessionID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find requesting participant")
	}
	if requester != nil {
		excluded[requester.ID] = struct{}{}
	}

	selectable := []uuid.UUID{}
	for _, participant := range participants {
		if participant.UserID == nil {
			continue
		}
		if _, skip := excluded[participant.ID]; skip {
			continue
		}
		selectable = append(selectable, *participant.UserID)
	}
	return selectable, nil
}

// PayingForParticipants returns the user ids the requesting user is currently
// covering on the item: debtors of assignments where the requester is the
// creditor.
func (s *Service) PayingForParticipants(ctx context.Context, sessionID, orderItemID, userID uuid.UUID) ([]uuid.UUID, error) {
	requester, err := s.repo.FindParticipantByUser(ctx, sessionID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find requesting participant")
	}
	if requester == nil {
		return []uuid.UUID{}, nil
	}

	assignments, err := s.repo.ListByOrderItem(ctx, orderItemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}

	seen := make(map[uuid.UUID]struct{})
	paying := []uuid.UUID{}
	for _, assignment := range assignments {
		if assignment.CreditorID != requester.ID || assignment.DebtorID == nil {
			continue
		}
		if _, dup := seen[*assignment.DebtorID]; dup {
			continue
		}
		seen[*assignment.DebtorID] = struct{}{}
		debtor, err := s.repo.FindParticipant(ctx, *assignment.DebtorID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find debtor participant")
		}
		if debtor != nil && debtor.UserID != nil {
			paying = append(paying, *debtor.UserID)
		}
	}
	return paying, nil
}
