package invoices

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/camilavaldes/splitabill-backend/pkg/db/models"
	"github.com/camilavaldes/splitabill-backend/pkg/enums"
	pkgerrors "github.com/camilavaldes/splitabill-backend/pkg/errors"
	"github.com/camilavaldes/splitabill-backend/pkg/logger"
	"github.com/camilavaldes/splitabill-backend/pkg/types"
)

// MembershipChecker verifies two users share a group before an invoice may be
// raised between them under that group.
type MembershipChecker interface {
	CheckBothMembers(ctx context.Context, groupID, userA, userB uuid.UUID) (bool, error)
}

// ServiceParams groups dependencies for the invoices service.
type ServiceParams struct {
	Repo        Repository
	Memberships MembershipChecker
	Logger      *logger.Logger
}

// Service owns invoice records. Payment-side state transitions live in the
// payments workflow; this service covers creation, queries, and the partial
// update surface.
type Service struct {
	repo        Repository
	memberships MembershipChecker
	logg        *logger.Logger
}

// NewService builds an invoices service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Memberships == nil {
		return nil, errors.New("membership checker is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{repo: params.Repo, memberships: params.Memberships, logg: params.Logger}, nil
}

// CreateInvoiceInput carries a new invoice and the assignments backing it.
type CreateInvoiceInput struct {
	SessionID      uuid.UUID
	GroupID        *uuid.UUID
	FromUserID     uuid.UUID
	ToUserID       uuid.UUID
	TotalAmount    int
	Description    *string
	Currency       enums.Currency
	DueDate        *time.Time
	FrequencyCycle enums.ReminderFrequency
	AssignmentIDs  []uuid.UUID
}

// CreateInvoice validates the payer/payee pair against the group, if one is
// named, and persists the invoice with its assignment links.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*models.Invoice, error) {
	if input.SessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session_id is required")
	}
	if input.FromUserID == uuid.Nil || input.ToUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from_user_id and to_user_id are required")
	}
	if input.TotalAmount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total_amount must be positive")
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyCLP
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}
	frequency := input.FrequencyCycle
	if frequency == "" {
		frequency = enums.ReminderFrequencyNone
	}
	if !frequency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported frequency_cycle")
	}

	if input.GroupID != nil {
		ok, err := s.memberships.CheckBothMembers(ctx, *input.GroupID, input.FromUserID, input.ToUserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeGroupMembership, "payer and payee do not share the group")
		}
	}

	invoice := &models.Invoice{
		SessionID:      input.SessionID,
		GroupID:        input.GroupID,
		FromUserID:     input.FromUserID,
		ToUserID:       input.ToUserID,
		TotalAmount:    input.TotalAmount,
		Description:    input.Description,
		Currency:       currency,
		Status:         enums.InvoiceStatusPending,
		DueDate:        input.DueDate,
		FrequencyCycle: frequency,
	}
	for _, assignmentID := range input.AssignmentIDs {
		invoice.Items = append(invoice.Items, models.InvoiceItem{ItemAssignmentID: assignmentID})
	}
	if err := s.repo.Create(ctx, invoice); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
	}
	return invoice, nil
}

// GetInvoice loads one invoice with its assignment links.
func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find invoice")
	}
	if invoice == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	return invoice, nil
}

// ListInvoices lists invoices matching the filters.
func (s *Service) ListInvoices(ctx context.Context, query ListQuery) ([]models.Invoice, error) {
	invoices, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices")
	}
	return invoices, nil
}

// ListForUser lists the invoices a user appears on, either side.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error) {
	invoices, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices")
	}
	return invoices, nil
}

// ListPendingForUser lists what a user still owes.
func (s *Service) ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error) {
	invoices, err := s.repo.ListPendingByPayer(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending invoices")
	}
	return invoices, nil
}

// UpdateInvoiceInput is the partial-update surface. Each field distinguishes
// omitted (leave alone), explicit null (clear), and a value.
type UpdateInvoiceInput struct {
	GroupID        types.Optional[uuid.UUID]
	Description    types.Optional[string]
	DueDate        types.Optional[time.Time]
	FrequencyCycle types.Optional[enums.ReminderFrequency]
}

// UpdateInvoice applies a partial update. Paid and cancelled invoices are
// frozen.
func (s *Service) UpdateInvoice(ctx context.Context, id uuid.UUID, input UpdateInvoiceInput) (*models.Invoice, error) {
	invoice, err := s.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status != enums.InvoiceStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "only pending invoices may be updated")
	}

	if input.GroupID.Set {
		if input.GroupID.Value != nil {
			ok, err := s.memberships.CheckBothMembers(ctx, *input.GroupID.Value, invoice.FromUserID, invoice.ToUserID)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, pkgerrors.New(pkgerrors.CodeGroupMembership, "payer and payee do not share the group")
			}
		}
		invoice.GroupID = input.GroupID.Value
	}
	if input.Description.Set {
		invoice.Description = input.Description.Value
	}
	if input.DueDate.Set {
		invoice.DueDate = input.DueDate.Value
	}
	if input.FrequencyCycle.Set {
		frequency := enums.ReminderFrequencyNone
		if input.FrequencyCycle.Value != nil {
			frequency = *input.FrequencyCycle.Value
		}
		if !frequency.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported frequency_cycle")
		}
		invoice.FrequencyCycle = frequency
	}

	if err := s.repo.Update(ctx, invoice); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update invoice")
	}
	return invoice, nil
}
