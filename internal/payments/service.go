package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camilavaldes/splitabill-backend/internal/invoices"
	"github.com/camilavaldes/splitabill-backend/internal/notifications"
	"github.com/camilavaldes/splitabill-backend/internal/wallets"
	"github.com/camilavaldes/splitabill-backend/pkg/db/models"
	"github.com/camilavaldes/splitabill-backend/pkg/enums"
	pkgerrors "github.com/camilavaldes/splitabill-backend/pkg/errors"
	"github.com/camilavaldes/splitabill-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SessionStore is the slice of the sessions service the workflow needs.
type SessionStore interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.TableSession, error)
	Finalize(ctx context.Context, id uuid.UUID) (*models.TableSession, error)
}

// AssignmentStore reads the assignment graph and resolves participants.
type AssignmentStore interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.ItemAssignment, error)
	FindParticipant(ctx context.Context, id uuid.UUID) (*models.TableParticipant, error)
	FindParticipantByUser(ctx context.Context, sessionID, userID uuid.UUID) (*models.TableParticipant, error)
}

// MembershipChecker verifies a payer/payee pair shares the invoicing group.
type MembershipChecker interface {
	CheckBothMembers(ctx context.Context, groupID, userA, userB uuid.UUID) (bool, error)
}

// Announcer pushes workflow outcomes to the session's live connections.
type Announcer interface {
	AnnounceSessionFinalized(ctx context.Context, session *models.TableSession)
	AnnounceInvoiceCreated(ctx context.Context, invoice *models.Invoice)
}

// NoopAnnouncer drops announcements, for tests and offline tooling.
type NoopAnnouncer struct{}

func (NoopAnnouncer) AnnounceSessionFinalized(context.Context, *models.TableSession) {}
func (NoopAnnouncer) AnnounceInvoiceCreated(context.Context, *models.Invoice)        {}

// ServiceParams groups dependencies for the payments service.
type ServiceParams struct {
	Tx          txRunner
	Invoices    invoices.Repository
	Wallets     *wallets.Service
	Sessions    SessionStore
	Assignments AssignmentStore
	Memberships MembershipChecker
	Notifier    notifications.Notifier
	Announcer   Announcer
	Logger      *logger.Logger
}

// Service converts the assignment graph into invoices and reconciles wallet
// balances, finalizing the session once every obligated payer has paid.
type Service struct {
	tx          txRunner
	invoices    invoices.Repository
	wallets     *wallets.Service
	sessions    SessionStore
	assignments AssignmentStore
	memberships MembershipChecker
	notifier    notifications.Notifier
	announcer   Announcer
	logg        *logger.Logger
}

// NewService builds a payments service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Tx == nil {
		return nil, errors.New("tx runner is required")
	}
	if params.Invoices == nil {
		return nil, errors.New("invoices repo is required")
	}
	if params.Wallets == nil {
		return nil, errors.New("wallets service is required")
	}
	if params.Sessions == nil {
		return nil, errors.New("sessions store is required")
	}
	if params.Assignments == nil {
		return nil, errors.New("assignments store is required")
	}
	if params.Memberships == nil {
		return nil, errors.New("membership checker is required")
	}
	if params.Notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if params.Announcer == nil {
		params.Announcer = NoopAnnouncer{}
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		tx:          params.Tx,
		invoices:    params.Invoices,
		wallets:     params.Wallets,
		sessions:    params.Sessions,
		assignments: params.Assignments,
		memberships: params.Memberships,
		notifier:    params.Notifier,
		announcer:   params.Announcer,
		logg:        params.Logger,
	}, nil
}

// MarkPaid transitions a pending invoice to paid and writes the paired wallet
// transactions in one commit. A crash can never leave a lone debit or credit.
func (s *Service) MarkPaid(ctx context.Context, invoiceID uuid.UUID, paidAt *time.Time) (*models.Invoice, error) {
	invoice, err := s.markPaid(ctx, invoiceID, paidAt)
	if err != nil {
		return nil, err
	}
	s.maybeAutoFinalize(ctx, invoice.SessionID)
	return invoice, nil
}

func (s *Service) markPaid(ctx context.Context, invoiceID uuid.UUID, paidAt *time.Time) (*models.Invoice, error) {
	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find invoice")
	}
	if invoice == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	if invoice.Status == enums.InvoiceStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "invoice is already paid")
	}
	if invoice.Status == enums.InvoiceStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "invoice is cancelled")
	}

	when := time.Now().UTC()
	if paidAt != nil {
		when = *paidAt
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		invoice.Status = enums.InvoiceStatusPaid
		invoice.PaidAt = &when
		if err := s.invoices.WithTx(tx).Update(ctx, invoice); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update invoice")
		}
		return s.wallets.ApplyTransfer(ctx, tx, invoice.FromUserID, invoice.ToUserID, invoice.TotalAmount, &invoice.ID)
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"invoice_id": invoice.ID,
		"amount":     invoice.TotalAmount,
	}), "invoice marked paid")
	return invoice, nil
}

// creditorGroup is one creditor participant's slice of the session ledger.
type creditorGroup struct {
	participant *models.TableParticipant
	assignments []models.ItemAssignment
	total       int
}

func (s *Service) groupByCreditor(ctx context.Context, sessionID uuid.UUID) ([]creditorGroup, error) {
	assignments, err := s.assignments.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}
	if len(assignments) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session has no assignments")
	}

	order := []uuid.UUID{}
	byCreditor := make(map[uuid.UUID]*creditorGroup)
	for _, assignment := range assignments {
		group, ok := byCreditor[assignment.CreditorID]
		if !ok {
			participant, err := s.assignments.FindParticipant(ctx, assignment.CreditorID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find creditor participant")
			}
			group = &creditorGroup{participant: participant}
			byCreditor[assignment.CreditorID] = group
			order = append(order, assignment.CreditorID)
		}
		group.assignments = append(group.assignments, assignment)
		group.total += assignment.AssignedAmount
	}

	groups := make([]creditorGroup, 0, len(order))
	for _, creditorID := range order {
		groups = append(groups, *byCreditor[creditorID])
	}
	return groups, nil
}

// SettlementResult reports a settlement batch: the invoices it created and
// the creditors it skipped, keyed by the reason.
type SettlementResult struct {
	PaidInvoices     []models.Invoice     `json:"paid_invoices"`
	PendingInvoices  []models.Invoice     `json:"pending_invoices"`
	SkippedCreditors map[uuid.UUID]string `json:"skipped_creditors,omitempty"`
}

// SettlePerCreditor runs the per-creditor settlement model: each creditor
// pays the recipient their summed share in one immediately-paid invoice, and
// every debtor-bearing assignment becomes a pending debtor-to-creditor
// invoice. A creditor failing the group membership check is skipped, not
// fatal, so the batch keeps its partial progress.
func (s *Service) SettlePerCreditor(ctx context.Context, sessionID, recipientUserID, groupID uuid.UUID) (*SettlementResult, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	groups, err := s.groupByCreditor(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result := &SettlementResult{SkippedCreditors: map[uuid.UUID]string{}}
	for _, group := range groups {
		if group.participant == nil || group.participant.UserID == nil {
			s.logg.Warn(s.logg.WithField(ctx, "session_id", sessionID), "skipping anonymous creditor in settlement")
			continue
		}
		creditorUserID := *group.participant.UserID

		ok, err := s.memberships.CheckBothMembers(ctx, groupID, creditorUserID, recipientUserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			result.SkippedCreditors[group.participant.ID] = "group membership violation"
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"session_id":  sessionID,
				"creditor_id": group.participant.ID,
			}), "creditor skipped: not in group with recipient")
			continue
		}

		assignmentIDs := make([]uuid.UUID, 0, len(group.assignments))
		for _, assignment := range group.assignments {
			assignmentIDs = append(assignmentIDs, assignment.ID)
		}
		settled, err := s.createInvoice(ctx, session, &groupID, creditorUserID, recipientUserID, group.total, assignmentIDs,
			fmt.Sprintf("Table bill settlement (%d items)", len(group.assignments)))
		if err != nil {
			return nil, err
		}
		paid, err := s.markPaid(ctx, settled.ID, nil)
		if err != nil {
			return nil, err
		}
		result.PaidInvoices = append(result.PaidInvoices, *paid)

		for _, assignment := range group.assignments {
			if assignment.DebtorID == nil {
				continue
			}
			debtor, err := s.assignments.FindParticipant(ctx, *assignment.DebtorID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find debtor participant")
			}
			if debtor == nil || debtor.UserID == nil {
				s.logg.Warn(s.logg.WithField(ctx, "assignment_id", assignment.ID), "skipping anonymous debtor in settlement")
				continue
			}
			pending, err := s.createInvoice(ctx, session, &groupID, *debtor.UserID, creditorUserID, assignment.AssignedAmount,
				[]uuid.UUID{assignment.ID}, "Your share of the table bill")
			if err != nil {
				return nil, err
			}
			result.PendingInvoices = append(result.PendingInvoices, *pending)
			s.notifyPending(ctx, pending)
		}
	}

	s.maybeAutoFinalize(ctx, sessionID)
	return result, nil
}

// PayFromWallet runs the wallet-funded model: the caller settles their own
// committed total out of their wallet. Assignments covering other diners
// become immediately-paid caller-to-debtor invoices; self-pay assignments
// carry no counterparty and raise no invoice.
func (s *Service) PayFromWallet(ctx context.Context, sessionID, userID, groupID uuid.UUID) (*SettlementResult, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	participant, err := s.assignments.FindParticipantByUser(ctx, sessionID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find participant")
	}
	if participant == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user is not a participant of this session")
	}

	all, err := s.assignments.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}
	var mine []models.ItemAssignment
	total := 0
	for _, assignment := range all {
		if assignment.CreditorID == participant.ID {
			mine = append(mine, assignment)
			total += assignment.AssignedAmount
		}
	}
	if len(mine) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user has no assignments in this session")
	}

	wallet, err := s.wallets.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet.Balance < total {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance does not cover the assigned total").
			WithDetails(map[string]any{"balance": wallet.Balance, "required": total})
	}

	// Group the caller's pay-for-others assignments by debtor.
	order := []uuid.UUID{}
	byDebtor := make(map[uuid.UUID][]models.ItemAssignment)
	for _, assignment := range mine {
		if assignment.DebtorID == nil {
			continue
		}
		if _, ok := byDebtor[*assignment.DebtorID]; !ok {
			order = append(order, *assignment.DebtorID)
		}
		byDebtor[*assignment.DebtorID] = append(byDebtor[*assignment.DebtorID], assignment)
	}

	result := &SettlementResult{SkippedCreditors: map[uuid.UUID]string{}}
	for _, debtorID := range order {
		debtor, err := s.assignments.FindParticipant(ctx, debtorID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find debtor participant")
		}
		if debtor == nil || debtor.UserID == nil {
			s.logg.Warn(s.logg.WithField(ctx, "debtor_id", debtorID), "skipping anonymous debtor in wallet settlement")
			continue
		}
		ok, err := s.memberships.CheckBothMembers(ctx, groupID, userID, *debtor.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			result.SkippedCreditors[debtorID] = "group membership violation"
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"session_id": sessionID,
				"debtor_id":  debtorID,
			}), "debtor skipped: not in group with payer")
			continue
		}

		groupAssignments := byDebtor[debtorID]
		groupTotal := 0
		assignmentIDs := make([]uuid.UUID, 0, len(groupAssignments))
		for _, assignment := range groupAssignments {
			groupTotal += assignment.AssignedAmount
			assignmentIDs = append(assignmentIDs, assignment.ID)
		}

		invoice, err := s.createInvoice(ctx, session, &groupID, userID, *debtor.UserID, groupTotal, assignmentIDs,
			"Covered from wallet")
		if err != nil {
			return nil, err
		}
		paid, err := s.markPaid(ctx, invoice.ID, nil)
		if err != nil {
			return nil, err
		}
		result.PaidInvoices = append(result.PaidInvoices, *paid)
	}

	s.maybeAutoFinalize(ctx, sessionID)
	return result, nil
}

func (s *Service) createInvoice(ctx context.Context, session *models.TableSession, groupID *uuid.UUID, fromUserID, toUserID uuid.UUID, amount int, assignmentIDs []uuid.UUID, description string) (*models.Invoice, error) {
	invoice := &models.Invoice{
		SessionID:      session.ID,
		GroupID:        groupID,
		FromUserID:     fromUserID,
		ToUserID:       toUserID,
		TotalAmount:    amount,
		Description:    &description,
		Currency:       session.Currency,
		Status:         enums.InvoiceStatusPending,
		FrequencyCycle: enums.ReminderFrequencyNone,
	}
	for _, assignmentID := range assignmentIDs {
		invoice.Items = append(invoice.Items, models.InvoiceItem{ItemAssignmentID: assignmentID})
	}
	if err := s.invoices.Create(ctx, invoice); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
	}
	s.announcer.AnnounceInvoiceCreated(ctx, invoice)
	return invoice, nil
}

func (s *Service) notifyPending(ctx context.Context, invoice *models.Invoice) {
	text := fmt.Sprintf("You owe %d %s for your share of the table bill", invoice.TotalAmount, invoice.Currency)
	if err := s.notifier.Notify(ctx, invoice.FromUserID, text); err != nil {
		s.logg.Error(ctx, "pending invoice notification failed", err)
	}
}

// maybeAutoFinalize closes the session once every creditor with assignments
// has a paid invoice as payer. Failures are logged and swallowed so they can
// never fail the payment that triggered the check.
func (s *Service) maybeAutoFinalize(ctx context.Context, sessionID uuid.UUID) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		s.logg.Error(ctx, "auto-finalize: load session failed", err)
		return
	}
	if session.Status == enums.SessionStatusClosed {
		return
	}

	assignments, err := s.assignments.ListBySession(ctx, sessionID)
	if err != nil {
		s.logg.Error(ctx, "auto-finalize: list assignments failed", err)
		return
	}
	// Everyone named by an assignment eventually pays someone: creditors
	// settle with the recipient, debtors repay their creditor.
	obligated := make(map[uuid.UUID]struct{})
	for _, assignment := range assignments {
		participantIDs := []uuid.UUID{assignment.CreditorID}
		if assignment.DebtorID != nil {
			participantIDs = append(participantIDs, *assignment.DebtorID)
		}
		for _, participantID := range participantIDs {
			participant, err := s.assignments.FindParticipant(ctx, participantID)
			if err != nil {
				s.logg.Error(ctx, "auto-finalize: find participant failed", err)
				return
			}
			if participant == nil || participant.UserID == nil {
				// An anonymous party can never be matched to a paid invoice.
				return
			}
			obligated[*participant.UserID] = struct{}{}
		}
	}
	if len(obligated) == 0 {
		return
	}

	payers, err := s.invoices.ListPaidPayersBySession(ctx, sessionID)
	if err != nil {
		s.logg.Error(ctx, "auto-finalize: list paid payers failed", err)
		return
	}
	paid := make(map[uuid.UUID]struct{}, len(payers))
	for _, payer := range payers {
		paid[payer] = struct{}{}
	}
	for user := range obligated {
		if _, ok := paid[user]; !ok {
			return
		}
	}

	finalized, err := s.sessions.Finalize(ctx, sessionID)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "session_id", sessionID), "auto-finalize failed", err)
		return
	}
	s.announcer.AnnounceSessionFinalized(ctx, finalized)
}
