package settlements

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

// InvoiceMarker is the slice of the payment workflow a settlement needs:
// discharge the referenced invoice through the wallet ledger.
type InvoiceMarker interface {
	MarkPaid(ctx context.Context, invoiceID uuid.UUID, paidAt *time.Time) (*models.Invoice, error)
}

// InvoiceReader looks up the invoice a settlement claims to discharge.
type InvoiceReader interface {
	GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
}

// ServiceParams groups dependencies for the settlements service.
type ServiceParams struct {
	Repo            Repository
	Payments        InvoiceMarker
	Invoices        InvoiceReader
	Logger          *logger.Logger
	DefaultCurrency enums.Currency
}

// Service records payment events made outside the realtime flow: bank
// transfers, cash handovers, or in-app wallet discharges of an invoice.
type Service struct {
	repo     Repository
	payments InvoiceMarker
	invoices InvoiceReader
	logg     *logger.Logger
	currency enums.Currency
}

// NewService builds a settlements service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Payments == nil {
		return nil, errors.New("payments marker is required")
	}
	if params.Invoices == nil {
		return nil, errors.New("invoice reader is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DefaultCurrency == "" {
		params.DefaultCurrency = enums.CurrencyCLP
	}
	return &Service{
		repo:     params.Repo,
		payments: params.Payments,
		invoices: params.Invoices,
		logg:     params.Logger,
		currency: params.DefaultCurrency,
	}, nil
}

// RecordInput describes one settlement. InvoiceID is optional: settlements
// without one record out-of-app payments for auditing only.
type RecordInput struct {
	InvoiceID      *uuid.UUID
	FromUserID     uuid.UUID
	ToUserID       uuid.UUID
	Amount         int
	Currency       enums.Currency
	SettlementDate *time.Time
	PaymentMethod  *string
}

// Record persists the settlement and, when it references an invoice, marks
// that invoice paid through the wallet ledger. The invoice discharge runs
// first so a ledger failure never leaves an orphaned settlement row.
func (s *Service) Record(ctx context.Context, input RecordInput) (*models.Settlement, error) {
	if input.FromUserID == uuid.Nil || input.ToUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from_user_id and to_user_id are required")
	}
	if input.FromUserID == input.ToUserID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot settle with yourself")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	currency := input.Currency
	if currency == "" {
		currency = s.currency
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}

	settledAt := time.Now().UTC()
	if input.SettlementDate != nil {
		settledAt = input.SettlementDate.UTC()
	}

	if input.InvoiceID != nil {
		invoice, err := s.invoices.GetInvoice(ctx, *input.InvoiceID)
		if err != nil {
			return nil, err
		}
		if invoice.FromUserID != input.FromUserID || invoice.ToUserID != input.ToUserID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "settlement parties do not match the invoice")
		}
		if _, err := s.payments.MarkPaid(ctx, *input.InvoiceID, &settledAt); err != nil {
			return nil, err
		}
	}

	settlement := &models.Settlement{
		InvoiceID:      input.InvoiceID,
		FromUserID:     input.FromUserID,
		ToUserID:       input.ToUserID,
		Amount:         input.Amount,
		Currency:       currency,
		SettlementDate: settledAt,
		PaymentMethod:  input.PaymentMethod,
	}
	if err := s.repo.Create(ctx, settlement); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create settlement")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"settlement_id": settlement.ID,
		"from_user_id":  input.FromUserID,
		"to_user_id":    input.ToUserID,
		"amount":        input.Amount,
	}), "settlement recorded")
	return settlement, nil
}

// GetSettlement fetches one settlement by id.
func (s *Service) GetSettlement(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	settlement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find settlement")
	}
	if settlement == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "settlement not found")
	}
	return settlement, nil
}

// ListSettlements lists settlements matching the query, newest first.
func (s *Service) ListSettlements(ctx context.Context, query ListQuery) ([]models.Settlement, error) {
	settlements, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list settlements")
	}
	return settlements, nil
}
