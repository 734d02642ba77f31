package invoices

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/camilavaldes/splitabill-backend/pkg/db/models"
	"github.com/camilavaldes/splitabill-backend/pkg/enums"
	pkgerrors "github.com/camilavaldes/splitabill-backend/pkg/errors"
	"github.com/camilavaldes/splitabill-backend/pkg/logger"
	"github.com/camilavaldes/splitabill-backend/pkg/types"
)

type fakeRepo struct {
	invoices []*models.Invoice
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	copied := *invoice
	f.invoices = append(f.invoices, &copied)
	return nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	for _, invoice := range f.invoices {
		if invoice.ID == id {
			copied := *invoice
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) Update(ctx context.Context, invoice *models.Invoice) error {
	for _, stored := range f.invoices {
		if stored.ID == invoice.ID {
			*stored = *invoice
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepo) List(ctx context.Context, query ListQuery) ([]models.Invoice, error) {
	var out []models.Invoice
	for _, invoice := range f.invoices {
		if query.SessionID != nil && invoice.SessionID != *query.SessionID {
			continue
		}
		if query.Status != nil && invoice.Status != *query.Status {
			continue
		}
		out = append(out, *invoice)
	}
	return out, nil
}

func (f *fakeRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error) {
	var out []models.Invoice
	for _, invoice := range f.invoices {
		if invoice.FromUserID == userID || invoice.ToUserID == userID {
			out = append(out, *invoice)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListPendingByPayer(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error) {
	var out []models.Invoice
	for _, invoice := range f.invoices {
		if invoice.FromUserID == userID && invoice.Status == enums.InvoiceStatusPending {
			out = append(out, *invoice)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListPaidPayersBySession(ctx context.Context, sessionID uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

type fakeMemberships struct {
	shared bool
}

func (f *fakeMemberships) CheckBothMembers(ctx context.Context, groupID, userA, userB uuid.UUID) (bool, error) {
	return f.shared, nil
}

func newTestService(t *testing.T, repo Repository, memberships MembershipChecker) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	svc, err := NewService(ServiceParams{Repo: repo, Memberships: memberships, Logger: logg})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func baseInput() CreateInvoiceInput {
	return CreateInvoiceInput{
		SessionID:   uuid.New(),
		FromUserID:  uuid.New(),
		ToUserID:    uuid.New(),
		TotalAmount: 12000,
	}
}

func TestCreateInvoiceDefaults(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, repo, &fakeMemberships{shared: true})

	input := baseInput()
	input.AssignmentIDs = []uuid.UUID{uuid.New(), uuid.New()}
	invoice, err := svc.CreateInvoice(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if invoice.Status != enums.InvoiceStatusPending {
		t.Fatalf("status = %s, want pending", invoice.Status)
	}
	if invoice.Currency != enums.CurrencyCLP {
		t.Fatalf("currency = %s, want CLP", invoice.Currency)
	}
	if invoice.FrequencyCycle != enums.ReminderFrequencyNone {
		t.Fatalf("frequency = %s, want none", invoice.FrequencyCycle)
	}
	if len(invoice.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(invoice.Items))
	}
}

func TestCreateInvoiceValidation(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakeMemberships{shared: true})

	input := baseInput()
	input.TotalAmount = 0
	if _, err := svc.CreateInvoice(context.Background(), input); err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("zero amount error = %v, want validation", err)
	}

	input = baseInput()
	input.Currency = enums.Currency("DOGE")
	if _, err := svc.CreateInvoice(context.Background(), input); err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("bad currency error = %v, want validation", err)
	}
}

func TestCreateInvoiceEnforcesGroupMembership(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakeMemberships{shared: false})

	input := baseInput()
	groupID := uuid.New()
	input.GroupID = &groupID
	_, err := svc.CreateInvoice(context.Background(), input)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeGroupMembership {
		t.Fatalf("error = %v, want group membership violation", err)
	}
}

func TestUpdateInvoicePartialFields(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, repo, &fakeMemberships{shared: true})

	desc := "cena del viernes"
	due := time.Now().UTC().Add(72 * time.Hour)
	input := baseInput()
	input.Description = &desc
	input.DueDate = &due
	created, err := svc.CreateInvoice(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	// Omitted fields stay put.
	updated, err := svc.UpdateInvoice(context.Background(), created.ID, UpdateInvoiceInput{
		FrequencyCycle: types.NewOptional(enums.ReminderFrequencyWeekly),
	})
	if err != nil {
		t.Fatalf("UpdateInvoice: %v", err)
	}
	if updated.FrequencyCycle != enums.ReminderFrequencyWeekly {
		t.Fatalf("frequency = %s, want weekly", updated.FrequencyCycle)
	}
	if updated.Description == nil || *updated.Description != desc {
		t.Fatal("omitted description was not preserved")
	}
	if updated.DueDate == nil {
		t.Fatal("omitted due date was not preserved")
	}

	// Explicit null clears.
	updated, err = svc.UpdateInvoice(context.Background(), created.ID, UpdateInvoiceInput{
		Description: types.NullOptional[string](),
		DueDate:     types.NullOptional[time.Time](),
	})
	if err != nil {
		t.Fatalf("UpdateInvoice null: %v", err)
	}
	if updated.Description != nil {
		t.Fatal("explicit null did not clear description")
	}
	if updated.DueDate != nil {
		t.Fatal("explicit null did not clear due date")
	}
}

func TestUpdateInvoiceNullFrequencyResetsToNone(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, repo, &fakeMemberships{shared: true})

	input := baseInput()
	input.FrequencyCycle = enums.ReminderFrequencyDaily
	created, err := svc.CreateInvoice(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	updated, err := svc.UpdateInvoice(context.Background(), created.ID, UpdateInvoiceInput{
		FrequencyCycle: types.NullOptional[enums.ReminderFrequency](),
	})
	if err != nil {
		t.Fatalf("UpdateInvoice: %v", err)
	}
	if updated.FrequencyCycle != enums.ReminderFrequencyNone {
		t.Fatalf("frequency = %s, want none", updated.FrequencyCycle)
	}
}

func TestUpdateInvoiceGroupMembershipChecked(t *testing.T) {
	repo := &fakeRepo{}
	memberships := &fakeMemberships{shared: true}
	svc := newTestService(t, repo, memberships)

	created, err := svc.CreateInvoice(context.Background(), baseInput())
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	memberships.shared = false
	_, err = svc.UpdateInvoice(context.Background(), created.ID, UpdateInvoiceInput{
		GroupID: types.NewOptional(uuid.New()),
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeGroupMembership {
		t.Fatalf("error = %v, want group membership violation", err)
	}

	// Clearing the group needs no check.
	updated, err := svc.UpdateInvoice(context.Background(), created.ID, UpdateInvoiceInput{
		GroupID: types.NullOptional[uuid.UUID](),
	})
	if err != nil {
		t.Fatalf("UpdateInvoice clear group: %v", err)
	}
	if updated.GroupID != nil {
		t.Fatal("explicit null did not clear group")
	}
}

func TestUpdateInvoiceFrozenOncePaid(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, repo, &fakeMemberships{shared: true})

	created, err := svc.CreateInvoice(context.Background(), baseInput())
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	repo.invoices[0].Status = enums.InvoiceStatusPaid

	_, err = svc.UpdateInvoice(context.Background(), created.ID, UpdateInvoiceInput{
		Description: types.NewOptional("late edit"),
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("error = %v, want conflict", err)
	}
}

func TestListPendingForUserFiltersPaid(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, repo, &fakeMemberships{shared: true})
	payer := uuid.New()

	input := baseInput()
	input.FromUserID = payer
	if _, err := svc.CreateInvoice(context.Background(), input); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	input = baseInput()
	input.FromUserID = payer
	paid, err := svc.CreateInvoice(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	for _, stored := range repo.invoices {
		if stored.ID == paid.ID {
			stored.Status = enums.InvoiceStatusPaid
		}
	}

	pending, err := svc.ListPendingForUser(context.Background(), payer)
	if err != nil {
		t.Fatalf("ListPendingForUser: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
}
