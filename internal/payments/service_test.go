package payments

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/camilavaldes/splitabill-backend/internal/invoices"
	"github.com/camilavaldes/splitabill-backend/internal/wallets"
	"github.com/camilavaldes/splitabill-backend/pkg/db/models"
	"github.com/camilavaldes/splitabill-backend/pkg/enums"
	pkgerrors "github.com/camilavaldes/splitabill-backend/pkg/errors"
	"github.com/camilavaldes/splitabill-backend/pkg/logger"
	"github.com/camilavaldes/splitabill-backend/pkg/pagination"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeInvoiceRepo struct {
	invoices []*models.Invoice
}

func (f *fakeInvoiceRepo) WithTx(tx *gorm.DB) invoices.Repository { return f }

func (f *fakeInvoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	copied := *invoice
	f.invoices = append(f.invoices, &copied)
	return nil
}

func (f *fakeInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	for _, invoice := range f.invoices {
		if invoice.ID == id {
			copied := *invoice
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeInvoiceRepo) Update(ctx context.Context, invoice *models.Invoice) error {
	for _, stored := range f.invoices {
		if stored.ID == invoice.ID {
			stored.Status = invoice.Status
			stored.PaidAt = invoice.PaidAt
			stored.GroupID = invoice.GroupID
			stored.Description = invoice.Description
			stored.DueDate = invoice.DueDate
			stored.FrequencyCycle = invoice.FrequencyCycle
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeInvoiceRepo) List(ctx context.Context, query invoices.ListQuery) ([]models.Invoice, error) {
	return nil, nil
}

func (f *fakeInvoiceRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error) {
	return nil, nil
}

func (f *fakeInvoiceRepo) ListPendingByPayer(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error) {
	var out []models.Invoice
	for _, invoice := range f.invoices {
		if invoice.FromUserID == userID && invoice.Status == enums.InvoiceStatusPending {
			out = append(out, *invoice)
		}
	}
	return out, nil
}

func (f *fakeInvoiceRepo) ListPaidPayersBySession(ctx context.Context, sessionID uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{})
	var payers []uuid.UUID
	for _, invoice := range f.invoices {
		if invoice.SessionID == sessionID && invoice.Status == enums.InvoiceStatusPaid {
			if _, dup := seen[invoice.FromUserID]; !dup {
				seen[invoice.FromUserID] = struct{}{}
				payers = append(payers, invoice.FromUserID)
			}
		}
	}
	return payers, nil
}

type fakeWalletRepo struct {
	wallets []*models.Wallet
	txns    []*models.WalletTransaction
}

func (f *fakeWalletRepo) WithTx(tx *gorm.DB) wallets.Repository { return f }

func (f *fakeWalletRepo) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	if wallet.ID == uuid.Nil {
		wallet.ID = uuid.New()
	}
	copied := *wallet
	f.wallets = append(f.wallets, &copied)
	return nil
}

func (f *fakeWalletRepo) FindWalletByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	for _, wallet := range f.wallets {
		if wallet.ID == id {
			copied := *wallet
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeWalletRepo) FindWalletByUser(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	for _, wallet := range f.wallets {
		if wallet.UserID == userID {
			copied := *wallet
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeWalletRepo) UpdateBalance(ctx context.Context, walletID uuid.UUID, balance int) error {
	for _, wallet := range f.wallets {
		if wallet.ID == walletID {
			wallet.Balance = balance
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeWalletRepo) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	copied := *txn
	f.txns = append(f.txns, &copied)
	return nil
}

func (f *fakeWalletRepo) ListTransactions(ctx context.Context, walletID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.WalletTransaction, error) {
	var out []models.WalletTransaction
	for _, txn := range f.txns {
		if txn.WalletID == walletID {
			out = append(out, *txn)
		}
	}
	return out, nil
}

type fakeSessions struct {
	session *models.TableSession
	// finalize wiring mirrors the sessions service: sum assignments,
	// close, stamp the end time.
	assignments *fakeAssignments
}

func (f *fakeSessions) GetSession(ctx context.Context, id uuid.UUID) (*models.TableSession, error) {
	if f.session == nil || f.session.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
	}
	copied := *f.session
	return &copied, nil
}

func (f *fakeSessions) Finalize(ctx context.Context, id uuid.UUID) (*models.TableSession, error) {
	if f.session == nil || f.session.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
	}
	total := 0
	for _, a := range f.assignments.assignments {
		total += a.AssignedAmount
	}
	now := time.Now().UTC()
	f.session.Status = enums.SessionStatusClosed
	f.session.TotalAmount = &total
	f.session.SessionEnd = &now
	copied := *f.session
	return &copied, nil
}

type fakeAssignments struct {
	assignments  []models.ItemAssignment
	participants []*models.TableParticipant
}

func (f *fakeAssignments) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.ItemAssignment, error) {
	return f.assignments, nil
}

func (f *fakeAssignments) FindParticipant(ctx context.Context, id uuid.UUID) (*models.TableParticipant, error) {
	for _, p := range f.participants {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeAssignments) FindParticipantByUser(ctx context.Context, sessionID, userID uuid.UUID) (*models.TableParticipant, error) {
	for _, p := range f.participants {
		if p.SessionID == sessionID && p.UserID != nil && *p.UserID == userID {
			return p, nil
		}
	}
	return nil, nil
}

type fakeMemberships struct {
	denied map[uuid.UUID]bool
}

func (f *fakeMemberships) CheckBothMembers(ctx context.Context, groupID, userA, userB uuid.UUID) (bool, error) {
	if f.denied[userA] || f.denied[userB] {
		return false, nil
	}
	return true, nil
}

type recordingNotifier struct {
	notified []uuid.UUID
}

func (n *recordingNotifier) Notify(ctx context.Context, userID uuid.UUID, text string) error {
	n.notified = append(n.notified, userID)
	return nil
}

type paymentsFixture struct {
	svc         *Service
	invoiceRepo *fakeInvoiceRepo
	walletRepo  *fakeWalletRepo
	sessions    *fakeSessions
	assignments *fakeAssignments
	memberships *fakeMemberships
	notifier    *recordingNotifier
	session     *models.TableSession
}

func newPaymentsFixture(t *testing.T) *paymentsFixture {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})

	walletRepo := &fakeWalletRepo{}
	walletSvc, err := wallets.NewService(wallets.ServiceParams{
		Repo:   walletRepo,
		Tx:     stubTxRunner{},
		Logger: logg,
	})
	if err != nil {
		t.Fatalf("wallets.NewService: %v", err)
	}

	assignmentsStore := &fakeAssignments{}
	session := &models.TableSession{
		ID:       uuid.New(),
		Status:   enums.SessionStatusActive,
		Currency: enums.CurrencyCLP,
	}
	sessionsStore := &fakeSessions{session: session, assignments: assignmentsStore}
	invoiceRepo := &fakeInvoiceRepo{}
	memberships := &fakeMemberships{denied: map[uuid.UUID]bool{}}
	notifier := &recordingNotifier{}

	svc, err := NewService(ServiceParams{
		Tx:          stubTxRunner{},
		Invoices:    invoiceRepo,
		Wallets:     walletSvc,
		Sessions:    sessionsStore,
		Assignments: assignmentsStore,
		Memberships: memberships,
		Notifier:    notifier,
		Logger:      logg,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &paymentsFixture{
		svc:         svc,
		invoiceRepo: invoiceRepo,
		walletRepo:  walletRepo,
		sessions:    sessionsStore,
		assignments: assignmentsStore,
		memberships: memberships,
		notifier:    notifier,
		session:     session,
	}
}

func (f *paymentsFixture) addParticipant(userID *uuid.UUID) *models.TableParticipant {
	p := &models.TableParticipant{ID: uuid.New(), SessionID: f.session.ID, UserID: userID}
	f.assignments.participants = append(f.assignments.participants, p)
	return p
}

func (f *paymentsFixture) addAssignment(creditorID uuid.UUID, debtorID *uuid.UUID, amount int) models.ItemAssignment {
	a := models.ItemAssignment{
		ID:             uuid.New(),
		OrderItemID:    uuid.New(),
		CreditorID:     creditorID,
		DebtorID:       debtorID,
		AssignedAmount: amount,
	}
	f.assignments.assignments = append(f.assignments.assignments, a)
	return a
}

func (f *paymentsFixture) walletBalance(t *testing.T, userID uuid.UUID) int {
	t.Helper()
	for _, wallet := range f.walletRepo.wallets {
		if wallet.UserID == userID {
			return wallet.Balance
		}
	}
	t.Fatalf("no wallet for user %s", userID)
	return 0
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestMarkPaidAtomicDoubleEntry(t *testing.T) {
	f := newPaymentsFixture(t)
	payer := uuid.New()
	payee := uuid.New()

	invoice := &models.Invoice{
		SessionID:   f.session.ID,
		FromUserID:  payer,
		ToUserID:    payee,
		TotalAmount: 7500,
		Currency:    enums.CurrencyCLP,
		Status:      enums.InvoiceStatusPending,
	}
	if err := f.invoiceRepo.Create(context.Background(), invoice); err != nil {
		t.Fatalf("seed invoice: %v", err)
	}

	paid, err := f.svc.MarkPaid(context.Background(), invoice.ID, nil)
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if paid.Status != enums.InvoiceStatusPaid || paid.PaidAt == nil {
		t.Fatalf("invoice not transitioned: %+v", paid)
	}

	if got := f.walletBalance(t, payer); got != -7500 {
		t.Fatalf("payer balance = %d, want -7500", got)
	}
	if got := f.walletBalance(t, payee); got != 7500 {
		t.Fatalf("payee balance = %d, want 7500", got)
	}

	if len(f.walletRepo.txns) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(f.walletRepo.txns))
	}
	var sent, received *models.WalletTransaction
	for _, txn := range f.walletRepo.txns {
		switch txn.Type {
		case enums.WalletTransactionTypePaymentSent:
			sent = txn
		case enums.WalletTransactionTypePaymentReceived:
			received = txn
		}
	}
	if sent == nil || received == nil {
		t.Fatal("missing debit or credit entry")
	}
	if sent.Amount != -received.Amount {
		t.Fatalf("entries are not negatives: %d vs %d", sent.Amount, received.Amount)
	}
	if sent.InvoiceID == nil || *sent.InvoiceID != invoice.ID {
		t.Fatal("debit entry not linked to the invoice")
	}
}

func TestMarkPaidMissingAndRepeated(t *testing.T) {
	f := newPaymentsFixture(t)

	_, err := f.svc.MarkPaid(context.Background(), uuid.New(), nil)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	invoice := &models.Invoice{
		SessionID:   f.session.ID,
		FromUserID:  uuid.New(),
		ToUserID:    uuid.New(),
		TotalAmount: 100,
		Status:      enums.InvoiceStatusPending,
	}
	_ = f.invoiceRepo.Create(context.Background(), invoice)
	if _, err := f.svc.MarkPaid(context.Background(), invoice.ID, nil); err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if _, err := f.svc.MarkPaid(context.Background(), invoice.ID, nil); err == nil ||
		pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on double pay, got %v", err)
	}
}

func TestSettlePerCreditorAutoFinalizeScenario(t *testing.T) {
	// Two items priced 10000 and 6000. A is creditor on both; B is debtor on
	// the 6000 item. A's settlement batch pays admin 16000 and leaves B->A
	// 6000 pending; once B pays, the session closes with total 16000.
	f := newPaymentsFixture(t)
	userA := uuid.New()
	userB := uuid.New()
	admin := uuid.New()
	groupID := uuid.New()

	a := f.addParticipant(ptr(userA))
	b := f.addParticipant(ptr(userB))

	f.addAssignment(a.ID, nil, 10000)
	f.addAssignment(a.ID, ptr(b.ID), 6000)

	ctx := context.Background()
	result, err := f.svc.SettlePerCreditor(ctx, f.session.ID, admin, groupID)
	if err != nil {
		t.Fatalf("SettlePerCreditor: %v", err)
	}

	if len(result.PaidInvoices) != 1 {
		t.Fatalf("expected 1 paid invoice, got %d", len(result.PaidInvoices))
	}
	settled := result.PaidInvoices[0]
	if settled.FromUserID != userA || settled.ToUserID != admin || settled.TotalAmount != 16000 {
		t.Fatalf("unexpected settlement invoice: %+v", settled)
	}
	if len(result.PendingInvoices) != 1 {
		t.Fatalf("expected 1 pending invoice, got %d", len(result.PendingInvoices))
	}
	owed := result.PendingInvoices[0]
	if owed.FromUserID != userB || owed.ToUserID != userA || owed.TotalAmount != 6000 {
		t.Fatalf("unexpected debtor invoice: %+v", owed)
	}
	if owed.Status != enums.InvoiceStatusPending {
		t.Fatalf("debtor invoice should stay pending, got %s", owed.Status)
	}
	if len(f.notifier.notified) != 1 || f.notifier.notified[0] != userB {
		t.Fatalf("expected B to be notified, got %v", f.notifier.notified)
	}

	// B still owes; the session must stay open.
	session, _ := f.sessions.GetSession(ctx, f.session.ID)
	if session.Status != enums.SessionStatusActive {
		t.Fatalf("session closed early: %s", session.Status)
	}

	if _, err := f.svc.MarkPaid(ctx, owed.ID, nil); err != nil {
		t.Fatalf("B MarkPaid: %v", err)
	}

	session, _ = f.sessions.GetSession(ctx, f.session.ID)
	if session.Status != enums.SessionStatusClosed {
		t.Fatal("session should auto-finalize once every creditor has paid")
	}
	if session.TotalAmount == nil || *session.TotalAmount != 16000 {
		t.Fatalf("expected total 16000, got %v", session.TotalAmount)
	}
}

func TestSettlePerCreditorSkipsMembershipViolation(t *testing.T) {
	f := newPaymentsFixture(t)
	userA := uuid.New()
	userB := uuid.New()
	admin := uuid.New()
	groupID := uuid.New()

	a := f.addParticipant(ptr(userA))
	b := f.addParticipant(ptr(userB))
	f.addAssignment(a.ID, nil, 4000)
	f.addAssignment(b.ID, nil, 3000)

	f.memberships.denied[userB] = true

	result, err := f.svc.SettlePerCreditor(context.Background(), f.session.ID, admin, groupID)
	if err != nil {
		t.Fatalf("SettlePerCreditor: %v", err)
	}
	if len(result.PaidInvoices) != 1 || result.PaidInvoices[0].FromUserID != userA {
		t.Fatalf("expected only A settled, got %+v", result.PaidInvoices)
	}
	if reason, ok := result.SkippedCreditors[b.ID]; !ok || reason == "" {
		t.Fatalf("expected B skipped with a reason, got %v", result.SkippedCreditors)
	}

	// A skipped creditor keeps the session open.
	session, _ := f.sessions.GetSession(context.Background(), f.session.ID)
	if session.Status != enums.SessionStatusActive {
		t.Fatalf("session should stay open, got %s", session.Status)
	}
}

func TestSettlePerCreditorNoAssignments(t *testing.T) {
	f := newPaymentsFixture(t)
	_, err := f.svc.SettlePerCreditor(context.Background(), f.session.ID, uuid.New(), uuid.New())
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty ledger, got %v", err)
	}
}

func TestPayFromWalletInsufficientFunds(t *testing.T) {
	f := newPaymentsFixture(t)
	userA := uuid.New()
	a := f.addParticipant(ptr(userA))
	f.addAssignment(a.ID, nil, 5000)

	_, err := f.svc.PayFromWallet(context.Background(), f.session.ID, userA, uuid.New())
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestPayFromWalletCoversDebtors(t *testing.T) {
	f := newPaymentsFixture(t)
	userA := uuid.New()
	userB := uuid.New()
	groupID := uuid.New()

	a := f.addParticipant(ptr(userA))
	b := f.addParticipant(ptr(userB))
	f.addAssignment(a.ID, nil, 3000)
	f.addAssignment(a.ID, ptr(b.ID), 2000)

	// Fund A's wallet to cover the full assigned total.
	f.walletRepo.wallets = append(f.walletRepo.wallets, &models.Wallet{
		ID:       uuid.New(),
		UserID:   userA,
		Balance:  5000,
		Currency: enums.CurrencyCLP,
	})

	result, err := f.svc.PayFromWallet(context.Background(), f.session.ID, userA, groupID)
	if err != nil {
		t.Fatalf("PayFromWallet: %v", err)
	}
	if len(result.PaidInvoices) != 1 {
		t.Fatalf("expected 1 paid invoice, got %d", len(result.PaidInvoices))
	}
	invoice := result.PaidInvoices[0]
	if invoice.FromUserID != userA || invoice.ToUserID != userB || invoice.TotalAmount != 2000 {
		t.Fatalf("unexpected invoice: %+v", invoice)
	}
	if invoice.Status != enums.InvoiceStatusPaid {
		t.Fatalf("invoice should be paid immediately, got %s", invoice.Status)
	}
	if got := f.walletBalance(t, userA); got != 3000 {
		t.Fatalf("A balance = %d, want 3000", got)
	}
	if got := f.walletBalance(t, userB); got != 2000 {
		t.Fatalf("B balance = %d, want 2000", got)
	}
}

func TestPayFromWalletRequiresParticipation(t *testing.T) {
	f := newPaymentsFixture(t)
	_, err := f.svc.PayFromWallet(context.Background(), f.session.ID, uuid.New(), uuid.New())
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for non-participant, got %v", err)
	}
}
