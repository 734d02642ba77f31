package assignments

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/camilavaldes/splitabill-backend/pkg/db/models"
	"github.com/camilavaldes/splitabill-backend/pkg/enums"
	pkgerrors "github.com/camilavaldes/splitabill-backend/pkg/errors"
	"github.com/camilavaldes/splitabill-backend/pkg/logger"
)

type fakeRepo struct {
	assignments  []*models.ItemAssignment
	items        []*models.OrderItem
	participants []*models.TableParticipant
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, assignment *models.ItemAssignment) error {
	if assignment.ID == uuid.Nil {
		assignment.ID = uuid.New()
	}
	copied := *assignment
	f.assignments = append(f.assignments, &copied)
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	kept := f.assignments[:0]
	for _, a := range f.assignments {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	f.assignments = kept
	return nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.ItemAssignment, error) {
	for _, a := range f.assignments {
		if a.ID == id {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ListByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]models.ItemAssignment, error) {
	var out []models.ItemAssignment
	for _, a := range f.assignments {
		if a.OrderItemID == orderItemID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.ItemAssignment, error) {
	itemsInSession := make(map[uuid.UUID]struct{})
	for _, item := range f.items {
		if item.SessionID == sessionID {
			itemsInSession[item.ID] = struct{}{}
		}
	}
	var out []models.ItemAssignment
	for _, a := range f.assignments {
		if _, ok := itemsInSession[a.OrderItemID]; ok {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateAmountsForItem(ctx context.Context, orderItemID uuid.UUID, amount int) error {
	for _, a := range f.assignments {
		if a.OrderItemID == orderItemID {
			a.AssignedAmount = amount
		}
	}
	return nil
}

func (f *fakeRepo) FindOrderItem(ctx context.Context, id uuid.UUID) (*models.OrderItem, error) {
	for _, item := range f.items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ListOrderItems(ctx context.Context, sessionID uuid.UUID) ([]models.OrderItem, error) {
	var out []models.OrderItem
	for _, item := range f.items {
		if item.SessionID == sessionID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeRepo) FindParticipant(ctx context.Context, id uuid.UUID) (*models.TableParticipant, error) {
	for _, p := range f.participants {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) FindParticipantByUser(ctx context.Context, sessionID, userID uuid.UUID) (*models.TableParticipant, error) {
	for _, p := range f.participants {
		if p.SessionID == sessionID && p.UserID != nil && *p.UserID == userID {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]models.TableParticipant, error) {
	var out []models.TableParticipant
	for _, p := range f.participants {
		if p.SessionID == sessionID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeGate struct {
	session *models.TableSession
}

func (g *fakeGate) GetSession(ctx context.Context, id uuid.UUID) (*models.TableSession, error) {
	if g.session == nil || g.session.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
	}
	return g.session, nil
}

func (g *fakeGate) EnsureUnlocked(ctx context.Context, id uuid.UUID) (*models.TableSession, error) {
	session, err := g.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Locked {
		return nil, pkgerrors.New(pkgerrors.CodeSessionLocked, "session is locked")
	}
	return session, nil
}

type fixture struct {
	svc     *Service
	repo    *fakeRepo
	gate    *fakeGate
	session *models.TableSession
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := &fakeRepo{}
	gate := &fakeGate{session: &models.TableSession{
		ID:       uuid.New(),
		Status:   enums.SessionStatusActive,
		Currency: enums.CurrencyCLP,
	}}
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	svc, err := NewService(ServiceParams{Repo: repo, Sessions: gate, Logger: logg})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{svc: svc, repo: repo, gate: gate, session: gate.session}
}

func (f *fixture) addItem(price int) *models.OrderItem {
	item := &models.OrderItem{ID: uuid.New(), SessionID: f.session.ID, ItemName: "item", UnitPrice: price}
	f.repo.items = append(f.repo.items, item)
	return item
}

func (f *fixture) addParticipant(userID *uuid.UUID) *models.TableParticipant {
	p := &models.TableParticipant{ID: uuid.New(), SessionID: f.session.ID, UserID: userID}
	f.repo.participants = append(f.repo.participants, p)
	return p
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestShare(t *testing.T) {
	cases := []struct {
		name      string
		unitPrice int
		count     int
		delta     int
		want      int
	}{
		{"first assignment", 9000, 0, 1, 9000},
		{"second assignment", 9000, 1, 1, 4500},
		{"third assignment uneven", 10000, 2, 1, 3333},
		{"removing one of two", 9000, 2, -1, 9000},
		{"removing the only one", 9000, 1, -1, 9000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Share(tc.unitPrice, tc.count, tc.delta); got != tc.want {
				t.Fatalf("Share(%d, %d, %d) = %d, want %d", tc.unitPrice, tc.count, tc.delta, got, tc.want)
			}
		})
	}
}

func TestAssignKeepsSharesEqual(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(9000)
	p1 := f.addParticipant(nil)
	p2 := f.addParticipant(nil)
	p3 := f.addParticipant(nil)

	ctx := context.Background()
	for _, p := range []*models.TableParticipant{p1, p2, p3} {
		if _, err := f.svc.Assign(ctx, f.session.ID, AssignInput{OrderItemID: item.ID, CreditorID: p.ID}); err != nil {
			t.Fatalf("Assign: %v", err)
		}
	}

	assignments, _ := f.repo.ListByOrderItem(ctx, item.ID)
	if len(assignments) != 3 {
		t.Fatalf("expected 3 assignments, got %d", len(assignments))
	}
	for _, a := range assignments {
		if a.AssignedAmount != 3000 {
			t.Fatalf("expected equal share 3000, got %d", a.AssignedAmount)
		}
	}
}

func TestAssignUnassignRoundTrip(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(7500)
	p1 := f.addParticipant(nil)
	p2 := f.addParticipant(nil)
	ctx := context.Background()

	first, err := f.svc.Assign(ctx, f.session.ID, AssignInput{OrderItemID: item.ID, CreditorID: p1.ID})
	if err != nil {
		t.Fatalf("first assign: %v", err)
	}
	if first.Created.AssignedAmount != 7500 {
		t.Fatalf("solo share should be the full price, got %d", first.Created.AssignedAmount)
	}

	second, err := f.svc.Assign(ctx, f.session.ID, AssignInput{OrderItemID: item.ID, CreditorID: p2.ID})
	if err != nil {
		t.Fatalf("second assign: %v", err)
	}
	if second.Created.AssignedAmount != 3750 {
		t.Fatalf("split share should halve, got %d", second.Created.AssignedAmount)
	}

	removed, err := f.svc.Unassign(ctx, f.session.ID, second.Created.ID)
	if err != nil {
		t.Fatalf("Unassign: %v", err)
	}
	if len(removed.Updated) != 1 || removed.Updated[0].AssignedAmount != 7500 {
		t.Fatalf("share should round-trip to full price, got %+v", removed.Updated)
	}
}

func TestUnassignLastAssignment(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(4000)
	p := f.addParticipant(nil)
	ctx := context.Background()

	created, err := f.svc.Assign(ctx, f.session.ID, AssignInput{OrderItemID: item.ID, CreditorID: p.ID})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	result, err := f.svc.Unassign(ctx, f.session.ID, created.Created.ID)
	if err != nil {
		t.Fatalf("Unassign: %v", err)
	}
	if result.RemovedID != created.Created.ID {
		t.Fatalf("wrong removed id: %s", result.RemovedID)
	}
	if len(result.Updated) != 0 {
		t.Fatalf("expected no survivors, got %d", len(result.Updated))
	}
}

func TestAssignEvictsCreditorAsDebtor(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(6000)
	payer := f.addParticipant(nil)
	covered := f.addParticipant(nil)
	ctx := context.Background()

	first, err := f.svc.Assign(ctx, f.session.ID, AssignInput{
		OrderItemID: item.ID,
		CreditorID:  payer.ID,
		DebtorID:    ptr(covered.ID),
	})
	if err != nil {
		t.Fatalf("first assign: %v", err)
	}

	// The covered participant now claims the item themself; the prior
	// assignment that named them debtor must go.
	second, err := f.svc.Assign(ctx, f.session.ID, AssignInput{
		OrderItemID: item.ID,
		CreditorID:  covered.ID,
	})
	if err != nil {
		t.Fatalf("second assign: %v", err)
	}
	if len(second.EvictedIDs) != 1 || second.EvictedIDs[0] != first.Created.ID {
		t.Fatalf("expected eviction of %s, got %v", first.Created.ID, second.EvictedIDs)
	}

	assignments, _ := f.repo.ListByOrderItem(ctx, item.ID)
	if len(assignments) != 1 {
		t.Fatalf("expected 1 surviving assignment, got %d", len(assignments))
	}
	if assignments[0].CreditorID != covered.ID || assignments[0].AssignedAmount != 6000 {
		t.Fatalf("unexpected survivor: %+v", assignments[0])
	}
	for _, a := range assignments {
		if a.DebtorID != nil && *a.DebtorID == a.CreditorID {
			t.Fatal("creditor appears as their own debtor")
		}
	}
}

func TestAssignWhileLocked(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(5000)
	p := f.addParticipant(nil)
	f.session.Locked = true

	_, err := f.svc.Assign(context.Background(), f.session.ID, AssignInput{OrderItemID: item.ID, CreditorID: p.ID})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeSessionLocked {
		t.Fatalf("expected session locked error, got %v", err)
	}
}

func TestUnassignMissingAssignment(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Unassign(context.Background(), f.session.ID, uuid.New())
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAssignRejectsForeignItem(t *testing.T) {
	f := newFixture(t)
	p := f.addParticipant(nil)
	foreign := &models.OrderItem{ID: uuid.New(), SessionID: uuid.New(), ItemName: "other", UnitPrice: 100}
	f.repo.items = append(f.repo.items, foreign)

	_, err := f.svc.Assign(context.Background(), f.session.ID, AssignInput{OrderItemID: foreign.ID, CreditorID: p.ID})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign item, got %v", err)
	}
}

func TestEqualSplitDropsRemainder(t *testing.T) {
	f := newFixture(t)
	f.addItem(10000)
	f.addParticipant(nil)
	f.addParticipant(nil)
	f.addParticipant(nil)

	result, err := f.svc.EqualSplit(context.Background(), f.session.ID)
	if err != nil {
		t.Fatalf("EqualSplit: %v", err)
	}
	if result.TotalAmount != 10000 || result.ParticipantCount != 3 {
		t.Fatalf("unexpected totals: %+v", result)
	}
	if result.AmountPerPerson != 3333 {
		t.Fatalf("expected 3333 per person, got %d", result.AmountPerPerson)
	}
}

func TestEqualSplitPrefersFinalizedTotal(t *testing.T) {
	f := newFixture(t)
	f.addItem(10000)
	f.addParticipant(nil)
	total := 8000
	f.session.TotalAmount = &total

	result, err := f.svc.EqualSplit(context.Background(), f.session.ID)
	if err != nil {
		t.Fatalf("EqualSplit: %v", err)
	}
	if result.TotalAmount != 8000 {
		t.Fatalf("expected finalized total 8000, got %d", result.TotalAmount)
	}
}

func TestEqualSplitNoParticipants(t *testing.T) {
	f := newFixture(t)
	f.addItem(10000)

	_, err := f.svc.EqualSplit(context.Background(), f.session.ID)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSummaryAggregatesByCreditor(t *testing.T) {
	f := newFixture(t)
	item1 := f.addItem(6000)
	item2 := f.addItem(4000)
	p1 := f.addParticipant(nil)
	p2 := f.addParticipant(nil)
	ctx := context.Background()

	mustAssign := func(itemID, creditorID uuid.UUID) {
		t.Helper()
		if _, err := f.svc.Assign(ctx, f.session.ID, AssignInput{OrderItemID: itemID, CreditorID: creditorID}); err != nil {
			t.Fatalf("Assign: %v", err)
		}
	}
	mustAssign(item1.ID, p1.ID)
	mustAssign(item1.ID, p2.ID)
	mustAssign(item2.ID, p1.ID)

	summary, err := f.svc.Summary(ctx, f.session.ID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary[p1.ID] != 3000+4000 {
		t.Fatalf("expected p1 committed 7000, got %d", summary[p1.ID])
	}
	if summary[p2.ID] != 3000 {
		t.Fatalf("expected p2 committed 3000, got %d", summary[p2.ID])
	}
}

func TestValidateCoverage(t *testing.T) {
	f := newFixture(t)
	item1 := f.addItem(6000)
	item2 := f.addItem(4000)
	p := f.addParticipant(nil)
	ctx := context.Background()

	result, err := f.svc.Validate(ctx, f.session.ID)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.AllAssigned {
		t.Fatal("empty session should not validate")
	}
	if len(result.UnassignedItems) != 2 {
		t.Fatalf("expected 2 uncovered items, got %d", len(result.UnassignedItems))
	}

	if _, err := f.svc.Assign(ctx, f.session.ID, AssignInput{OrderItemID: item1.ID, CreditorID: p.ID}); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := f.svc.Assign(ctx, f.session.ID, AssignInput{OrderItemID: item2.ID, CreditorID: p.ID}); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	result, err = f.svc.Validate(ctx, f.session.ID)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.AllAssigned {
		t.Fatalf("fully covered bill should validate: %+v", result)
	}
	if result.TotalAssigned != 10000 || result.TotalBilled != 10000 {
		t.Fatalf("unexpected totals: %+v", result)
	}
}

func TestSelectableParticipants(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(6000)
	requesterUser := uuid.New()
	otherUser := uuid.New()
	debtorUser := uuid.New()

	requester := f.addParticipant(ptr(requesterUser))
	other := f.addParticipant(ptr(otherUser))
	debtor := f.addParticipant(ptr(debtorUser))
	f.addParticipant(nil) // anonymous, never selectable
	_ = other

	ctx := context.Background()
	if _, err := f.svc.Assign(ctx, f.session.ID, AssignInput{
		OrderItemID: item.ID,
		CreditorID:  requester.ID,
		DebtorID:    ptr(debtor.ID),
	}); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	selectable, err := f.svc.SelectableParticipants(ctx, f.session.ID, item.ID, requesterUser)
	if err != nil {
		t.Fatalf("SelectableParticipants: %v", err)
	}
	if len(selectable) != 1 || selectable[0] != otherUser {
		t.Fatalf("expected only %s selectable, got %v", otherUser, selectable)
	}
}

func TestPayingForParticipants(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(6000)
	payerUser := uuid.New()
	coveredUser := uuid.New()

	payer := f.addParticipant(ptr(payerUser))
	covered := f.addParticipant(ptr(coveredUser))
	ctx := context.Background()

	if _, err := f.svc.Assign(ctx, f.session.ID, AssignInput{
		OrderItemID: item.ID,
		CreditorID:  payer.ID,
		DebtorID:    ptr(covered.ID),
	}); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	paying, err := f.svc.PayingForParticipants(ctx, f.session.ID, item.ID, payerUser)
	if err != nil {
		t.Fatalf("PayingForParticipants: %v", err)
	}
	if len(paying) != 1 || paying[0] != coveredUser {
		t.Fatalf("expected %s, got %v", coveredUser, paying)
	}

	empty, err := f.svc.PayingForParticipants(ctx, f.session.ID, item.ID, uuid.New())
	if err != nil {
		t.Fatalf("PayingForParticipants stranger: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty list for non-participant, got %v", empty)
	}
}
