package realtime

import (
	"context"

	"github.com/camilavaldes/splitabill-backend/internal/hub"
	"github.com/camilavaldes/splitabill-backend/pkg/db/models"
)

// Announcer relays payment workflow outcomes onto the session's live
// connections. It satisfies the payment service's announcement hook without
// that package importing this one.
type Announcer struct {
	hub *hub.Hub
}

func NewAnnouncer(h *hub.Hub) *Announcer {
	return &Announcer{hub: h}
}

func (a *Announcer) AnnounceSessionFinalized(ctx context.Context, session *models.TableSession) {
	total := 0
	if session.TotalAmount != nil {
		total = *session.TotalAmount
	}
	a.hub.Broadcast(ctx, session.ID, SessionFinalizedEvent{
		Type:        EventSessionFinalized,
		TotalAmount: total,
	}, nil)
}

func (a *Announcer) AnnounceInvoiceCreated(ctx context.Context, invoice *models.Invoice) {
	a.hub.Broadcast(ctx, invoice.SessionID, InvoiceCreatedEvent{
		Type:    EventInvoiceCreated,
		Invoice: invoice,
	}, nil)
}
