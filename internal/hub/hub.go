package hub

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/camilavaldes/splitabill-backend/pkg/logger"
	"github.com/camilavaldes/splitabill-backend/pkg/metrics"
)

// Conn is the transport seam between the hub and a live client connection.
// Implementations must tolerate concurrent WriteJSON calls.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Event is anything the hub can fan out. The type tag feeds metrics and the
// distributed fabric envelope.
type Event interface {
	EventType() string
}

// Hub routes realtime events between the devices attached to a table session.
// It owns the only mutable connection registry in the process: session to
// connection set, connection to session, and connection to the participant it
// identified as.
type Hub struct {
	mu           sync.RWMutex
	sessions     map[uuid.UUID]map[Conn]struct{}
	conns        map[Conn]uuid.UUID
	participants map[Conn]uuid.UUID

	fabric  Fabric
	logg    *logger.Logger
	metrics *metrics.HubMetrics
}

// New builds a hub. fabric may be nil for a single-instance deployment.
func New(fabric Fabric, logg *logger.Logger, m *metrics.HubMetrics) *Hub {
	return &Hub{
		sessions:     make(map[uuid.UUID]map[Conn]struct{}),
		conns:        make(map[Conn]uuid.UUID),
		participants: make(map[Conn]uuid.UUID),
		fabric:       fabric,
		logg:         logg,
		metrics:      m,
	}
}

// Register attaches a connection to a session.
func (h *Hub) Register(conn Conn, sessionID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.sessions[sessionID]
	if !ok {
		set = make(map[Conn]struct{})
		h.sessions[sessionID] = set
	}
	set[conn] = struct{}{}
	h.conns[conn] = sessionID
	h.metrics.SetConnections(sessionID.String(), len(set))
}

// Unregister removes the connection from every index. It returns the session
// the connection belonged to and the participant it had identified as, so the
// caller can announce the departure.
func (h *Hub) Unregister(conn Conn) (sessionID uuid.UUID, participantID uuid.UUID, identified bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unregisterLocked(conn)
}

func (h *Hub) unregisterLocked(conn Conn) (uuid.UUID, uuid.UUID, bool) {
	sessionID, ok := h.conns[conn]
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	delete(h.conns, conn)

	if set, ok := h.sessions[sessionID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.sessions, sessionID)
			h.metrics.ForgetSession(sessionID.String())
		} else {
			h.metrics.SetConnections(sessionID.String(), len(set))
		}
	}

	participantID, identified := h.participants[conn]
	delete(h.participants, conn)
	return sessionID, participantID, identified
}

// BindParticipant records which participant a connection identified as after
// a successful join.
func (h *Hub) BindParticipant(conn Conn, participantID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.participants[conn] = participantID
}

// Participant returns the participant bound to the connection, if any.
func (h *Hub) Participant(conn Conn) (uuid.UUID, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	id, ok := h.participants[conn]
	return id, ok
}

// SessionOf returns the session a connection is registered under.
func (h *Hub) SessionOf(conn Conn) (uuid.UUID, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	id, ok := h.conns[conn]
	return id, ok
}

// Send delivers one event to one connection. A failed write removes the
// connection from the registry so later broadcasts skip it.
func (h *Hub) Send(ctx context.Context, conn Conn, event Event) {
	if err := conn.WriteJSON(event); err != nil {
		if h.logg != nil {
			h.logg.Warn(h.logg.WithField(ctx, "event", event.EventType()), "hub.send failed, dropping connection")
		}
		h.drop(conn)
	}
}

// Broadcast delivers the event to every live connection in the session except
// exclude. Connections whose delivery fails are reaped after the pass
// completes, never during it. The event is also published to the fabric so
// sibling instances can relay it to their own connections.
func (h *Hub) Broadcast(ctx context.Context, sessionID uuid.UUID, event Event, exclude Conn) {
	h.broadcastLocal(ctx, sessionID, event, exclude)

	if h.fabric != nil {
		if err := h.fabric.Publish(ctx, sessionID, event); err != nil && h.logg != nil {
			h.logg.Error(ctx, "hub.fabric publish failed", err)
		}
	}
}

func (h *Hub) broadcastLocal(ctx context.Context, sessionID uuid.UUID, event Event, exclude Conn) {
	h.mu.RLock()
	targets := make([]Conn, 0, len(h.sessions[sessionID]))
	for conn := range h.sessions[sessionID] {
		if conn == exclude {
			continue
		}
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	h.metrics.IncBroadcast(event.EventType())

	var dead []Conn
	for _, conn := range targets {
		if err := conn.WriteJSON(event); err != nil {
			dead = append(dead, conn)
		}
	}

	for _, conn := range dead {
		if h.logg != nil {
			h.logg.Warn(h.logg.WithField(ctx, "event", event.EventType()), "hub.broadcast delivery failed, dropping connection")
		}
		h.drop(conn)
	}
}

func (h *Hub) drop(conn Conn) {
	h.mu.Lock()
	h.unregisterLocked(conn)
	h.mu.Unlock()
	h.metrics.IncDropped()
	_ = conn.Close()
}

// ConnectionCount reports the live connections for a session.
func (h *Hub) ConnectionCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
