package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/camilavaldes/splitabill-backend/internal/assignments"
	"github.com/camilavaldes/splitabill-backend/internal/hub"
	"github.com/camilavaldes/splitabill-backend/internal/sessions"
	"github.com/camilavaldes/splitabill-backend/pkg/db/models"
	pkgerrors "github.com/camilavaldes/splitabill-backend/pkg/errors"
	"github.com/camilavaldes/splitabill-backend/pkg/logger"
)

// DispatcherParams carries the dispatcher dependencies.
type DispatcherParams struct {
	Hub         *hub.Hub
	Sessions    *sessions.Service
	Assignments *assignments.Service
	Logger      *logger.Logger
}

// Dispatcher owns the websocket command loop for table sessions: it decodes
// inbound commands, runs them against the domain services, and fans the
// resulting events out through the hub. Mutating commands on one session are
// serialized by a per-session mutex; the mutex is released before any
// broadcast so a slow socket never holds up the session.
type Dispatcher struct {
	hub         *hub.Hub
	sessions    *sessions.Service
	assignments *assignments.Service
	logg        *logger.Logger

	locks sync.Map // session id -> *sync.Mutex
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Hub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "realtime dispatcher requires a hub")
	}
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "realtime dispatcher requires a sessions service")
	}
	if params.Assignments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "realtime dispatcher requires an assignments service")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "realtime dispatcher requires a logger")
	}
	return &Dispatcher{
		hub:         params.Hub,
		sessions:    params.Sessions,
		assignments: params.Assignments,
		logg:        params.Logger,
	}, nil
}

// Serve runs one connection's lifecycle: verify the session, register, push
// the initial snapshot, then dispatch messages until the socket closes. A
// missing session is the one error that reaches the caller, which closes the
// socket; everything after registration is reported as error events on the
// connection itself.
func (d *Dispatcher) Serve(ctx context.Context, conn *hub.WSConn, sessionID uuid.UUID) error {
	if _, err := d.sessions.GetSession(ctx, sessionID); err != nil {
		return err
	}

	d.hub.Register(conn, sessionID)
	defer d.disconnect(ctx, conn)

	ctx = d.logg.WithSessionID(ctx, sessionID.String())
	if err := d.sendState(ctx, conn, sessionID); err != nil {
		d.sendError(ctx, conn, err)
	}

	for {
		var raw json.RawMessage
		if err := conn.ReadJSON(&raw); err != nil {
			return nil
		}
		d.Dispatch(ctx, conn, sessionID, raw)
	}
}

func (d *Dispatcher) disconnect(ctx context.Context, conn hub.Conn) {
	sessionID, participantID, bound := d.hub.Unregister(conn)
	if !bound {
		return
	}
	d.hub.Broadcast(ctx, sessionID, ParticipantLeftEvent{
		Type:          EventParticipantLeft,
		ParticipantID: participantID,
	}, conn)
}

// Dispatch decodes and runs one inbound message. Command failures are
// reported as error events on the issuing connection and never tear it down.
func (d *Dispatcher) Dispatch(ctx context.Context, conn hub.Conn, sessionID uuid.UUID, raw []byte) {
	cmd, err := DecodeCommand(raw)
	if err != nil {
		d.logg.Warn(d.logg.WithField(ctx, "error", err.Error()), "rejected websocket command")
		d.hub.Send(ctx, conn, newErrorEvent("unrecognized command"))
		return
	}

	switch cmd.Kind {
	case KindJoinSession:
		err = d.handleJoin(ctx, conn, sessionID, cmd.Join)
	case KindAssignItem:
		err = d.handleAssign(ctx, sessionID, cmd.Assign)
	case KindRemoveAssignment:
		err = d.handleRemove(ctx, sessionID, cmd.Remove)
	case KindSelectableParticipants:
		err = d.handleSelectable(ctx, conn, sessionID, cmd.ParticipantQuery)
	case KindPayingForParticipants:
		err = d.handlePayingFor(ctx, conn, sessionID, cmd.ParticipantQuery)
	case KindCalculateEqualSplit:
		err = d.handleEqualSplit(ctx, sessionID)
	case KindRequestSummary:
		err = d.handleSummary(ctx, conn, sessionID)
	case KindValidateAssignments:
		err = d.handleValidate(ctx, conn, sessionID)
	case KindUnlockSession:
		err = d.handleUnlock(ctx, conn, sessionID)
	case KindFinalizeSession:
		err = d.handleFinalize(ctx, sessionID)
	}
	if err != nil {
		d.sendError(ctx, conn, err)
	}
}

func (d *Dispatcher) sendError(ctx context.Context, conn hub.Conn, err error) {
	message := "internal error"
	if typed := pkgerrors.As(err); typed != nil {
		message = typed.Message()
	}
	d.logg.Warn(d.logg.WithField(ctx, "error", err.Error()), "websocket command failed")
	d.hub.Send(ctx, conn, newErrorEvent(message))
}

func (d *Dispatcher) sessionLock(sessionID uuid.UUID) *sync.Mutex {
	value, _ := d.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return value.(*sync.Mutex)
}

func (d *Dispatcher) handleJoin(ctx context.Context, conn hub.Conn, sessionID uuid.UUID, cmd *JoinSessionCommand) error {
	result, err := d.sessions.Join(ctx, sessionID, cmd.UserID)
	if err != nil {
		return err
	}
	d.hub.BindParticipant(conn, result.Participant.ID)

	if err := d.sendState(ctx, conn, sessionID); err != nil {
		return err
	}
	if result.Created {
		d.hub.Broadcast(ctx, sessionID, ParticipantJoinedEvent{
			Type:        EventParticipantJoined,
			Participant: d.participantView(ctx, *result.Participant),
		}, conn)
	}
	return nil
}

func (d *Dispatcher) handleAssign(ctx context.Context, sessionID uuid.UUID, cmd *AssignItemCommand) error {
	mu := d.sessionLock(sessionID)
	mu.Lock()
	result, err := d.assignments.Assign(ctx, sessionID, assignments.AssignInput{
		OrderItemID: cmd.OrderItemID,
		CreditorID:  cmd.CreditorID,
		DebtorID:    cmd.DebtorID,
	})
	mu.Unlock()
	if err != nil {
		return err
	}

	for _, evictedID := range result.EvictedIDs {
		d.hub.Broadcast(ctx, sessionID, AssignmentRemovedEvent{
			Type:         EventAssignmentRemoved,
			AssignmentID: evictedID,
		}, nil)
	}
	d.hub.Broadcast(ctx, sessionID, ItemAssignedEvent{
		Type:       EventItemAssigned,
		Assignment: result.Created,
	}, nil)
	for _, assignment := range result.Updated {
		if assignment.ID == result.Created.ID {
			continue
		}
		d.hub.Broadcast(ctx, sessionID, AssignmentUpdatedEvent{
			Type:           EventAssignmentUpdated,
			AssignmentID:   assignment.ID,
			AssignedAmount: assignment.AssignedAmount,
		}, nil)
	}
	return nil
}

func (d *Dispatcher) handleRemove(ctx context.Context, sessionID uuid.UUID, cmd *RemoveAssignmentCommand) error {
	mu := d.sessionLock(sessionID)
	mu.Lock()
	result, err := d.assignments.Unassign(ctx, sessionID, cmd.AssignmentID)
	mu.Unlock()
	if err != nil {
		return err
	}

	for _, assignment := range result.Updated {
		d.hub.Broadcast(ctx, sessionID, AssignmentUpdatedEvent{
			Type:           EventAssignmentUpdated,
			AssignmentID:   assignment.ID,
			AssignedAmount: assignment.AssignedAmount,
		}, nil)
	}
	// The acting connection gets this one too; its local state drops the row
	// on the same event as everyone else.
	d.hub.Broadcast(ctx, sessionID, AssignmentRemovedEvent{
		Type:         EventAssignmentRemoved,
		AssignmentID: result.RemovedID,
	}, nil)
	return nil
}

func (d *Dispatcher) handleSelectable(ctx context.Context, conn hub.Conn, sessionID uuid.UUID, cmd *ParticipantQueryCommand) error {
	selectable, err := d.assignments.SelectableParticipants(ctx, sessionID, cmd.OrderItemID, cmd.UserID)
	if err != nil {
		return err
	}
	d.hub.Send(ctx, conn, ParticipantFilterEvent{
		Type:         EventSelectableParticipants,
		OrderItemID:  cmd.OrderItemID,
		Participants: selectable,
	})
	return nil
}

func (d *Dispatcher) handlePayingFor(ctx context.Context, conn hub.Conn, sessionID uuid.UUID, cmd *ParticipantQueryCommand) error {
	paying, err := d.assignments.PayingForParticipants(ctx, sessionID, cmd.OrderItemID, cmd.UserID)
	if err != nil {
		return err
	}
	d.hub.Send(ctx, conn, ParticipantFilterEvent{
		Type:         EventPayingForParticipants,
		OrderItemID:  cmd.OrderItemID,
		Participants: paying,
	})
	return nil
}

func (d *Dispatcher) handleEqualSplit(ctx context.Context, sessionID uuid.UUID) error {
	result, err := d.assignments.EqualSplit(ctx, sessionID)
	if err != nil {
		return err
	}
	d.hub.Broadcast(ctx, sessionID, EqualSplitCalculatedEvent{
		Type:             EventEqualSplitCalculated,
		EqualSplitResult: *result,
	}, nil)
	return nil
}

func (d *Dispatcher) handleSummary(ctx context.Context, conn hub.Conn, sessionID uuid.UUID) error {
	summary, err := d.assignments.Summary(ctx, sessionID)
	if err != nil {
		return err
	}
	d.hub.Send(ctx, conn, SummaryUpdatedEvent{
		Type:    EventSummaryUpdated,
		Summary: summary,
	})
	return nil
}

func (d *Dispatcher) handleValidate(ctx context.Context, conn hub.Conn, sessionID uuid.UUID) error {
	userID, err := d.connUser(ctx, conn, sessionID)
	if err != nil {
		return err
	}

	// Validation locks the session regardless of coverage; the lock freezes
	// the split while participants review the result.
	mu := d.sessionLock(sessionID)
	mu.Lock()
	result, err := d.assignments.Validate(ctx, sessionID)
	if err == nil {
		_, err = d.sessions.Lock(ctx, sessionID, userID)
	}
	mu.Unlock()
	if err != nil {
		return err
	}

	d.hub.Broadcast(ctx, sessionID, AssignmentsValidatedEvent{
		Type:             EventAssignmentsValidated,
		ValidationResult: *result,
	}, nil)
	d.hub.Broadcast(ctx, sessionID, SessionLockedEvent{
		Type:           EventSessionLocked,
		LockedByUserID: userID,
	}, nil)
	return nil
}

func (d *Dispatcher) handleUnlock(ctx context.Context, conn hub.Conn, sessionID uuid.UUID) error {
	userID, err := d.connUser(ctx, conn, sessionID)
	if err != nil {
		return err
	}

	mu := d.sessionLock(sessionID)
	mu.Lock()
	_, err = d.sessions.Unlock(ctx, sessionID, userID)
	mu.Unlock()
	if err != nil {
		return err
	}

	d.hub.Broadcast(ctx, sessionID, SessionUnlockedEvent{Type: EventSessionUnlocked}, nil)
	return nil
}

func (d *Dispatcher) handleFinalize(ctx context.Context, sessionID uuid.UUID) error {
	mu := d.sessionLock(sessionID)
	mu.Lock()
	session, err := d.sessions.Finalize(ctx, sessionID)
	mu.Unlock()
	if err != nil {
		return err
	}

	total := 0
	if session.TotalAmount != nil {
		total = *session.TotalAmount
	}
	d.hub.Broadcast(ctx, sessionID, SessionFinalizedEvent{
		Type:        EventSessionFinalized,
		TotalAmount: total,
	}, nil)
	return nil
}

// connUser resolves the connection's bound participant to its linked user id.
// Lock ownership is tracked by user, so anonymous connections cannot lock or
// unlock.
func (d *Dispatcher) connUser(ctx context.Context, conn hub.Conn, sessionID uuid.UUID) (uuid.UUID, error) {
	participantID, ok := d.hub.Participant(conn)
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "join the session first")
	}
	participants, err := d.sessions.ListParticipants(ctx, sessionID)
	if err != nil {
		return uuid.Nil, err
	}
	for _, participant := range participants {
		if participant.ID != participantID {
			continue
		}
		if participant.UserID == nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "anonymous participants cannot lock the session")
		}
		return *participant.UserID, nil
	}
	return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "participant not found in this session")
}

func (d *Dispatcher) sendState(ctx context.Context, conn hub.Conn, sessionID uuid.UUID) error {
	session, err := d.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	participants, err := d.sessions.ListParticipants(ctx, sessionID)
	if err != nil {
		return err
	}
	items, err := d.sessions.ListOrderItems(ctx, sessionID)
	if err != nil {
		return err
	}
	assigned, err := d.assignments.ListForSession(ctx, sessionID)
	if err != nil {
		return err
	}

	views := make([]ParticipantView, 0, len(participants))
	for _, participant := range participants {
		views = append(views, d.participantView(ctx, participant))
	}
	d.hub.Send(ctx, conn, SessionStateEvent{
		Type:         EventSessionState,
		Session:      session,
		Participants: views,
		OrderItems:   items,
		Assignments:  assigned,
	})
	return nil
}

// participantView enriches a participant with display fields of the linked
// user. Lookup failures degrade to the bare participant rather than failing
// the event.
func (d *Dispatcher) participantView(ctx context.Context, participant models.TableParticipant) ParticipantView {
	view := ParticipantView{
		ID:       participant.ID,
		UserID:   participant.UserID,
		JoinedAt: participant.JoinedAt,
	}
	if participant.UserID == nil {
		return view
	}
	user, err := d.sessions.GetUser(ctx, *participant.UserID)
	if err != nil {
		d.logg.Warn(d.logg.WithField(ctx, "user_id", participant.UserID.String()), "participant user lookup failed")
		return view
	}
	if user != nil {
		view.UserName = &user.Name
		view.AvatarURL = user.AvatarURL
	}
	return view
}
