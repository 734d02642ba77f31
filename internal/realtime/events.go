package realtime

import (
	"time"

	"github.com/google/uuid"

	"github.com/camilavaldes/splitabill-backend/internal/assignments"
	"github.com/camilavaldes/splitabill-backend/pkg/db/models"
)

// Outbound event type tags.
const (
	EventSessionState           = "session_state"
	EventParticipantJoined      = "participant_joined"
	EventParticipantLeft        = "participant_left"
	EventItemAssigned           = "item_assigned"
	EventAssignmentUpdated      = "assignment_updated"
	EventAssignmentRemoved      = "assignment_removed"
	EventSelectableParticipants = "selectable_participants"
	EventPayingForParticipants  = "paying_for_participants"
	EventEqualSplitCalculated   = "equal_split_calculated"
	EventSummaryUpdated         = "summary_updated"
	EventAssignmentsValidated   = "assignments_validated"
	EventSessionLocked          = "session_locked"
	EventSessionUnlocked        = "session_unlocked"
	EventSessionFinalized       = "session_finalized"
	EventInvoiceCreated         = "invoice_created"
	EventError                  = "error"
)

// ParticipantView is a participant enriched with the linked user's display
// fields. UserName and AvatarURL stay nil for anonymous participants.
type ParticipantView struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	JoinedAt  time.Time  `json:"joined_at"`
	UserName  *string    `json:"user_name,omitempty"`
	AvatarURL *string    `json:"user_avatar_url,omitempty"`
}

// SessionStateEvent is the full snapshot pushed on connect and after a join.
type SessionStateEvent struct {
	Type         string                  `json:"type"`
	Session      *models.TableSession    `json:"session"`
	Participants []ParticipantView       `json:"participants"`
	OrderItems   []models.OrderItem      `json:"order_items"`
	Assignments  []models.ItemAssignment `json:"assignments"`
}

func (e SessionStateEvent) EventType() string { return EventSessionState }

type ParticipantJoinedEvent struct {
	Type        string          `json:"type"`
	Participant ParticipantView `json:"participant"`
}

func (e ParticipantJoinedEvent) EventType() string { return EventParticipantJoined }

type ParticipantLeftEvent struct {
	Type          string    `json:"type"`
	ParticipantID uuid.UUID `json:"participant_id"`
}

func (e ParticipantLeftEvent) EventType() string { return EventParticipantLeft }

type ItemAssignedEvent struct {
	Type       string                `json:"type"`
	Assignment models.ItemAssignment `json:"assignment"`
}

func (e ItemAssignedEvent) EventType() string { return EventItemAssigned }

type AssignmentUpdatedEvent struct {
	Type           string    `json:"type"`
	AssignmentID   uuid.UUID `json:"assignment_id"`
	AssignedAmount int       `json:"assigned_amount"`
}

func (e AssignmentUpdatedEvent) EventType() string { return EventAssignmentUpdated }

type AssignmentRemovedEvent struct {
	Type         string    `json:"type"`
	AssignmentID uuid.UUID `json:"assignment_id"`
}

func (e AssignmentRemovedEvent) EventType() string { return EventAssignmentRemoved }

// ParticipantFilterEvent is the unicast reply to both participant lookups;
// Type distinguishes them.
type ParticipantFilterEvent struct {
	Type         string      `json:"type"`
	OrderItemID  uuid.UUID   `json:"order_item_id"`
	Participants []uuid.UUID `json:"participants"`
}

func (e ParticipantFilterEvent) EventType() string { return e.Type }

type EqualSplitCalculatedEvent struct {
	Type string `json:"type"`
	assignments.EqualSplitResult
}

func (e EqualSplitCalculatedEvent) EventType() string { return EventEqualSplitCalculated }

type SummaryUpdatedEvent struct {
	Type    string            `json:"type"`
	Summary map[uuid.UUID]int `json:"summary"`
}

func (e SummaryUpdatedEvent) EventType() string { return EventSummaryUpdated }

type AssignmentsValidatedEvent struct {
	Type string `json:"type"`
	assignments.ValidationResult
}

func (e AssignmentsValidatedEvent) EventType() string { return EventAssignmentsValidated }

type SessionLockedEvent struct {
	Type           string    `json:"type"`
	LockedByUserID uuid.UUID `json:"locked_by_user_id"`
}

func (e SessionLockedEvent) EventType() string { return EventSessionLocked }

type SessionUnlockedEvent struct {
	Type string `json:"type"`
}

func (e SessionUnlockedEvent) EventType() string { return EventSessionUnlocked }

type SessionFinalizedEvent struct {
	Type        string `json:"type"`
	TotalAmount int    `json:"total_amount"`
}

func (e SessionFinalizedEvent) EventType() string { return EventSessionFinalized }

type InvoiceCreatedEvent struct {
	Type    string          `json:"type"`
	Invoice *models.Invoice `json:"invoice"`
}

func (e InvoiceCreatedEvent) EventType() string { return EventInvoiceCreated }

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e ErrorEvent) EventType() string { return EventError }

func newErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: EventError, Message: message}
}
