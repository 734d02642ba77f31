package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// CommandKind enumerates every inbound message the socket accepts. The
// dispatch switch over kinds is exhaustive; an unlisted type never leaves
// DecodeCommand.
type CommandKind string

const (
	KindJoinSession            CommandKind = "join_session"
	KindAssignItem             CommandKind = "assign_item"
	KindRemoveAssignment       CommandKind = "remove_assignment"
	KindSelectableParticipants CommandKind = "get_selectable_participants"
	KindPayingForParticipants  CommandKind = "get_paying_for_participants"
	KindCalculateEqualSplit    CommandKind = "calculate_equal_split"
	KindRequestSummary         CommandKind = "request_summary"
	KindValidateAssignments    CommandKind = "validate_assignments"
	KindUnlockSession          CommandKind = "unlock_session"
	KindFinalizeSession        CommandKind = "finalize_session"
)

// JoinSessionCommand attaches the connection to a participant row. A nil
// UserID joins anonymously.
type JoinSessionCommand struct {
	UserID *uuid.UUID `json:"user_id"`
}

// AssignItemCommand creates an assignment. AssignedAmount is accepted on the
// wire for client convenience but never trusted; shares are recomputed
// server-side.
type AssignItemCommand struct {
	OrderItemID    uuid.UUID  `json:"order_item_id"`
	CreditorID     uuid.UUID  `json:"creditor_id"`
	DebtorID       *uuid.UUID `json:"debtor_id"`
	AssignedAmount int        `json:"assigned_amount"`
}

// RemoveAssignmentCommand deletes one assignment by id.
type RemoveAssignmentCommand struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
}

// ParticipantQueryCommand backs both participant-filter lookups: which users
// are still selectable as debtors on an item, and which users the requester
// is paying for on it.
type ParticipantQueryCommand struct {
	OrderItemID uuid.UUID `json:"order_item_id"`
	UserID      uuid.UUID `json:"user_id"`
}

// Command is a decoded inbound message. Exactly one payload pointer is
// non-nil and it matches Kind; kinds without a payload carry none.
type Command struct {
	Kind             CommandKind
	Join             *JoinSessionCommand
	Assign           *AssignItemCommand
	Remove           *RemoveAssignmentCommand
	ParticipantQuery *ParticipantQueryCommand
}

// DecodeCommand parses one wire message into the tagged union.
func DecodeCommand(raw []byte) (*Command, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode command envelope: %w", err)
	}

	cmd := &Command{Kind: CommandKind(envelope.Type)}
	switch cmd.Kind {
	case KindJoinSession:
		cmd.Join = &JoinSessionCommand{}
		if err := json.Unmarshal(raw, cmd.Join); err != nil {
			return nil, fmt.Errorf("decode %s: %w", cmd.Kind, err)
		}
	case KindAssignItem:
		cmd.Assign = &AssignItemCommand{}
		if err := json.Unmarshal(raw, cmd.Assign); err != nil {
			return nil, fmt.Errorf("decode %s: %w", cmd.Kind, err)
		}
	case KindRemoveAssignment:
		cmd.Remove = &RemoveAssignmentCommand{}
		if err := json.Unmarshal(raw, cmd.Remove); err != nil {
			return nil, fmt.Errorf("decode %s: %w", cmd.Kind, err)
		}
	case KindSelectableParticipants, KindPayingForParticipants:
		cmd.ParticipantQuery = &ParticipantQueryCommand{}
		if err := json.Unmarshal(raw, cmd.ParticipantQuery); err != nil {
			return nil, fmt.Errorf("decode %s: %w", cmd.Kind, err)
		}
	case KindCalculateEqualSplit, KindRequestSummary, KindValidateAssignments,
		KindUnlockSession, KindFinalizeSession:
		// no payload
	default:
		return nil, fmt.Errorf("unknown command type %q", envelope.Type)
	}
	return cmd, nil
}
