package models

import (
	"time"

	"github.com/google/uuid"
)

// TableParticipant attaches a device/person to a session. UserID is nil for
// anonymous guests. One row per (session, user) pair; immutable after create.
type TableParticipant struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SessionID uuid.UUID  `gorm:"column:session_id;type:uuid;not null;index" json:"session_id"`
	UserID    *uuid.UUID `gorm:"column:user_id;type:uuid" json:"user_id,omitempty"`
	JoinedAt  time.Time  `gorm:"column:joined_at;autoCreateTime" json:"joined_at"`
}
