package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/camilavaldes/splitabill-backend/pkg/enums"
)

// TableSession is one bill-splitting interaction over one table visit.
// TotalAmount stays nil until finalize; Locked freezes assignment mutation
// while the split is being validated.
type TableSession struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RestaurantRUT  string              `gorm:"column:restaurant_rut;type:text;not null" json:"restaurant_rut"`
	TableID        uuid.UUID           `gorm:"column:table_id;type:uuid;not null" json:"table_id"`
	Status         enums.SessionStatus `gorm:"column:status;type:text;not null;default:'active'" json:"status"`
	Locked         bool                `gorm:"column:locked;not null;default:false" json:"locked"`
	LockedByUserID *uuid.UUID          `gorm:"column:locked_by_user_id;type:uuid" json:"locked_by_user_id,omitempty"`
	TotalAmount    *int                `gorm:"column:total_amount" json:"total_amount,omitempty"`
	Currency       enums.Currency      `gorm:"column:currency;type:text;not null;default:'CLP'" json:"currency"`
	SessionStart   time.Time           `gorm:"column:session_start;autoCreateTime" json:"session_start"`
	SessionEnd     *time.Time          `gorm:"column:session_end" json:"session_end,omitempty"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Participants []TableParticipant `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"participants,omitempty"`
	OrderItems   []OrderItem        `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"`
}
