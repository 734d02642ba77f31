package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/camilavaldes/splitabill-backend/pkg/enums"
)

// Invoice is a directional payable obligation from one user to another,
// backed by one or more item assignments. Status moves pending→paid one way.
type Invoice struct {
	ID             uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SessionID      uuid.UUID               `gorm:"column:session_id;type:uuid;not null;index" json:"session_id"`
	GroupID        *uuid.UUID              `gorm:"column:group_id;type:uuid" json:"group_id,omitempty"`
	FromUserID     uuid.UUID               `gorm:"column:from_user_id;type:uuid;not null" json:"from_user_id"`
	ToUserID       uuid.UUID               `gorm:"column:to_user_id;type:uuid;not null" json:"to_user_id"`
	TotalAmount    int                     `gorm:"column:total_amount;not null" json:"total_amount"`
	Description    *string                 `gorm:"column:description" json:"description,omitempty"`
	Currency       enums.Currency          `gorm:"column:currency;type:text;not null;default:'CLP'" json:"currency"`
	Status         enums.InvoiceStatus     `gorm:"column:status;type:text;not null;default:'pending'" json:"status"`
	DueDate        *time.Time              `gorm:"column:due_date" json:"due_date,omitempty"`
	PaidAt         *time.Time              `gorm:"column:paid_at" json:"paid_at,omitempty"`
	FrequencyCycle enums.ReminderFrequency `gorm:"column:frequency_cycle;type:text;not null;default:'none'" json:"frequency_cycle"`
	CreatedAt      time.Time               `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time               `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// InvoiceItem links an invoice to one of the assignments it settles.
type InvoiceItem struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID        uuid.UUID `gorm:"column:invoice_id;type:uuid;not null;uniqueIndex:uq_invoice_items_invoice_assignment" json:"invoice_id"`
	ItemAssignmentID uuid.UUID `gorm:"column:item_assignment_id;type:uuid;not null;uniqueIndex:uq_invoice_items_invoice_assignment" json:"item_assignment_id"`
}
