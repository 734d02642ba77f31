package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentReminder tracks when a pending invoice last nudged its payer.
type PaymentReminder struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID  uuid.UUID  `gorm:"column:invoice_id;type:uuid;not null;index" json:"invoice_id"`
	UserID     uuid.UUID  `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	LastSentAt *time.Time `gorm:"column:last_sent_at" json:"last_sent_at,omitempty"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
