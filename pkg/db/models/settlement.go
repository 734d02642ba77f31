package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/camilavaldes/splitabill-backend/pkg/enums"
)

// Settlement records a payment event, inside or outside the app's wallet
// system, that discharges an invoice.
type Settlement struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID      *uuid.UUID     `gorm:"column:invoice_id;type:uuid" json:"invoice_id,omitempty"`
	FromUserID     uuid.UUID      `gorm:"column:from_user_id;type:uuid;not null" json:"from_user_id"`
	ToUserID       uuid.UUID      `gorm:"column:to_user_id;type:uuid;not null" json:"to_user_id"`
	Amount         int            `gorm:"column:amount;not null" json:"amount"`
	Currency       enums.Currency `gorm:"column:currency;type:text;not null;default:'CLP'" json:"currency"`
	SettlementDate time.Time      `gorm:"column:settlement_date;not null" json:"settlement_date"`
	PaymentMethod  *string        `gorm:"column:payment_method" json:"payment_method,omitempty"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
