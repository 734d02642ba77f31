package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/camilavaldes/splitabill-backend/pkg/enums"
)

// Wallet holds a user's internal balance. The balance must always equal the
// signed sum of the wallet's transactions; every write goes through the
// wallets repository inside a transaction scope.
type Wallet struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"user_id"`
	Balance   int            `gorm:"column:balance;not null;default:0" json:"balance"`
	Currency  enums.Currency `gorm:"column:currency;type:text;not null;default:'CLP'" json:"currency"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// WalletTransaction is an immutable signed ledger entry against a wallet.
// Rows are append-only; corrections are new entries, never edits.
type WalletTransaction struct {
	ID           uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	WalletID     uuid.UUID                   `gorm:"column:wallet_id;type:uuid;not null;index" json:"wallet_id"`
	SettlementID *uuid.UUID                  `gorm:"column:settlement_id;type:uuid" json:"settlement_id,omitempty"`
	InvoiceID    *uuid.UUID                  `gorm:"column:invoice_id;type:uuid" json:"invoice_id,omitempty"`
	Type         enums.WalletTransactionType `gorm:"column:type;type:text;not null" json:"type"`
	Amount       int                         `gorm:"column:amount;not null" json:"amount"`
	Currency     enums.Currency              `gorm:"column:currency;type:text;not null;default:'CLP'" json:"currency"`
	Description  *string                     `gorm:"column:description" json:"description,omitempty"`
	CreatedAt    time.Time                   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
