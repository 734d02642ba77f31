package models

import (
	"github.com/google/uuid"
)

// ItemAssignment records who is fronting the money for a share of one order
// item (creditor) and on whose behalf (debtor; nil means self-pay). All
// assignments on one item carry the same AssignedAmount: unit_price divided by
// the assignment count, recomputed on every membership change.
type ItemAssignment struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderItemID    uuid.UUID  `gorm:"column:order_item_id;type:uuid;not null;index" json:"order_item_id"`
	CreditorID     uuid.UUID  `gorm:"column:creditor_id;type:uuid;not null" json:"creditor_id"`
	DebtorID       *uuid.UUID `gorm:"column:debtor_id;type:uuid" json:"debtor_id,omitempty"`
	AssignedAmount int        `gorm:"column:assigned_amount;not null" json:"assigned_amount"`
}
