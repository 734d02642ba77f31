package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is one billed line on the table's order. UnitPrice is in the
// session currency's minor unit. Rows are append-only once created.
type OrderItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"column:session_id;type:uuid;not null;index" json:"session_id"`
	ItemName  string    `gorm:"column:item_name;type:text;not null" json:"item_name"`
	UnitPrice int       `gorm:"column:unit_price;not null" json:"unit_price"`
	OrderedAt time.Time `gorm:"column:ordered_at;autoCreateTime" json:"ordered_at"`
}
