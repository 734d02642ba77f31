package models

import (
	"time"

	"github.com/google/uuid"
)

// Restaurant identifies the venue a table session belongs to. RUT is the
// Chilean tax identifier the original data set keys restaurants by.
type Restaurant struct {
	RUT       string    `gorm:"column:rut;type:text;primaryKey" json:"rut"`
	Name      string    `gorm:"column:name;type:text;not null" json:"name"`
	Address   *string   `gorm:"column:address" json:"address,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// RestaurantTable is a physical table; sessions reference it so a QR code on
// the table can resolve straight to the open session.
type RestaurantTable struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RestaurantRUT string    `gorm:"column:restaurant_rut;type:text;not null" json:"restaurant_rut"`
	TableNumber   int       `gorm:"column:table_number;not null" json:"table_number"`
	Capacity      int       `gorm:"column:capacity;not null;default:4" json:"capacity"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
