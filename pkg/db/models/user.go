package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the minimal identity surface the session engine consumes.
// Registration and OAuth live in a separate service; this table is read-mostly
// here.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email     string    `gorm:"column:email;type:text;not null;uniqueIndex" json:"email"`
	Name      string    `gorm:"column:name;type:text;not null" json:"name"`
	AvatarURL *string   `gorm:"column:avatar_url" json:"avatar_url,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
