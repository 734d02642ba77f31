package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/camilavaldes/splitabill-backend/pkg/enums"
)

// Group is a circle of users who settle bills with each other. Invoices are
// only raised between users who share a group.
type Group struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string         `gorm:"column:name;type:text;not null" json:"name"`
	Slug        string         `gorm:"column:slug;type:text;not null;uniqueIndex" json:"slug"`
	Description *string        `gorm:"column:description" json:"description,omitempty"`
	Currency    enums.Currency `gorm:"column:currency;type:text;not null;default:'CLP'" json:"currency"`
	CreatedBy   uuid.UUID      `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// GroupMember joins a user into a group.
type GroupMember struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	GroupID uuid.UUID `gorm:"column:group_id;type:uuid;not null;uniqueIndex:uq_group_members_group_user" json:"group_id"`
	UserID  uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:uq_group_members_group_user" json:"user_id"`
	AddedAt time.Time `gorm:"column:added_at;autoCreateTime" json:"added_at"`
}
