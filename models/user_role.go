package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole is the persisted role record keyed by the authenticated
// identity. The role value is always recomputed from the email on write;
// the table only provides continuity for display and authorization checks.
type UserRole struct {
	UID       uuid.UUID `gorm:"type:uuid;primary_key" json:"uid"`
	Email     string    `gorm:"not null;index" json:"email"`
	Role      string    `gorm:"not null;default:user" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
