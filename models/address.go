package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Address is a saved delivery address. At most one address per user may be
// the default; the handler clears competing defaults inside a transaction
// on every write that sets one.
type Address struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Name      string         `gorm:"not null" json:"name"`
	Email     string         `json:"email"`
	Street    string         `gorm:"not null" json:"street"`
	City      string         `gorm:"not null" json:"city"`
	State     string         `gorm:"not null" json:"state"`
	Zip       string         `gorm:"not null" json:"zip"`
	IsDefault bool           `gorm:"default:false" json:"is_default"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (a *Address) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
