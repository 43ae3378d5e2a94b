package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Product struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title       string         `gorm:"not null;index" json:"title"`
	Slug        string         `gorm:"uniqueIndex;not null" json:"slug"`
	Description string         `json:"description"`
	Price       float64        `gorm:"not null" json:"price"`
	Discount    int            `gorm:"default:0" json:"discount"` // percent off, 0-100
	Stock       int            `gorm:"default:0" json:"stock"`
	Status      string         `gorm:"default:active;index" json:"status"` // active, hidden
	Categories  []Category     `gorm:"many2many:product_categories" json:"categories,omitempty"`
	Images      []ProductImage `gorm:"foreignKey:ProductID" json:"images,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// DiscountedPrice returns the unit price with the product's own discount
// applied, rounded to cents.
func (p *Product) DiscountedPrice() float64 {
	if p.Discount <= 0 {
		return p.Price
	}
	price := p.Price * (1 - float64(p.Discount)/100)
	return math.Round(price*100) / 100
}
