package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product carries the metadata the fulfillment engine needs: unit price and
// weight. Catalog management (images, categories, bulk import) lives in the
// product service.
type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SKU         string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"sku"`
	Name        string    `gorm:"type:varchar(256);not null" json:"name"`
	ClientID    uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	UnitPrice   int64     `gorm:"not null;default:0" json:"unit_price"`
	WeightValue float64   `gorm:"not null;default:0" json:"weight_value"`
	WeightUnit  string    `gorm:"type:varchar(8)" json:"weight_unit"` // kg, g or lb
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Client is a 3PL customer whose stock is stored and whose orders are
// fulfilled. Only active clients are picked up by monthly billing.
type Client struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CompanyName string    `gorm:"type:varchar(256);not null" json:"company_name"`
	Email       string    `gorm:"type:varchar(256);uniqueIndex;not null" json:"email"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
