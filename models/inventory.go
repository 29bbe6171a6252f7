package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryRecord holds the three-way stock ledger for one (product, client)
// pair. At all times total_stock = available_stock + reserved_stock +
// dispatched_stock; the same rule exists as a CHECK constraint in Postgres.
type InventoryRecord struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_product_client" json:"product_id"`
	ClientID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_product_client" json:"client_id"`
	TotalStock      int       `gorm:"not null;default:0" json:"total_stock"`
	AvailableStock  int       `gorm:"not null;default:0" json:"available_stock"`
	ReservedStock   int       `gorm:"not null;default:0" json:"reserved_stock"`
	DispatchedStock int       `gorm:"not null;default:0" json:"dispatched_stock"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Balanced reports whether the ledger invariant holds for this record.
func (r *InventoryRecord) Balanced() bool {
	return r.TotalStock == r.AvailableStock+r.ReservedStock+r.DispatchedStock
}
