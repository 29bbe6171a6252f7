package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order lifecycle statuses. Transitions only move forward through the
// table below; dispatched and cancelled are terminal.
const (
	OrderStatusPending    = "pending"
	OrderStatusApproved   = "approved"
	OrderStatusPacked     = "packed"
	OrderStatusDispatched = "dispatched"
	OrderStatusCancelled  = "cancelled"
)

var orderTransitions = map[string][]string{
	OrderStatusPending:    {OrderStatusApproved, OrderStatusCancelled},
	OrderStatusApproved:   {OrderStatusPacked, OrderStatusDispatched, OrderStatusCancelled},
	OrderStatusPacked:     {OrderStatusDispatched},
	OrderStatusDispatched: {},
	OrderStatusCancelled:  {},
}

// IsValidOrderStatus reports whether s is a known lifecycle status.
func IsValidOrderStatus(s string) bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from the given status.
func AllowedTransitions(from string) []string {
	next := orderTransitions[from]
	out := make([]string, len(next))
	copy(out, next)
	return out
}

// Order is a client fulfillment order. The delivery address is snapshotted
// at creation time so later client edits never change what was shipped.
// Orders are never hard-deleted by lifecycle operations; cancellation is a
// terminal status, not removal.
type Order struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber     string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_number"`
	ClientID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"client_id"`
	CreatedBy       uuid.UUID  `gorm:"type:uuid;not null" json:"created_by"`
	DeliveryAddress string     `gorm:"type:text;not null" json:"delivery_address"`
	Status          string     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Priority        string     `gorm:"type:varchar(16);not null;default:'normal'" json:"priority"`
	InvoiceID       *uuid.UUID `gorm:"type:uuid;index" json:"invoice_id,omitempty"`
	ApprovedBy      *uuid.UUID `gorm:"type:uuid" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	PackedAt        *time.Time `json:"packed_at,omitempty"`
	DispatchedAt    *time.Time `json:"dispatched_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	TrackingNumber  string     `gorm:"type:varchar(128)" json:"tracking_number,omitempty"`
	AttachmentName  string     `gorm:"type:varchar(256)" json:"attachment_name,omitempty"`
	TotalWeightKg   float64    `gorm:"not null;default:0" json:"total_weight_kg"`
	ShippingFee     int64      `gorm:"not null;default:0" json:"shipping_fee"`
	TotalAmount     int64      `gorm:"not null;default:0" json:"total_amount"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	OrderItems      []OrderItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items"`
}

// OrderItem is a single line of an order. Items are created atomically with
// the order and are immutable afterwards.
type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	UnitPrice int64     `gorm:"not null" json:"unit_price"`
}
