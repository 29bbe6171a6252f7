package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Invoice statuses. balance_due and status are derived from
// (total_amount, paid_amount) by the billing deriver and must never be set
// independently of it. void and overdue are managed outside the payment path.
const (
	InvoiceStatusDraft   = "draft"
	InvoiceStatusSent    = "sent"
	InvoiceStatusPartial = "partial"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusOverdue = "overdue"
	InvoiceStatusVoid    = "void"
)

// Invoice bills a client either for a single order (OrderID set) or for a
// billing period (BillingMonth/BillingYear set, monthly generator). All
// amounts are integer cents.
type Invoice struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNumber string     `gorm:"type:varchar(40);uniqueIndex;not null" json:"invoice_number"`
	ClientID      uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_invoice_client_period" json:"client_id"`
	OrderID       *uuid.UUID `gorm:"type:uuid;index" json:"order_id,omitempty"`
	BillingMonth  *int       `gorm:"uniqueIndex:idx_invoice_client_period" json:"billing_month,omitempty"`
	BillingYear   *int       `gorm:"uniqueIndex:idx_invoice_client_period" json:"billing_year,omitempty"`
	TotalAmount   int64      `gorm:"not null;default:0" json:"total_amount"`
	PaidAmount    int64      `gorm:"not null;default:0" json:"paid_amount"`
	BalanceDue    int64      `gorm:"not null;default:0" json:"balance_due"`
	Status        string     `gorm:"type:varchar(16);not null;default:'draft'" json:"status"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	PaidDate      *time.Time `json:"paid_date,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt    `gorm:"index" json:"-"`
	LineItems     []InvoiceLineItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"line_items,omitempty"`
}

// InvoiceLineItem is one billed order on a monthly invoice.
type InvoiceLineItem struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID   uuid.UUID `gorm:"type:uuid;not null;index" json:"invoice_id"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null" json:"order_id"`
	Description string    `gorm:"type:varchar(256);not null" json:"description"`
	Units       int       `gorm:"not null" json:"units"`
	Amount      int64     `gorm:"not null" json:"amount"`
}

// InvoicePayment is an append-only ledger entry against an invoice.
// Deleting one (corrections only) re-derives the parent invoice state from
// the remaining entries.
type InvoicePayment struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID       uuid.UUID `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Amount          int64     `gorm:"not null" json:"amount"`
	PaymentDate     time.Time `gorm:"not null" json:"payment_date"`
	PaymentMethod   string    `gorm:"type:varchar(32)" json:"payment_method,omitempty"`
	ReferenceNumber string    `gorm:"type:varchar(128)" json:"reference_number,omitempty"`
	Notes           string    `gorm:"type:text" json:"notes,omitempty"`
	RecordedBy      string    `gorm:"type:varchar(128)" json:"recorded_by,omitempty"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}
