package models

import "time"

// Events published to Kafka (and optionally SNS) for downstream consumers
// such as notification and reporting services.

// OrderStatusChangedEvent is emitted on every successful order transition.
type OrderStatusChangedEvent struct {
	EventType      string    `json:"event_type"`
	OrderID        string    `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	ClientID       string    `json:"client_id"`
	FromStatus     string    `json:"from_status"`
	ToStatus       string    `json:"to_status"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	ActorID        string    `json:"actor_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// InvoiceGeneratedEvent is emitted when the monthly generator persists an
// invoice for a client/period.
type InvoiceGeneratedEvent struct {
	EventType     string    `json:"event_type"`
	InvoiceID     string    `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	ClientID      string    `json:"client_id"`
	BillingMonth  int       `json:"billing_month"`
	BillingYear   int       `json:"billing_year"`
	TotalAmount   int64     `json:"total_amount"`
	OrdersBilled  int       `json:"orders_billed"`
	Timestamp     time.Time `json:"timestamp"`
}

// PaymentRecordedEvent is emitted when a payment is applied to an invoice.
type PaymentRecordedEvent struct {
	EventType     string    `json:"event_type"`
	PaymentID     string    `json:"payment_id"`
	InvoiceID     string    `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Amount        int64     `json:"amount"`
	InvoiceStatus string    `json:"invoice_status"`
	Timestamp     time.Time `json:"timestamp"`
}
