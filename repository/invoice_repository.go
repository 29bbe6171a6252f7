package repository

import (
	"context"
	"errors"
	"time"

	"fulfillment-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrInvoiceStale means a concurrent writer changed the invoice between the
// caller's read and its guarded write. The caller re-reads and retries or
// compensates; it never overwrites blindly.
var ErrInvoiceStale = errors.New("invoice modified concurrently")

// InvoiceRepository defines data access for invoices.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	FindByClientAndPeriod(ctx context.Context, clientID uuid.UUID, month, year int) (*models.Invoice, error)
	UpdateDerivedFields(ctx context.Context, id uuid.UUID, expectedPaid, paidAmount, balanceDue int64, status string, paidDate *time.Time) error
}

// GormInvoiceRepository implements InvoiceRepository using GORM.
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository.
func NewGormInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	if err := r.db.WithContext(ctx).
		Preload("LineItems").
		First(&inv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *GormInvoiceRepository) FindByClientAndPeriod(ctx context.Context, clientID uuid.UUID, month, year int) (*models.Invoice, error) {
	var inv models.Invoice
	if err := r.db.WithContext(ctx).
		Where("client_id = ? AND billing_month = ? AND billing_year = ?", clientID, month, year).
		First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// UpdateDerivedFields persists the recomputed payment state. This is the only
// write path for paid_amount, balance_due, status and paid_date; nothing else
// may touch them. The write is guarded on the paid_amount the caller derived
// from, so two concurrent mutations can never both apply against the same
// stale read; the loser gets ErrInvoiceStale.
func (r *GormInvoiceRepository) UpdateDerivedFields(ctx context.Context, id uuid.UUID, expectedPaid, paidAmount, balanceDue int64, status string, paidDate *time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ? AND paid_amount = ?", id, expectedPaid).
		Updates(map[string]interface{}{
			"paid_amount": paidAmount,
			"balance_due": balanceDue,
			"status":      status,
			"paid_date":   paidDate,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Missing row and failed guard both touch nothing; tell them apart.
		var exists models.Invoice
		if err := r.db.WithContext(ctx).Select("id").First(&exists, "id = ?", id).Error; err != nil {
			return err
		}
		return ErrInvoiceStale
	}
	return nil
}
