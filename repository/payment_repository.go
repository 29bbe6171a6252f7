package repository

import (
	"context"

	"fulfillment-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentRepository defines data access for invoice payments.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.InvoicePayment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.InvoicePayment, error)
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoicePayment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// GormPaymentRepository implements PaymentRepository using GORM.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository.
func NewGormPaymentRepository(db *gorm.DB) PaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) Create(ctx context.Context, payment *models.InvoicePayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.InvoicePayment, error) {
	var p models.InvoicePayment
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormPaymentRepository) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoicePayment, error) {
	var payments []models.InvoicePayment
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("payment_date ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *GormPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.InvoicePayment{}, "id = ?", id).Error
}
