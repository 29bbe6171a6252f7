package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fulfillment-service/apperrors"
	"fulfillment-service/models"
	"fulfillment-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RecordPaymentRequest is the input for applying a payment to an invoice.
type RecordPaymentRequest struct {
	Amount          int64
	PaymentDate     *time.Time
	PaymentMethod   string
	ReferenceNumber string
	Notes           string
	RecordedBy      string
}

// PaymentSummary reports the invoice's derived state after a mutation.
type PaymentSummary struct {
	TotalAmount int64  `json:"total_amount"`
	PaidAmount  int64  `json:"paid_amount"`
	BalanceDue  int64  `json:"balance_due"`
	Status      string `json:"status"`
}

// PaymentService owns the invoice payment ledger. All writes to an invoice's
// derived fields flow through here and the deriver functions in billing.go.
type PaymentService struct {
	invoiceRepo repository.InvoiceRepository
	paymentRepo repository.PaymentRepository
	events      EventPublisher
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	events EventPublisher,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		events:      events,
		logger:      logger,
	}
}

// RecordPayment appends a payment row and re-derives the invoice's
// paid_amount, balance_due and status. Overpayment is rejected up front; if
// the invoice update fails after the row was inserted, the row is deleted
// again so ledger and invoice never diverge.
func (s *PaymentService) RecordPayment(ctx context.Context, invoiceID uuid.UUID, req *RecordPaymentRequest) (*models.InvoicePayment, *models.Invoice, *apperrors.Error) {
	if req.Amount <= 0 {
		return nil, nil, apperrors.Validation("Payment amount must be positive")
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.NotFound("Invoice")
		}
		return nil, nil, apperrors.FromDB(err)
	}

	if invoice.Status == models.InvoiceStatusVoid {
		return nil, nil, apperrors.Validation("Cannot record a payment against a void invoice")
	}
	if appErr := ValidateInvoiceState(invoice); appErr != nil {
		return nil, nil, appErr
	}

	if invoice.PaidAmount+req.Amount > invoice.TotalAmount {
		return nil, nil, apperrors.New(http.StatusBadRequest, apperrors.CodePaymentExceedsTotal,
			"Payment would exceed the invoice total").
			WithDetails(map[string]interface{}{
				"totalAmount": invoice.TotalAmount,
				"alreadyPaid": invoice.PaidAmount,
				"maxPayment":  invoice.TotalAmount - invoice.PaidAmount,
			})
	}

	paymentDate := time.Now()
	if req.PaymentDate != nil {
		paymentDate = *req.PaymentDate
	}

	payment := &models.InvoicePayment{
		InvoiceID:       invoice.ID,
		Amount:          req.Amount,
		PaymentDate:     paymentDate,
		PaymentMethod:   req.PaymentMethod,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
		RecordedBy:      req.RecordedBy,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		s.logger.Error("RecordPayment: insert failed", zap.Error(err))
		return nil, nil, apperrors.FromDB(err)
	}

	newPaid := invoice.PaidAmount + req.Amount
	newBalance := ComputeBalanceDue(invoice.TotalAmount, newPaid)
	newStatus := DeriveInvoiceStatus(invoice.TotalAmount, newPaid)

	paidDate := invoice.PaidDate
	if newStatus == models.InvoiceStatusPaid && invoice.Status != models.InvoiceStatusPaid {
		now := time.Now()
		paidDate = &now
	}

	if err := s.invoiceRepo.UpdateDerivedFields(ctx, invoice.ID, invoice.PaidAmount, newPaid, newBalance, newStatus, paidDate); err != nil {
		// Compensate: remove the ledger row we just inserted.
		if delErr := s.paymentRepo.Delete(ctx, payment.ID); delErr != nil {
			s.logger.Error("RecordPayment: compensating delete failed",
				zap.String("payment_id", payment.ID.String()),
				zap.Error(delErr),
			)
		}
		if errors.Is(err, repository.ErrInvoiceStale) {
			return nil, nil, apperrors.New(http.StatusConflict, apperrors.CodeIntegrityViolation,
				"Invoice was modified concurrently, retry the payment")
		}
		s.logger.Error("RecordPayment: invoice update failed", zap.Error(err))
		return nil, nil, apperrors.FromDB(err)
	}

	invoice.PaidAmount = newPaid
	invoice.BalanceDue = newBalance
	invoice.Status = newStatus
	invoice.PaidDate = paidDate

	s.publishPaymentRecorded(ctx, payment, invoice)

	s.logger.Info("Payment recorded",
		zap.String("invoice_id", invoice.ID.String()),
		zap.Int64("amount", req.Amount),
		zap.String("status", invoice.Status),
	)

	return payment, invoice, nil
}

// DeletePayment removes a ledger entry (corrections only) and re-derives the
// parent invoice's state from what remains.
func (s *PaymentService) DeletePayment(ctx context.Context, invoiceID, paymentID uuid.UUID) (*models.Invoice, *apperrors.Error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Payment")
		}
		return nil, apperrors.FromDB(err)
	}
	if payment.InvoiceID != invoiceID {
		return nil, apperrors.Validation("Payment does not belong to this invoice")
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Invoice")
		}
		return nil, apperrors.FromDB(err)
	}

	if err := s.paymentRepo.Delete(ctx, paymentID); err != nil {
		return nil, apperrors.FromDB(err)
	}

	newPaid := invoice.PaidAmount - payment.Amount
	if newPaid < 0 {
		newPaid = 0
	}
	newBalance := ComputeBalanceDue(invoice.TotalAmount, newPaid)
	newStatus := DeriveInvoiceStatus(invoice.TotalAmount, newPaid)

	paidDate := invoice.PaidDate
	if invoice.Status == models.InvoiceStatusPaid && newStatus != models.InvoiceStatusPaid {
		paidDate = nil
	}

	if err := s.invoiceRepo.UpdateDerivedFields(ctx, invoice.ID, invoice.PaidAmount, newPaid, newBalance, newStatus, paidDate); err != nil {
		// Compensate: put the ledger row back so ledger and invoice agree.
		if insErr := s.paymentRepo.Create(ctx, payment); insErr != nil {
			s.logger.Error("DeletePayment: compensating insert failed",
				zap.String("payment_id", payment.ID.String()),
				zap.Error(insErr),
			)
		}
		if errors.Is(err, repository.ErrInvoiceStale) {
			return nil, apperrors.New(http.StatusConflict, apperrors.CodeIntegrityViolation,
				"Invoice was modified concurrently, retry the correction")
		}
		s.logger.Error("DeletePayment: invoice update failed", zap.Error(err))
		return nil, apperrors.FromDB(err)
	}

	invoice.PaidAmount = newPaid
	invoice.BalanceDue = newBalance
	invoice.Status = newStatus
	invoice.PaidDate = paidDate

	s.logger.Info("Payment deleted",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("payment_id", paymentID.String()),
		zap.Int64("amount", payment.Amount),
	)

	return invoice, nil
}

// GetInvoice returns one invoice with its line items.
func (s *PaymentService) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, *apperrors.Error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Invoice")
		}
		return nil, apperrors.FromDB(err)
	}
	return invoice, nil
}

// Summary builds the response summary block for an invoice.
func Summary(inv *models.Invoice) PaymentSummary {
	return PaymentSummary{
		TotalAmount: inv.TotalAmount,
		PaidAmount:  inv.PaidAmount,
		BalanceDue:  inv.BalanceDue,
		Status:      inv.Status,
	}
}

func (s *PaymentService) publishPaymentRecorded(ctx context.Context, payment *models.InvoicePayment, invoice *models.Invoice) {
	if s.events == nil {
		return
	}
	evt := models.PaymentRecordedEvent{
		EventType:     "payment_recorded",
		PaymentID:     payment.ID.String(),
		InvoiceID:     invoice.ID.String(),
		InvoiceNumber: invoice.InvoiceNumber,
		Amount:        payment.Amount,
		InvoiceStatus: invoice.Status,
		Timestamp:     time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, invoice.ID.String(), evt); err != nil {
		s.logger.Warn("Kafka publish failed", zap.String("invoice_id", evt.InvoiceID), zap.Error(err))
	}
}
