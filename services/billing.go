package services

import (
	"fmt"

	"fulfillment-service/apperrors"
	"fulfillment-service/models"
)

// The two deriver functions below are the only place invoice payment state
// is computed. Every path that touches paid_amount goes through them;
// computing balance or status ad hoc anywhere else is a bug.

// ComputeBalanceDue returns the outstanding balance, never negative.
// Amounts are integer cents.
func ComputeBalanceDue(totalAmount, paidAmount int64) int64 {
	balance := totalAmount - paidAmount
	if balance < 0 {
		return 0
	}
	return balance
}

// DeriveInvoiceStatus returns the payment status implied by
// (total_amount, paid_amount).
func DeriveInvoiceStatus(totalAmount, paidAmount int64) string {
	switch {
	case paidAmount <= 0:
		return models.InvoiceStatusSent
	case paidAmount < totalAmount:
		return models.InvoiceStatusPartial
	default:
		return models.InvoiceStatusPaid
	}
}

// ValidateInvoiceState asserts the stored invoice is internally consistent
// before any mutation is accepted. A violation is a hard failure; persisted
// financial fields are never silently re-derived and overwritten.
func ValidateInvoiceState(inv *models.Invoice) *apperrors.Error {
	fail := func(reason string) *apperrors.Error {
		e := apperrors.New(409, apperrors.CodeIntegrityViolation,
			fmt.Sprintf("Invoice %s is internally inconsistent: %s", inv.InvoiceNumber, reason))
		e.Details = map[string]interface{}{
			"invoiceNumber": inv.InvoiceNumber,
			"totalAmount":   inv.TotalAmount,
			"paidAmount":    inv.PaidAmount,
			"balanceDue":    inv.BalanceDue,
			"status":        inv.Status,
		}
		return e
	}

	if inv.PaidAmount > inv.TotalAmount {
		return fail("paid amount exceeds total")
	}
	if inv.BalanceDue < 0 {
		return fail("negative balance due")
	}
	if inv.Status == models.InvoiceStatusPaid && inv.BalanceDue != 0 {
		return fail("status is paid but balance is outstanding")
	}
	if inv.Status == models.InvoiceStatusSent && inv.PaidAmount != 0 {
		return fail("status is sent but payments have been applied")
	}
	if inv.BalanceDue != inv.TotalAmount-inv.PaidAmount {
		return fail("balance due does not match total minus paid")
	}
	return nil
}

// InvoiceLocksOrder is the invoice lock predicate: once an order is attached
// to a non-draft invoice it is immutable except through the credit-note
// workflow. Draft invoices do not lock their orders.
func InvoiceLocksOrder(inv *models.Invoice) bool {
	return inv != nil && inv.Status != models.InvoiceStatusDraft
}
