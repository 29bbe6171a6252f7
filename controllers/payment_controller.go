package controllers

import (
	"net/http"
	"time"

	"fulfillment-service/apperrors"
	"fulfillment-service/middleware"
	"fulfillment-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentController handles HTTP requests for invoice payments.
type PaymentController struct {
	paymentService *services.PaymentService
}

// NewPaymentController creates a new PaymentController.
func NewPaymentController(paymentService *services.PaymentService) *PaymentController {
	return &PaymentController{paymentService: paymentService}
}

type recordPaymentPayload struct {
	Amount          int64      `json:"amount" binding:"required"`
	PaymentDate     *time.Time `json:"paymentDate"`
	PaymentMethod   string     `json:"paymentMethod"`
	ReferenceNumber string     `json:"referenceNumber"`
	Notes           string     `json:"notes"`
}

// RecordPayment handles POST /invoices/:id/payments.
func (pc *PaymentController) RecordPayment(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	invoiceID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice ID format"})
		return
	}

	var payload recordPaymentPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	payment, invoice, svcErr := pc.paymentService.RecordPayment(ctx.Request.Context(), invoiceID, &services.RecordPaymentRequest{
		Amount:          payload.Amount,
		PaymentDate:     payload.PaymentDate,
		PaymentMethod:   payload.PaymentMethod,
		ReferenceNumber: payload.ReferenceNumber,
		Notes:           payload.Notes,
		RecordedBy:      userID,
	})
	if svcErr != nil {
		apperrors.Respond(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"payment": payment,
		"invoice": invoice,
		"summary": services.Summary(invoice),
	})
}

// DeletePayment handles DELETE /invoices/:id/payments/:payment_id.
func (pc *PaymentController) DeletePayment(ctx *gin.Context) {
	invoiceID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice ID format"})
		return
	}
	paymentID, err := uuid.Parse(ctx.Param("payment_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment ID format"})
		return
	}

	invoice, svcErr := pc.paymentService.DeletePayment(ctx.Request.Context(), invoiceID, paymentID)
	if svcErr != nil {
		apperrors.Respond(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"invoice": invoice,
		"summary": services.Summary(invoice),
	})
}

// GetInvoiceByID handles GET /invoices/:id.
func (pc *PaymentController) GetInvoiceByID(ctx *gin.Context) {
	invoiceID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice ID format"})
		return
	}

	invoice, svcErr := pc.paymentService.GetInvoice(ctx.Request.Context(), invoiceID)
	if svcErr != nil {
		apperrors.Respond(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"invoice": invoice, "summary": services.Summary(invoice)})
}
