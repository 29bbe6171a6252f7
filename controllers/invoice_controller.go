package controllers

import (
	"net/http"

	"fulfillment-service/apperrors"
	"fulfillment-service/services"

	"github.com/gin-gonic/gin"
)

// InvoiceController handles internal billing endpoints.
type InvoiceController struct {
	monthlyService *services.MonthlyInvoiceService
}

// NewInvoiceController creates a new InvoiceController.
func NewInvoiceController(monthlyService *services.MonthlyInvoiceService) *InvoiceController {
	return &InvoiceController{monthlyService: monthlyService}
}

// GenerateMonthly handles POST /invoices/generate-monthly-auto, the
// scheduler's trigger. Re-running for the same period is safe: clients
// already billed are reported as skipped.
func (ic *InvoiceController) GenerateMonthly(ctx *gin.Context) {
	result, svcErr := ic.monthlyService.GenerateMonthly(ctx.Request.Context())
	if svcErr != nil {
		apperrors.Respond(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"successful": result.Successful,
		"skipped":    result.Skipped,
		"errors":     result.Errors,
		"results":    result.Results,
		"month":      result.BillingMonth,
		"year":       result.BillingYear,
		"duration":   result.Duration,
	})
}
