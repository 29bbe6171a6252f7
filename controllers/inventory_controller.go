package controllers

import (
	"net/http"

	"fulfillment-service/apperrors"
	"fulfillment-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InventoryController handles HTTP requests for the stock ledger.
type InventoryController struct {
	inventoryService *services.InventoryService
}

// NewInventoryController creates a new InventoryController.
func NewInventoryController(inventoryService *services.InventoryService) *InventoryController {
	return &InventoryController{inventoryService: inventoryService}
}

// GetRecord handles GET /inventory?productId=...&clientId=...
func (ic *InventoryController) GetRecord(ctx *gin.Context) {
	productID, err := uuid.Parse(ctx.Query("productId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid productId"})
		return
	}
	clientID, err := uuid.Parse(ctx.Query("clientId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid clientId"})
		return
	}

	rec, svcErr := ic.inventoryService.GetRecord(ctx.Request.Context(), productID, clientID)
	if svcErr != nil {
		apperrors.Respond(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"inventory": rec})
}

type adjustPayload struct {
	ProductID uuid.UUID `json:"productId" binding:"required"`
	ClientID  uuid.UUID `json:"clientId" binding:"required"`
	Delta     int       `json:"delta" binding:"required"`
}

// Adjust handles POST /inventory/adjust, the manual-correction path.
func (ic *InventoryController) Adjust(ctx *gin.Context) {
	var payload adjustPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	rec, svcErr := ic.inventoryService.Adjust(ctx.Request.Context(), payload.ProductID, payload.ClientID, payload.Delta)
	if svcErr != nil {
		apperrors.Respond(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"inventory": rec})
}
