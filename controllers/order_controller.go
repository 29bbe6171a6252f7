package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"fulfillment-service/apperrors"
	"fulfillment-service/middleware"
	"fulfillment-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderController handles HTTP requests for orders.
type OrderController struct {
	orderService *services.OrderService
}

// NewOrderController creates a new OrderController.
func NewOrderController(orderService *services.OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

type createOrderItemPayload struct {
	ProductID uuid.UUID `json:"productId" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// CreateOrder handles POST /orders. The body is multipart: clientId, a
// JSON-encoded items array, deliveryAddress and an optional attachment.
func (oc *OrderController) CreateOrder(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	createdBy, err := uuid.Parse(userID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	clientID, err := uuid.Parse(ctx.PostForm("clientId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid clientId"})
		return
	}

	var items []createOrderItemPayload
	if err := json.Unmarshal([]byte(ctx.PostForm("items")), &items); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "items must be a JSON array", "details": err.Error()})
		return
	}

	attachmentName := ""
	if file, err := ctx.FormFile("attachment"); err == nil && file != nil {
		// File storage is handled by the upload service; only the name is
		// kept on the order.
		attachmentName = file.Filename
	}

	req := &services.CreateOrderRequest{
		ClientID:        clientID,
		CreatedBy:       createdBy,
		DeliveryAddress: ctx.PostForm("deliveryAddress"),
		Priority:        ctx.PostForm("priority"),
		AttachmentName:  attachmentName,
	}
	for _, it := range items {
		req.Items = append(req.Items, services.CreateOrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		})
	}

	order, svcErr := oc.orderService.CreateOrder(ctx.Request.Context(), req)
	if svcErr != nil {
		apperrors.Respond(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"order": order})
}

type updateStatusPayload struct {
	Status         string `json:"status" binding:"required"`
	TrackingNumber string `json:"trackingNumber"`
}

// UpdateStatus handles PUT /orders/:id/status.
func (oc *OrderController) UpdateStatus(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	actorID, err := uuid.Parse(userID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	orderID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID format"})
		return
	}

	var payload updateStatusPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	order, svcErr := oc.orderService.UpdateStatus(ctx.Request.Context(), orderID, &services.UpdateStatusRequest{
		Status:         payload.Status,
		TrackingNumber: payload.TrackingNumber,
	}, actorID)
	if svcErr != nil {
		apperrors.Respond(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

// GetOrderByID handles GET /orders/:id.
func (oc *OrderController) GetOrderByID(ctx *gin.Context) {
	orderID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID format"})
		return
	}

	order, svcErr := oc.orderService.GetOrder(ctx.Request.Context(), orderID)
	if svcErr != nil {
		apperrors.Respond(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

// GetOrders handles GET /orders with pagination and an optional clientId
// filter.
func (oc *OrderController) GetOrders(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)

	var clientID *uuid.UUID
	if raw := ctx.Query("clientId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid clientId"})
			return
		}
		clientID = &id
	}

	result, svcErr := oc.orderService.ListOrders(ctx.Request.Context(), clientID, page, limit)
	if svcErr != nil {
		apperrors.Respond(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// parsePaginationParams extracts and validates page/limit query params.
func parsePaginationParams(ctx *gin.Context) (int, int) {
	const maxLimit = 100
	pageInt, limitInt := 1, 10
	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		pageInt = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("limit", "10")); err == nil && l > 0 {
		if l > maxLimit {
			l = maxLimit
		}
		limitInt = l
	}
	return pageInt, limitInt
}
