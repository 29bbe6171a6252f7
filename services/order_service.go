package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"fulfillment-service/apperrors"
	"fulfillment-service/models"
	"fulfillment-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Weight a unit is assumed to have when the product carries no metadata.
const defaultUnitWeightKg = 0.5

// Shipping fee brackets by total order weight, in cents. Orders heavier than
// the last bracket pay its fee plus a per-kilogram surcharge.
var shippingBrackets = []struct {
	UpToKg float64
	Fee    int64
}{
	{1, 500},
	{5, 900},
	{10, 1500},
	{20, 2500},
	{30, 4000},
}

const overweightSurchargePerKg = 150

// CreateOrderRequest is the validated input for order creation.
type CreateOrderRequest struct {
	ClientID        uuid.UUID
	CreatedBy       uuid.UUID
	DeliveryAddress string
	Priority        string
	AttachmentName  string
	Items           []CreateOrderItem
}

// CreateOrderItem is one requested order line.
type CreateOrderItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// UpdateStatusRequest is the input for an order status transition.
type UpdateStatusRequest struct {
	Status         string
	TrackingNumber string
}

// OrderListResponse wraps a paginated order listing.
type OrderListResponse struct {
	Orders []models.Order `json:"orders"`
	Meta   MetaData       `json:"meta"`
}

// MetaData carries pagination info.
type MetaData struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

// OrderService owns the order lifecycle: creation with stock reservation and
// every status transition, including the inventory side effects and the
// invoice lock check.
type OrderService struct {
	orderRepo     repository.OrderRepository
	inventoryRepo repository.InventoryRepository
	productRepo   repository.ProductRepository
	invoiceRepo   repository.InvoiceRepository
	events        EventPublisher
	sns           SNSPublisher
	snsTopicArn   string
	logger        *zap.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	orderRepo repository.OrderRepository,
	inventoryRepo repository.InventoryRepository,
	productRepo repository.ProductRepository,
	invoiceRepo repository.InvoiceRepository,
	events EventPublisher,
	sns SNSPublisher,
	snsTopicArn string,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:     orderRepo,
		inventoryRepo: inventoryRepo,
		productRepo:   productRepo,
		invoiceRepo:   invoiceRepo,
		events:        events,
		sns:           sns,
		snsTopicArn:   snsTopicArn,
		logger:        logger,
	}
}

// CreateOrder validates the item list, computes weight, shipping fee and
// total, persists the order and reserves stock for every item. The sequence
// is all-or-nothing: if any reservation fails, the reservations already made
// are released and the order and its items are deleted again.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, *apperrors.Error) {
	if req.ClientID == uuid.Nil {
		return nil, apperrors.Validation("clientId is required")
	}
	if strings.TrimSpace(req.DeliveryAddress) == "" {
		return nil, apperrors.Validation("deliveryAddress is required")
	}
	if len(req.Items) == 0 {
		return nil, apperrors.Validation("At least one item is required")
	}

	productIDs := make([]uuid.UUID, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, apperrors.Validation("Item quantity must be a positive integer").
				WithDetails(map[string]interface{}{"productId": item.ProductID})
		}
		productIDs = append(productIDs, item.ProductID)
	}

	products, err := s.productRepo.FindByIDs(ctx, productIDs)
	if err != nil {
		s.logger.Error("CreateOrder: product lookup failed", zap.Error(err))
		return nil, apperrors.FromDB(err)
	}

	var totalWeight float64
	var itemsTotal int64
	items := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, apperrors.Validation("Unknown product in item list").
				WithDetails(map[string]interface{}{"productId": item.ProductID})
		}

		if appErr := s.checkStock(ctx, item.ProductID, req.ClientID, item.Quantity); appErr != nil {
			return nil, appErr
		}

		totalWeight += unitWeightKg(product) * float64(item.Quantity)
		itemsTotal += product.UnitPrice * int64(item.Quantity)
		items = append(items, models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: product.UnitPrice,
		})
	}

	shippingFee := shippingFeeFor(totalWeight)
	priority := req.Priority
	if priority == "" {
		priority = "normal"
	}

	order := &models.Order{
		OrderNumber:     newOrderNumber(),
		ClientID:        req.ClientID,
		CreatedBy:       req.CreatedBy,
		DeliveryAddress: req.DeliveryAddress,
		Status:          models.OrderStatusPending,
		Priority:        priority,
		AttachmentName:  req.AttachmentName,
		TotalWeightKg:   math.Round(totalWeight*1000) / 1000,
		ShippingFee:     shippingFee,
		TotalAmount:     itemsTotal + shippingFee,
		OrderItems:      items,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		s.logger.Error("CreateOrder: persist failed", zap.Error(err))
		return nil, apperrors.FromDB(err)
	}

	// Reserve stock per item; unwind everything on the first failure.
	for i, item := range order.OrderItems {
		if _, err := s.inventoryRepo.Reserve(ctx, item.ProductID, order.ClientID, item.Quantity); err != nil {
			s.rollbackCreate(ctx, order, i)
			return nil, s.reservationError(err, item.ProductID, item.Quantity)
		}
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("client_id", order.ClientID.String()),
		zap.Int("items", len(order.OrderItems)),
	)

	return order, nil
}

// UpdateStatus applies one lifecycle transition. The invoice lock is checked
// before transition validity: a locked order rejects every mutation,
// including cancellation.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, req *UpdateStatusRequest, actorID uuid.UUID) (*models.Order, *apperrors.Error) {
	if !models.IsValidOrderStatus(req.Status) {
		return nil, apperrors.Validation("Unknown order status").
			WithDetails(map[string]interface{}{"status": req.Status})
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Order")
		}
		return nil, apperrors.FromDB(err)
	}

	if appErr := s.checkInvoiceLock(ctx, order); appErr != nil {
		return nil, appErr
	}

	if !models.CanTransition(order.Status, req.Status) {
		return nil, apperrors.New(http.StatusBadRequest, apperrors.CodeInvalidTransition,
			"Status transition is not allowed").
			WithDetails(map[string]interface{}{
				"currentStatus":      order.Status,
				"attemptedStatus":    req.Status,
				"allowedTransitions": models.AllowedTransitions(order.Status),
			})
	}

	fromStatus := order.Status
	now := time.Now()

	switch req.Status {
	case models.OrderStatusApproved:
		order.ApprovedBy = &actorID
		order.ApprovedAt = &now

	case models.OrderStatusPacked:
		order.PackedAt = &now

	case models.OrderStatusDispatched:
		// Move each line from reserved to dispatched. A per-item inventory
		// failure is logged and skipped rather than aborting the shipment;
		// the adjust operation exists to reconcile afterwards.
		for _, item := range order.OrderItems {
			if _, err := s.inventoryRepo.Dispatch(ctx, item.ProductID, order.ClientID, item.Quantity); err != nil {
				s.logger.Warn("Dispatch: inventory update failed for item",
					zap.String("order_id", order.ID.String()),
					zap.String("product_id", item.ProductID.String()),
					zap.Int("quantity", item.Quantity),
					zap.Error(err),
				)
			}
		}
		order.DispatchedAt = &now
		if req.TrackingNumber != "" {
			order.TrackingNumber = req.TrackingNumber
		}

	case models.OrderStatusCancelled:
		for _, item := range order.OrderItems {
			if _, err := s.inventoryRepo.Release(ctx, item.ProductID, order.ClientID, item.Quantity); err != nil {
				s.logger.Warn("Cancel: stock release failed for item",
					zap.String("order_id", order.ID.String()),
					zap.String("product_id", item.ProductID.String()),
					zap.Error(err),
				)
			}
		}
		order.CancelledAt = &now
	}

	order.Status = req.Status
	if err := s.orderRepo.Update(ctx, order); err != nil {
		s.logger.Error("UpdateStatus: persist failed", zap.Error(err))
		return nil, apperrors.FromDB(err)
	}

	s.publishStatusChange(ctx, order, fromStatus, actorID)

	s.logger.Info("Order transitioned",
		zap.String("order_id", order.ID.String()),
		zap.String("from", fromStatus),
		zap.String("to", order.Status),
	)

	return order, nil
}

// GetOrder returns one order with its items.
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, *apperrors.Error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Order")
		}
		return nil, apperrors.FromDB(err)
	}
	return order, nil
}

// ListOrders returns a paginated order listing, optionally scoped to a client.
func (s *OrderService) ListOrders(ctx context.Context, clientID *uuid.UUID, page, limit int) (*OrderListResponse, *apperrors.Error) {
	var (
		orders []models.Order
		total  int64
		err    error
	)
	if clientID != nil {
		orders, total, err = s.orderRepo.FindByClientID(ctx, *clientID, page, limit)
	} else {
		orders, total, err = s.orderRepo.FindAll(ctx, page, limit)
	}
	if err != nil {
		s.logger.Error("ListOrders failed", zap.Error(err))
		return nil, apperrors.FromDB(err)
	}

	return &OrderListResponse{
		Orders: orders,
		Meta: MetaData{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages(total, limit),
			HasMore:    total > int64(page*limit),
		},
	}, nil
}

// checkInvoiceLock rejects mutation of orders attached to a non-draft
// invoice, pointing the caller at the credit-note workflow.
func (s *OrderService) checkInvoiceLock(ctx context.Context, order *models.Order) *apperrors.Error {
	if order.InvoiceID == nil {
		return nil
	}
	inv, err := s.invoiceRepo.FindByID(ctx, *order.InvoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Dangling invoice reference does not lock the order.
			s.logger.Warn("Order references missing invoice",
				zap.String("order_id", order.ID.String()),
				zap.String("invoice_id", order.InvoiceID.String()),
			)
			return nil
		}
		return apperrors.FromDB(err)
	}
	if !InvoiceLocksOrder(inv) {
		return nil
	}
	return apperrors.New(http.StatusForbidden, apperrors.CodeOrderLocked,
		"Order is locked by invoice "+inv.InvoiceNumber+" ("+inv.Status+"); use the credit-note workflow to amend it").
		WithDetails(map[string]interface{}{
			"invoiceNumber": inv.InvoiceNumber,
			"invoiceStatus": inv.Status,
		})
}

// checkStock verifies available stock before anything is written.
func (s *OrderService) checkStock(ctx context.Context, productID, clientID uuid.UUID, qty int) *apperrors.Error {
	rec, err := s.inventoryRepo.FindByProductAndClient(ctx, productID, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Validation("No inventory record for product").
				WithDetails(map[string]interface{}{"productId": productID})
		}
		return apperrors.FromDB(err)
	}
	if rec.AvailableStock < qty {
		return apperrors.New(http.StatusBadRequest, apperrors.CodeInsufficientStock, "Insufficient available stock").
			WithDetails(map[string]interface{}{
				"productId": productID,
				"requested": qty,
				"available": rec.AvailableStock,
			})
	}
	return nil
}

// rollbackCreate undoes a partially created order: releases the reservations
// applied so far and hard-deletes the order row and its items.
func (s *OrderService) rollbackCreate(ctx context.Context, order *models.Order, reservedCount int) {
	for j := 0; j < reservedCount; j++ {
		item := order.OrderItems[j]
		if _, err := s.inventoryRepo.Release(ctx, item.ProductID, order.ClientID, item.Quantity); err != nil {
			s.logger.Error("CreateOrder rollback: release failed",
				zap.String("order_id", order.ID.String()),
				zap.String("product_id", item.ProductID.String()),
				zap.Error(err),
			)
		}
	}
	if err := s.orderRepo.HardDelete(ctx, order.ID); err != nil {
		s.logger.Error("CreateOrder rollback: order delete failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}

// reservationError maps ledger sentinels onto API errors.
func (s *OrderService) reservationError(err error, productID uuid.UUID, qty int) *apperrors.Error {
	switch {
	case errors.Is(err, repository.ErrInsufficientStock):
		return apperrors.New(http.StatusBadRequest, apperrors.CodeInsufficientStock, "Insufficient available stock").
			WithDetails(map[string]interface{}{"productId": productID, "requested": qty})
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.Validation("No inventory record for product").
			WithDetails(map[string]interface{}{"productId": productID})
	default:
		return apperrors.FromDB(err)
	}
}

func (s *OrderService) publishStatusChange(ctx context.Context, order *models.Order, fromStatus string, actorID uuid.UUID) {
	evt := models.OrderStatusChangedEvent{
		EventType:      "order_status_changed",
		OrderID:        order.ID.String(),
		OrderNumber:    order.OrderNumber,
		ClientID:       order.ClientID.String(),
		FromStatus:     fromStatus,
		ToStatus:       order.Status,
		TrackingNumber: order.TrackingNumber,
		ActorID:        actorID.String(),
		Timestamp:      time.Now().UTC(),
	}

	if s.events != nil {
		if err := s.events.Publish(ctx, order.ID.String(), evt); err != nil {
			s.logger.Warn("Kafka publish failed", zap.String("order_id", evt.OrderID), zap.Error(err))
		}
	}

	if s.sns != nil && s.snsTopicArn != "" {
		payload, err := json.Marshal(evt)
		if err == nil {
			if err := s.sns.Publish(ctx, s.snsTopicArn, payload); err != nil {
				// best-effort fan-out, the Kafka record is the source of truth
				s.logger.Warn("SNS publish failed", zap.String("order_id", evt.OrderID), zap.Error(err))
			}
		}
	}
}

// unitWeightKg converts product weight metadata to kilograms, falling back
// to the assumed default when metadata is missing.
func unitWeightKg(p models.Product) float64 {
	if p.WeightValue <= 0 {
		return defaultUnitWeightKg
	}
	switch p.WeightUnit {
	case "g":
		return p.WeightValue / 1000
	case "lb":
		return p.WeightValue * 0.45359237
	default: // kg
		return p.WeightValue
	}
}

// shippingFeeFor looks the total weight up in the bracket table.
func shippingFeeFor(totalKg float64) int64 {
	for _, b := range shippingBrackets {
		if totalKg <= b.UpToKg {
			return b.Fee
		}
	}
	last := shippingBrackets[len(shippingBrackets)-1]
	extraKg := int64(math.Ceil(totalKg - last.UpToKg))
	return last.Fee + extraKg*overweightSurchargePerKg
}

func newOrderNumber() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

func totalPages(total int64, limit int) int64 {
	if limit == 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
