package repository

import (
	"context"
	"time"

	"fulfillment-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderRepository defines data access for orders and their items.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByClientID(ctx context.Context, clientID uuid.UUID, page, limit int) ([]models.Order, int64, error)
	FindAll(ctx context.Context, page, limit int) ([]models.Order, int64, error)
	Update(ctx context.Context, order *models.Order) error
	HardDelete(ctx context.Context, id uuid.UUID) error
	FindDispatchedInPeriod(ctx context.Context, clientID uuid.UUID, from, to time.Time) ([]models.Order, error)
	LinkInvoice(ctx context.Context, orderIDs []uuid.UUID, invoiceID uuid.UUID) error
}

// GormOrderRepository implements OrderRepository using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository.
func NewGormOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("OrderItems").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormOrderRepository) FindByClientID(ctx context.Context, clientID uuid.UUID, page, limit int) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("client_id = ?", clientID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Preload("OrderItems").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *GormOrderRepository) FindAll(ctx context.Context, page, limit int) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Order{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Preload("OrderItems").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *GormOrderRepository) Update(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// HardDelete removes an order and its items permanently. Only the create
// rollback path uses this; lifecycle operations never delete orders.
func (r *GormOrderRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Unscoped().
		Where("order_id = ?", id).
		Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Unscoped().
		Delete(&models.Order{}, "id = ?", id).Error
}

// LinkInvoice stamps the invoice back-reference on every billed order in one
// batch update. From this point the orders are locked by the invoice.
func (r *GormOrderRepository) LinkInvoice(ctx context.Context, orderIDs []uuid.UUID, invoiceID uuid.UUID) error {
	if len(orderIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id IN ?", orderIDs).
		Update("invoice_id", invoiceID).Error
}

// FindDispatchedInPeriod returns a client's shipped orders inside a billing
// window. The legacy "delivered" status is still accepted for rows imported
// from the previous system.
func (r *GormOrderRepository) FindDispatchedInPeriod(ctx context.Context, clientID uuid.UUID, from, to time.Time) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).
		Preload("OrderItems").
		Where("client_id = ? AND status IN ? AND dispatched_at >= ? AND dispatched_at < ?",
			clientID, []string{models.OrderStatusDispatched, "delivered"}, from, to).
		Order("dispatched_at ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
