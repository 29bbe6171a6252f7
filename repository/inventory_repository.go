package repository

import (
	"context"
	"errors"

	"fulfillment-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Typed sentinels so callers can match failure classes structurally instead
// of inspecting error text.
var (
	ErrInsufficientStock    = errors.New("insufficient available stock")
	ErrInsufficientReserved = errors.New("insufficient reserved stock")
	ErrNegativeStock        = errors.New("adjustment would drive stock negative")
	ErrLedgerUnbalanced     = errors.New("inventory ledger out of balance")
)

// InventoryRepository defines data access for the stock ledger. Every
// mutation is a single conditional UPDATE with the guard evaluated by
// Postgres itself, so two concurrent requests can never both pass a stock
// check against the same stale row.
type InventoryRepository interface {
	FindByProductAndClient(ctx context.Context, productID, clientID uuid.UUID) (*models.InventoryRecord, error)
	Reserve(ctx context.Context, productID, clientID uuid.UUID, qty int) (*models.InventoryRecord, error)
	Release(ctx context.Context, productID, clientID uuid.UUID, qty int) (*models.InventoryRecord, error)
	Dispatch(ctx context.Context, productID, clientID uuid.UUID, qty int) (*models.InventoryRecord, error)
	Adjust(ctx context.Context, productID, clientID uuid.UUID, delta int) (*models.InventoryRecord, error)
}

// GormInventoryRepository implements InventoryRepository using GORM.
type GormInventoryRepository struct {
	db *gorm.DB
}

// NewGormInventoryRepository creates a new GormInventoryRepository.
func NewGormInventoryRepository(db *gorm.DB) InventoryRepository {
	return &GormInventoryRepository{db: db}
}

func (r *GormInventoryRepository) FindByProductAndClient(ctx context.Context, productID, clientID uuid.UUID) (*models.InventoryRecord, error) {
	var rec models.InventoryRecord
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND client_id = ?", productID, clientID).
		First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// Reserve moves qty units from available to reserved.
func (r *GormInventoryRepository) Reserve(ctx context.Context, productID, clientID uuid.UUID, qty int) (*models.InventoryRecord, error) {
	res := r.db.WithContext(ctx).Model(&models.InventoryRecord{}).
		Where("product_id = ? AND client_id = ? AND available_stock >= ?", productID, clientID, qty).
		Updates(map[string]interface{}{
			"available_stock": gorm.Expr("available_stock - ?", qty),
			"reserved_stock":  gorm.Expr("reserved_stock + ?", qty),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, r.guardFailure(ctx, productID, clientID, ErrInsufficientStock)
	}
	return r.FindByProductAndClient(ctx, productID, clientID)
}

// Release returns up to qty units from reserved to available. It never
// pushes reserved below zero: the moved amount is LEAST(reserved_stock, qty).
func (r *GormInventoryRepository) Release(ctx context.Context, productID, clientID uuid.UUID, qty int) (*models.InventoryRecord, error) {
	res := r.db.WithContext(ctx).Model(&models.InventoryRecord{}).
		Where("product_id = ? AND client_id = ?", productID, clientID).
		Updates(map[string]interface{}{
			"available_stock": gorm.Expr("available_stock + LEAST(reserved_stock, ?)", qty),
			"reserved_stock":  gorm.Expr("reserved_stock - LEAST(reserved_stock, ?)", qty),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByProductAndClient(ctx, productID, clientID)
}

// Dispatch moves qty units from reserved to dispatched.
func (r *GormInventoryRepository) Dispatch(ctx context.Context, productID, clientID uuid.UUID, qty int) (*models.InventoryRecord, error) {
	res := r.db.WithContext(ctx).Model(&models.InventoryRecord{}).
		Where("product_id = ? AND client_id = ? AND reserved_stock >= ?", productID, clientID, qty).
		Updates(map[string]interface{}{
			"reserved_stock":   gorm.Expr("reserved_stock - ?", qty),
			"dispatched_stock": gorm.Expr("dispatched_stock + ?", qty),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, r.guardFailure(ctx, productID, clientID, ErrInsufficientReserved)
	}
	return r.FindByProductAndClient(ctx, productID, clientID)
}

// Adjust applies a manual correction: total and available move together.
func (r *GormInventoryRepository) Adjust(ctx context.Context, productID, clientID uuid.UUID, delta int) (*models.InventoryRecord, error) {
	res := r.db.WithContext(ctx).Model(&models.InventoryRecord{}).
		Where("product_id = ? AND client_id = ? AND available_stock + ? >= 0 AND total_stock + ? >= 0",
			productID, clientID, delta, delta).
		Updates(map[string]interface{}{
			"available_stock": gorm.Expr("available_stock + ?", delta),
			"total_stock":     gorm.Expr("total_stock + ?", delta),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, r.guardFailure(ctx, productID, clientID, ErrNegativeStock)
	}

	rec, err := r.FindByProductAndClient(ctx, productID, clientID)
	if err != nil {
		return nil, err
	}
	if !rec.Balanced() {
		return rec, ErrLedgerUnbalanced
	}
	return rec, nil
}

// guardFailure distinguishes a missing row from a failed guard clause when a
// conditional update touched nothing.
func (r *GormInventoryRepository) guardFailure(ctx context.Context, productID, clientID uuid.UUID, guardErr error) error {
	if _, err := r.FindByProductAndClient(ctx, productID, clientID); err != nil {
		return err
	}
	return guardErr
}
