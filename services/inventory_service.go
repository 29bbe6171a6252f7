package services

import (
	"context"
	"errors"
	"net/http"

	"fulfillment-service/apperrors"
	"fulfillment-service/models"
	"fulfillment-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InventoryService exposes the stock ledger's read and manual-correction
// operations. Reservation, release and dispatch are driven by the order
// lifecycle and are not callable directly.
type InventoryService struct {
	inventoryRepo repository.InventoryRepository
	logger        *zap.Logger
}

// NewInventoryService creates a new InventoryService.
func NewInventoryService(inventoryRepo repository.InventoryRepository, logger *zap.Logger) *InventoryService {
	return &InventoryService{inventoryRepo: inventoryRepo, logger: logger}
}

// GetRecord returns the ledger record for one (product, client) pair.
func (s *InventoryService) GetRecord(ctx context.Context, productID, clientID uuid.UUID) (*models.InventoryRecord, *apperrors.Error) {
	rec, err := s.inventoryRepo.FindByProductAndClient(ctx, productID, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Inventory record")
		}
		return nil, apperrors.FromDB(err)
	}
	return rec, nil
}

// Adjust applies a manual stock correction. Total and available move
// together; the ledger invariant is re-checked after the write.
func (s *InventoryService) Adjust(ctx context.Context, productID, clientID uuid.UUID, delta int) (*models.InventoryRecord, *apperrors.Error) {
	if delta == 0 {
		return nil, apperrors.Validation("Adjustment delta must be non-zero")
	}

	rec, err := s.inventoryRepo.Adjust(ctx, productID, clientID, delta)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, apperrors.NotFound("Inventory record")
		case errors.Is(err, repository.ErrNegativeStock):
			return nil, apperrors.New(http.StatusBadRequest, apperrors.CodeInsufficientStock,
				"Adjustment would drive stock negative").
				WithDetails(map[string]interface{}{"productId": productID, "delta": delta})
		case errors.Is(err, repository.ErrLedgerUnbalanced):
			s.logger.Error("Inventory ledger out of balance after adjustment",
				zap.String("product_id", productID.String()),
				zap.String("client_id", clientID.String()),
			)
			return nil, apperrors.New(http.StatusConflict, apperrors.CodeIntegrityViolation,
				"Inventory ledger is out of balance")
		default:
			return nil, apperrors.FromDB(err)
		}
	}

	s.logger.Info("Inventory adjusted",
		zap.String("product_id", productID.String()),
		zap.String("client_id", clientID.String()),
		zap.Int("delta", delta),
	)

	return rec, nil
}
