package repository

import (
	"context"

	"fulfillment-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductRepository is read-only here: catalog writes belong to the product
// management surface, the fulfillment engine only needs price and weight.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// GormProductRepository implements ProductRepository using GORM.
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository.
func NewGormProductRepository(db *gorm.DB) ProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// ClientRepository defines data access for 3PL clients.
type ClientRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Client, error)
	FindActive(ctx context.Context) ([]models.Client, error)
}

// GormClientRepository implements ClientRepository using GORM.
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository.
func NewGormClientRepository(db *gorm.DB) ClientRepository {
	return &GormClientRepository{db: db}
}

func (r *GormClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var c models.Client
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormClientRepository) FindActive(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("company_name ASC").
		Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}
