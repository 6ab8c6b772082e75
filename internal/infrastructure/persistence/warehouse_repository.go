package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/itam/backend/internal/domain/asset"
	"github.com/itam/backend/internal/domain/shared"
	"github.com/itam/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormWarehouseRepository implements WarehouseRepository using GORM
type GormWarehouseRepository struct {
	db *gorm.DB
}

// NewGormWarehouseRepository creates a new GormWarehouseRepository
func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// FindByID finds a warehouse by its ID
func (r *GormWarehouseRepository) FindByID(ctx context.Context, id uuid.UUID) (*asset.Warehouse, error) {
	var model models.WarehouseModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns every warehouse ordered by name
func (r *GormWarehouseRepository) FindAll(ctx context.Context) ([]asset.Warehouse, error) {
	var found []models.WarehouseModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&found).Error; err != nil {
		return nil, err
	}
	warehouses := make([]asset.Warehouse, len(found))
	for i := range found {
		warehouses[i] = *found[i].ToDomain()
	}
	return warehouses, nil
}

// Save creates or updates a warehouse
func (r *GormWarehouseRepository) Save(ctx context.Context, warehouse *asset.Warehouse) error {
	return r.db.WithContext(ctx).Save(models.WarehouseModelFromDomain(warehouse)).Error
}

// Ensure GormWarehouseRepository implements WarehouseRepository
var _ asset.WarehouseRepository = (*GormWarehouseRepository)(nil)
