package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/itam/backend/internal/domain/asset"
	"github.com/itam/backend/internal/domain/shared"
	"github.com/itam/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAssetRepository implements AssetRepository using GORM
type GormAssetRepository struct {
	db *gorm.DB
}

// NewGormAssetRepository creates a new GormAssetRepository
func NewGormAssetRepository(db *gorm.DB) *GormAssetRepository {
	return &GormAssetRepository{db: db}
}

// FindByID finds an asset by its ID, deleted or not
func (r *GormAssetRepository) FindByID(ctx context.Context, id uuid.UUID) (*asset.Asset, error) {
	var model models.AssetModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs returns the non-deleted assets among ids in the order of ids
func (r *GormAssetRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]asset.Asset, error) {
	if len(ids) == 0 {
		return []asset.Asset{}, nil
	}

	var found []models.AssetModel
	if err := r.db.WithContext(ctx).
		Where("id IN ? AND deleted = ?", ids, false).
		Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*models.AssetModel, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}
	assets := make([]asset.Asset, 0, len(found))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			assets = append(assets, *m.ToDomain())
			delete(byID, id)
		}
	}
	return assets, nil
}

// Find returns assets matching the filter, newest first
func (r *GormAssetRepository) Find(ctx context.Context, filter asset.AssetFilter) ([]asset.Asset, error) {
	query := r.db.WithContext(ctx).Model(&models.AssetModel{})

	if len(filter.IDs) > 0 {
		query = query.Where("id IN ?", filter.IDs)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filter.WarehouseID)
	}
	if !filter.IncludeDeleted {
		query = query.Where("deleted = ?", false)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(sn) LIKE ? OR LOWER(barcode) LIKE ?", pattern, pattern)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var found []models.AssetModel
	if err := query.Order("created_at DESC").Find(&found).Error; err != nil {
		return nil, err
	}
	assets := make([]asset.Asset, len(found))
	for i := range found {
		assets[i] = *found[i].ToDomain()
	}
	return assets, nil
}

// Save creates or updates an asset
func (r *GormAssetRepository) Save(ctx context.Context, a *asset.Asset) error {
	return r.db.WithContext(ctx).Save(models.AssetModelFromDomain(a)).Error
}

// Ensure GormAssetRepository implements AssetRepository
var _ asset.AssetRepository = (*GormAssetRepository)(nil)
