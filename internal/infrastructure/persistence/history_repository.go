package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/itam/backend/internal/domain/shared"
	"github.com/itam/backend/internal/domain/transition"
	"github.com/itam/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormHistoryRepository implements HistoryRepository using GORM.
// It only inserts and reads; history rows are never updated.
type GormHistoryRepository struct {
	db *gorm.DB
}

// NewGormHistoryRepository creates a new GormHistoryRepository
func NewGormHistoryRepository(db *gorm.DB) *GormHistoryRepository {
	return &GormHistoryRepository{db: db}
}

// Create inserts a history record together with its asset links
func (r *GormHistoryRepository) Create(ctx context.Context, history *transition.TransitionHistory) error {
	return r.db.WithContext(ctx).Create(models.TransitionHistoryModelFromDomain(history)).Error
}

// FindByID finds a history record with its assets in batch order
func (r *GormHistoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*transition.TransitionHistory, error) {
	var model models.TransitionHistoryModel
	if err := r.withAssets(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns a page of history records matching the filter
func (r *GormHistoryRepository) FindAll(ctx context.Context, filter shared.Filter) ([]transition.TransitionHistory, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.TransitionHistoryModel{}), filter)

	orderBy := ValidateSortField(filter.OrderBy, HistorySortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)

	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize).Offset(filter.Offset())
	}

	var found []models.TransitionHistoryModel
	if err := r.withAssets(query).Find(&found).Error; err != nil {
		return nil, err
	}
	histories := make([]transition.TransitionHistory, len(found))
	for i := range found {
		histories[i] = *found[i].ToDomain()
	}
	return histories, nil
}

// Count returns the number of history records matching the filter
func (r *GormHistoryRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.TransitionHistoryModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormHistoryRepository) withAssets(query *gorm.DB) *gorm.DB {
	return query.Preload("Assets", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// applyFilter applies the supported history filters. Unknown keys are ignored.
func (r *GormHistoryRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for _, column := range []string{"transition_id", "logged_user_id", "affected_user_id"} {
		if v, ok := filter.Filters[column]; ok && v != nil {
			query = query.Where(column+" = ?", v)
		}
	}
	if v, ok := filter.Filters["asset_id"]; ok && v != nil {
		query = query.Where("id IN (?)",
			r.db.Model(&models.TransitionHistoryAssetModel{}).Select("history_id").Where("asset_id = ?", v))
	}
	return query
}

// Ensure GormHistoryRepository implements HistoryRepository
var _ transition.HistoryRepository = (*GormHistoryRepository)(nil)
