package persistence

import (
	"context"
	"errors"

	"github.com/itam/backend/internal/domain/shared"
	"github.com/itam/backend/internal/domain/transition"
	"github.com/itam/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormTransitionRepository implements TransitionRepository using GORM
type GormTransitionRepository struct {
	db *gorm.DB
}

// NewGormTransitionRepository creates a new GormTransitionRepository
func NewGormTransitionRepository(db *gorm.DB) *GormTransitionRepository {
	return &GormTransitionRepository{db: db}
}

// FindBySlug finds a transition with its actions in configured order
func (r *GormTransitionRepository) FindBySlug(ctx context.Context, slug string) (*transition.Transition, error) {
	var model models.TransitionModel
	if err := r.db.WithContext(ctx).
		Preload("Actions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("slug = ?", slug).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a transition and replaces its actions
func (r *GormTransitionRepository) Save(ctx context.Context, t *transition.Transition) error {
	model := models.TransitionModelFromDomain(t)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("transition_id = ?", t.ID).Delete(&models.TransitionActionModel{}).Error; err != nil {
			return err
		}
		actions := model.Actions
		model.Actions = nil
		if err := tx.Save(model).Error; err != nil {
			return err
		}
		if len(actions) == 0 {
			return nil
		}
		return tx.Create(&actions).Error
	})
}

// GormReportTemplateRepository implements ReportTemplateRepository using GORM
type GormReportTemplateRepository struct {
	db *gorm.DB
}

// NewGormReportTemplateRepository creates a new GormReportTemplateRepository
func NewGormReportTemplateRepository(db *gorm.DB) *GormReportTemplateRepository {
	return &GormReportTemplateRepository{db: db}
}

// FindBySlug finds a report template by slug
func (r *GormReportTemplateRepository) FindBySlug(ctx context.Context, slug string) (*transition.ReportTemplateSource, error) {
	var model models.ReportTemplateModel
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a report template
func (r *GormReportTemplateRepository) Save(ctx context.Context, tpl *transition.ReportTemplateSource) error {
	return r.db.WithContext(ctx).Save(models.ReportTemplateModelFromDomain(tpl)).Error
}

// Ensure the repositories implement the domain interfaces
var (
	_ transition.TransitionRepository     = (*GormTransitionRepository)(nil)
	_ transition.ReportTemplateRepository = (*GormReportTemplateRepository)(nil)
)
