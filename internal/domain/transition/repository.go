package transition

import (
	"context"

	"github.com/google/uuid"
	"github.com/itam/backend/internal/domain/shared"
)

// TransitionRepository looks up configured transitions
type TransitionRepository interface {
	// FindBySlug returns shared.ErrNotFound when no transition has the slug
	FindBySlug(ctx context.Context, slug string) (*Transition, error)
}

// HistoryRepository stores transition history. Records are never updated or deleted.
type HistoryRepository interface {
	Create(ctx context.Context, history *TransitionHistory) error
	FindByID(ctx context.Context, id uuid.UUID) (*TransitionHistory, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]TransitionHistory, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// ReportTemplateRepository looks up report templates
type ReportTemplateRepository interface {
	// FindBySlug returns shared.ErrNotFound when no template has the slug
	FindBySlug(ctx context.Context, slug string) (*ReportTemplateSource, error)
}
