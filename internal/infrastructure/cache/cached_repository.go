package cache

import (
	"context"
	"errors"

	"github.com/itam/backend/internal/domain/shared"
	"github.com/itam/backend/internal/domain/transition"
	"go.uber.org/zap"
)

// TransitionStore is a transition repository that can also save
type TransitionStore interface {
	transition.TransitionRepository
	Save(ctx context.Context, t *transition.Transition) error
}

// ReportTemplateStore is a report template repository that can also save
type ReportTemplateStore interface {
	transition.ReportTemplateRepository
	Save(ctx context.Context, tpl *transition.ReportTemplateSource) error
}

// CachedTransitionRepository reads transitions through a RegistryCache.
// Cache failures fall through to the repository; not-found is not cached.
type CachedTransitionRepository struct {
	next   TransitionStore
	cache  RegistryCache
	logger *zap.Logger
}

// NewCachedTransitionRepository creates a new CachedTransitionRepository
func NewCachedTransitionRepository(next TransitionStore, cache RegistryCache, logger *zap.Logger) *CachedTransitionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedTransitionRepository{next: next, cache: cache, logger: logger}
}

func transitionKey(slug string) string { return "transition:" + slug }

// FindBySlug returns the transition with the given slug
func (r *CachedTransitionRepository) FindBySlug(ctx context.Context, slug string) (*transition.Transition, error) {
	key := transitionKey(slug)
	var cached transition.Transition
	hit, err := r.cache.Get(ctx, key, &cached)
	if err != nil {
		r.logger.Warn("Transition cache read failed", zap.String("slug", slug), zap.Error(err))
	}
	if hit {
		return &cached, nil
	}

	t, err := r.next.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, key, t, 0); err != nil {
		r.logger.Warn("Transition cache write failed", zap.String("slug", slug), zap.Error(err))
	}
	return t, nil
}

// Save saves the transition and drops its cache entry
func (r *CachedTransitionRepository) Save(ctx context.Context, t *transition.Transition) error {
	if err := r.next.Save(ctx, t); err != nil {
		return err
	}
	return r.Invalidate(ctx, t.Slug)
}

// Invalidate drops the cached transitions with the given slugs
func (r *CachedTransitionRepository) Invalidate(ctx context.Context, slugs ...string) error {
	keys := make([]string, len(slugs))
	for i, s := range slugs {
		keys[i] = transitionKey(s)
	}
	return r.cache.Delete(ctx, keys...)
}

// CachedReportTemplateRepository reads report templates through a RegistryCache
type CachedReportTemplateRepository struct {
	next   ReportTemplateStore
	cache  RegistryCache
	logger *zap.Logger
}

// NewCachedReportTemplateRepository creates a new CachedReportTemplateRepository
func NewCachedReportTemplateRepository(next ReportTemplateStore, cache RegistryCache, logger *zap.Logger) *CachedReportTemplateRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedReportTemplateRepository{next: next, cache: cache, logger: logger}
}

func templateKey(slug string) string { return "report_template:" + slug }

// FindBySlug returns the report template with the given slug
func (r *CachedReportTemplateRepository) FindBySlug(ctx context.Context, slug string) (*transition.ReportTemplateSource, error) {
	key := templateKey(slug)
	var cached transition.ReportTemplateSource
	hit, err := r.cache.Get(ctx, key, &cached)
	if err != nil {
		r.logger.Warn("Report template cache read failed", zap.String("slug", slug), zap.Error(err))
	}
	if hit {
		return &cached, nil
	}

	tpl, err := r.next.FindBySlug(ctx, slug)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			r.logger.Error("Report template lookup failed", zap.String("slug", slug), zap.Error(err))
		}
		return nil, err
	}
	if err := r.cache.Set(ctx, key, tpl, 0); err != nil {
		r.logger.Warn("Report template cache write failed", zap.String("slug", slug), zap.Error(err))
	}
	return tpl, nil
}

// Save saves the template and drops its cache entry
func (r *CachedReportTemplateRepository) Save(ctx context.Context, tpl *transition.ReportTemplateSource) error {
	if err := r.next.Save(ctx, tpl); err != nil {
		return err
	}
	return r.cache.Delete(ctx, templateKey(tpl.Slug))
}

var (
	_ TransitionStore     = (*CachedTransitionRepository)(nil)
	_ ReportTemplateStore = (*CachedReportTemplateRepository)(nil)
)
