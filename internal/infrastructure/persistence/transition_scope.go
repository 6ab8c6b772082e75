package persistence

import (
	"context"

	apptransition "github.com/itam/backend/internal/application/transition"
	"github.com/itam/backend/internal/domain/asset"
	"github.com/itam/backend/internal/domain/shared"
	"github.com/itam/backend/internal/domain/transition"
	"gorm.io/gorm"
)

// GormTransitionScope implements TransactionScope using GORM transactions.
// Asset updates and the history insert of a run commit or roll back together.
type GormTransitionScope struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
}

// ScopeOption configures a GormTransitionScope
type ScopeOption func(*GormTransitionScope)

// WithOutbox writes published events to the outbox inside the run's transaction.
// Without it events are dropped.
func WithOutbox(saver shared.OutboxEventSaver) ScopeOption {
	return func(s *GormTransitionScope) {
		s.outbox = saver
	}
}

// NewGormTransitionScope creates a new GormTransitionScope.
func NewGormTransitionScope(db *gorm.DB, opts ...ScopeOption) *GormTransitionScope {
	s := &GormTransitionScope{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransitionScope) Execute(ctx context.Context, fn func(repos apptransition.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, outbox: s.outbox})
	})
}

// gormTransactionalRepositories provides the repositories bound to one transaction.
type gormTransactionalRepositories struct {
	tx     *gorm.DB
	outbox shared.OutboxEventSaver
}

// AssetRepo returns the asset repository scoped to the current transaction.
func (r *gormTransactionalRepositories) AssetRepo() asset.AssetRepository {
	return NewGormAssetRepository(r.tx)
}

// HistoryRepo returns the history repository scoped to the current transaction.
func (r *gormTransactionalRepositories) HistoryRepo() transition.HistoryRepository {
	return NewGormHistoryRepository(r.tx)
}

// PublishEvents saves events to the outbox using the current transaction.
func (r *gormTransactionalRepositories) PublishEvents(ctx context.Context, events ...shared.DomainEvent) error {
	if r.outbox == nil || len(events) == 0 {
		return nil
	}
	return r.outbox.SaveEvents(ctx, r.tx, events...)
}

var (
	_ apptransition.TransactionScope          = (*GormTransitionScope)(nil)
	_ apptransition.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
