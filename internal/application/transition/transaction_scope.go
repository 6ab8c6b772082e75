package transition

import (
	"context"

	"github.com/itam/backend/internal/domain/asset"
	"github.com/itam/backend/internal/domain/shared"
	"github.com/itam/backend/internal/domain/transition"
)

// TransactionScope provides transactional access to the repositories a
// transition run writes to. Everything done through the repositories handed
// to fn is committed together, or rolled back together when fn returns an error.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	// AssetRepo returns the asset repository scoped to the current transaction
	AssetRepo() asset.AssetRepository
	// HistoryRepo returns the append-only history repository scoped to the current transaction
	HistoryRepo() transition.HistoryRepository
	// PublishEvents records events for delivery once the transaction commits
	PublishEvents(ctx context.Context, events ...shared.DomainEvent) error
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	assetRepo   asset.AssetRepository
	historyRepo transition.HistoryRepository
	publisher   shared.EventPublisher
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(assetRepo asset.AssetRepository, historyRepo transition.HistoryRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		assetRepo:   assetRepo,
		historyRepo: historyRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// AssetRepo returns the asset repository.
func (s *NoOpTransactionScope) AssetRepo() asset.AssetRepository {
	return s.assetRepo
}

// HistoryRepo returns the history repository.
func (s *NoOpTransactionScope) HistoryRepo() transition.HistoryRepository {
	return s.historyRepo
}

// SetEventPublisher publishes events straight away instead of dropping them
func (s *NoOpTransactionScope) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// PublishEvents hands events to the publisher, if one is set.
func (s *NoOpTransactionScope) PublishEvents(ctx context.Context, events ...shared.DomainEvent) error {
	if s.publisher == nil || len(events) == 0 {
		return nil
	}
	return s.publisher.Publish(ctx, events...)
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
