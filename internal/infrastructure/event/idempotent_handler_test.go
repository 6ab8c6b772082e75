package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/itam/backend/internal/domain/shared"
	"github.com/itam/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsClaimed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

func newMemoryStore(t *testing.T) *cache.InMemoryIdempotencyStore {
	t.Helper()
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestIdempotentHandler_Handle_NewEvent(t *testing.T) {
	inner := newTestHandler("TestEvent")
	handler := NewIdempotentHandler("audit", inner, newMemoryStore(t), zap.NewNop())

	require.NoError(t, handler.Handle(context.Background(), newTestEvent("TestEvent")))

	assert.Len(t, inner.getHandled(), 1)
	stats := handler.Metrics().Stats()
	assert.Equal(t, int64(1), stats.EventsProcessed)
	assert.Equal(t, int64(0), stats.EventsDuplicate)
	assert.Equal(t, []string{"TestEvent"}, handler.EventTypes())
	assert.Equal(t, "audit", handler.Name())
}

func TestIdempotentHandler_Handle_DuplicateEvent(t *testing.T) {
	inner := newTestHandler("TestEvent")
	handler := NewIdempotentHandler("audit", inner, newMemoryStore(t), zap.NewNop())
	event := newTestEvent("TestEvent")

	for i := 0; i < 3; i++ {
		require.NoError(t, handler.Handle(context.Background(), event))
	}

	assert.Len(t, inner.getHandled(), 1)
	stats := handler.Metrics().Stats()
	assert.Equal(t, int64(1), stats.EventsProcessed)
	assert.Equal(t, int64(2), stats.EventsDuplicate)
}

func TestIdempotentHandler_Handle_KeysAreScopedPerHandler(t *testing.T) {
	store := newMemoryStore(t)
	audit := newTestHandler("TestEvent")
	cleanup := newTestHandler("TestEvent")
	event := newTestEvent("TestEvent")

	require.NoError(t, NewIdempotentHandler("audit", audit, store, zap.NewNop()).Handle(context.Background(), event))
	require.NoError(t, NewIdempotentHandler("cleanup", cleanup, store, zap.NewNop()).Handle(context.Background(), event))

	assert.Len(t, audit.getHandled(), 1)
	assert.Len(t, cleanup.getHandled(), 1)
}

func TestIdempotentHandler_Handle_FailureReleasesClaim(t *testing.T) {
	inner := newTestHandler("TestEvent")
	inner.setError(errors.New("handler failed"))
	handler := NewIdempotentHandler("cleanup", inner, newMemoryStore(t), zap.NewNop())
	event := newTestEvent("TestEvent")

	err := handler.Handle(context.Background(), event)
	require.Error(t, err)
	assert.Equal(t, int64(1), handler.Metrics().Stats().EventsFailed)

	inner.setError(nil)
	require.NoError(t, handler.Handle(context.Background(), event), "the retry runs the handler again")
	assert.Len(t, inner.getHandled(), 2)
	assert.Equal(t, int64(1), handler.Metrics().Stats().EventsProcessed)
}

func TestIdempotentHandler_Handle_StoreErrorProcessesAnyway(t *testing.T) {
	store := new(MockIdempotencyStore)
	event := newTestEvent("TestEvent")
	store.On("Claim", mock.Anything, "event:audit:"+event.EventID().String(), 24*time.Hour).
		Return(false, errors.New("redis down"))

	inner := newTestHandler("TestEvent")
	handler := NewIdempotentHandler("audit", inner, store, zap.NewNop())

	require.NoError(t, handler.Handle(context.Background(), event))

	assert.Len(t, inner.getHandled(), 1)
	store.AssertExpectations(t)
}

func TestIdempotentHandler_WithIdempotencyConfig(t *testing.T) {
	t.Run("disabled skips the store", func(t *testing.T) {
		store := new(MockIdempotencyStore)
		inner := newTestHandler("TestEvent")
		handler := NewIdempotentHandler("audit", inner, store, zap.NewNop(),
			WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}))
		event := newTestEvent("TestEvent")

		require.NoError(t, handler.Handle(context.Background(), event))
		require.NoError(t, handler.Handle(context.Background(), event))

		assert.Len(t, inner.getHandled(), 2)
		store.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("claims with the configured ttl", func(t *testing.T) {
		store := new(MockIdempotencyStore)
		store.On("Claim", mock.Anything, mock.Anything, time.Hour).Return(true, nil)
		handler := NewIdempotentHandler("audit", newTestHandler("TestEvent"), store, zap.NewNop(),
			WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: true, TTL: time.Hour}))

		require.NoError(t, handler.Handle(context.Background(), newTestEvent("TestEvent")))
		store.AssertExpectations(t)
	})
}

func TestIdempotentHandler_SharedMetrics(t *testing.T) {
	store := newMemoryStore(t)
	metrics := &IdempotencyMetrics{}
	first := NewIdempotentHandler("audit", newTestHandler("TestEvent"), store, nil, WithIdempotencyMetrics(metrics))
	second := NewIdempotentHandler("cleanup", newTestHandler("TestEvent"), store, nil, WithIdempotencyMetrics(metrics))
	event := newTestEvent("TestEvent")

	require.NoError(t, first.Handle(context.Background(), event))
	require.NoError(t, second.Handle(context.Background(), event))
	require.NoError(t, second.Handle(context.Background(), event))

	assert.Equal(t, IdempotencyStats{EventsProcessed: 2, EventsDuplicate: 1}, metrics.Stats())
}

func TestIdempotentHandler_ThroughBus(t *testing.T) {
	bus := startedBus(t)
	inner := newTestHandler("TestEvent")
	bus.Subscribe(NewIdempotentHandler("audit", inner, newMemoryStore(t), zap.NewNop()))
	event := newTestEvent("TestEvent")

	require.NoError(t, bus.Publish(context.Background(), event))
	require.NoError(t, bus.Publish(context.Background(), event), "redelivery is absorbed")

	assert.Len(t, inner.getHandled(), 1)
}
