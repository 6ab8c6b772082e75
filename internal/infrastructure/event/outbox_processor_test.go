package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/itam/backend/internal/domain/shared"
	"github.com/itam/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

type processorFixture struct {
	repo      *GormOutboxRepository
	bus       *InMemoryEventBus
	handler   *testHandler
	processor *OutboxProcessor
	reader    *sdkmetric.ManualReader
}

func newProcessorFixture(t *testing.T, cfg OutboxProcessorConfig) *processorFixture {
	t.Helper()
	f := &processorFixture{
		repo:    NewGormOutboxRepository(setupOutboxDB(t)),
		bus:     startedBus(t),
		handler: newTestHandler("TestEvent"),
		reader:  sdkmetric.NewManualReader(),
	}
	f.bus.Subscribe(f.handler)

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(f.reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	metrics, err := telemetry.NewOutboxMetrics(provider.Meter("test"))
	require.NoError(t, err)

	f.processor = NewOutboxProcessor(f.repo, f.bus, newTestSerializer(), cfg, zap.NewNop(),
		WithProcessorMetrics(metrics))
	return f
}

func (f *processorFixture) enqueue(t *testing.T) *shared.OutboxEntry {
	t.Helper()
	entry := newOutboxEntry(t, newTestSerializer())
	require.NoError(t, f.repo.Save(context.Background(), entry))
	return entry
}

// deliveries sums the delivery counter per outcome
func (f *processorFixture) deliveries(t *testing.T) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))

	counts := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "itam.outbox.deliveries" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value(telemetry.AttrOutcome)
				counts[outcome.AsString()] += dp.Value
			}
		}
	}
	return counts
}

func TestOutboxProcessor_ProcessOnce_Delivers(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t, DefaultOutboxProcessorConfig())
	entry := f.enqueue(t)

	f.processor.ProcessOnce(ctx)

	handled := f.handler.getHandled()
	require.Len(t, handled, 1)
	assert.Equal(t, entry.EventID, handled[0].EventID())
	assert.IsType(t, &testEvent{}, handled[0])

	stored, err := f.repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusSent, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)
	assert.Equal(t, int64(1), f.deliveries(t)[telemetry.OutcomeDelivered])

	f.processor.ProcessOnce(ctx)
	assert.Len(t, f.handler.getHandled(), 1, "a sent entry is not delivered again")
}

func TestOutboxProcessor_ProcessOnce_HandlerFailureSchedulesRetry(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t, DefaultOutboxProcessorConfig())
	f.handler.setError(errors.New("disk full"))
	entry := f.enqueue(t)

	f.processor.ProcessOnce(ctx)

	stored, err := f.repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	assert.Contains(t, stored.LastError, "disk full")
	require.NotNil(t, stored.NextRetryAt)
	assert.True(t, stored.NextRetryAt.After(time.Now()))
	assert.Equal(t, int64(1), f.deliveries(t)[telemetry.OutcomeRetry])
}

func TestOutboxProcessor_ProcessOnce_RetriesDueEntries(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t, DefaultOutboxProcessorConfig())
	entry := newOutboxEntry(t, newTestSerializer())
	entry.MarkFailed("earlier failure")
	past := time.Now().Add(-time.Second)
	entry.NextRetryAt = &past
	require.NoError(t, f.repo.Save(ctx, entry))

	f.processor.ProcessOnce(ctx)

	assert.Len(t, f.handler.getHandled(), 1)
	stored, err := f.repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusSent, stored.Status)
}

func TestOutboxProcessor_ProcessOnce_LastAttemptGoesDead(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t, DefaultOutboxProcessorConfig())
	f.handler.setError(errors.New("still failing"))
	entry := newOutboxEntry(t, newTestSerializer())
	entry.MaxRetries = 1
	require.NoError(t, f.repo.Save(ctx, entry))

	f.processor.ProcessOnce(ctx)

	stored, err := f.repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusDead, stored.Status)
	assert.Equal(t, int64(1), f.deliveries(t)[telemetry.OutcomeDead])
}

func TestOutboxProcessor_ProcessOnce_UndecodableEntryFails(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t, DefaultOutboxProcessorConfig())
	entry := newOutboxEntry(t, newTestSerializer())
	entry.EventType = "Unknown"
	require.NoError(t, f.repo.Save(ctx, entry))

	f.processor.ProcessOnce(ctx)

	assert.Empty(t, f.handler.getHandled())
	stored, err := f.repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusFailed, stored.Status)
	assert.Contains(t, stored.LastError, "unknown event type")
}

func TestOutboxProcessor_ProcessOnce_StoppedBusKeepsEntry(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t, DefaultOutboxProcessorConfig())
	require.NoError(t, f.bus.Stop(ctx))
	entry := f.enqueue(t)

	f.processor.ProcessOnce(ctx)

	stored, err := f.repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusFailed, stored.Status)
	assert.Contains(t, stored.LastError, ErrBusStopped.Error())
}

func TestOutboxProcessor_Cleanup(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultOutboxProcessorConfig()
	cfg.CleanupRetention = time.Hour
	f := newProcessorFixture(t, cfg)

	old := newOutboxEntry(t, newTestSerializer())
	old.MarkSent()
	longAgo := time.Now().Add(-2 * time.Hour)
	old.ProcessedAt = &longAgo
	fresh := f.enqueue(t)
	require.NoError(t, f.repo.Save(ctx, old))

	f.processor.Cleanup(ctx)

	_, err := f.repo.FindByID(ctx, old.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = f.repo.FindByID(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestOutboxProcessor_StartStop(t *testing.T) {
	cfg := DefaultOutboxProcessorConfig()
	cfg.PollInterval = 10 * time.Millisecond
	cfg.CleanupInterval = 10 * time.Millisecond
	f := newProcessorFixture(t, cfg)
	f.enqueue(t)

	require.NoError(t, f.processor.Start(context.Background()))
	assert.Eventually(t, func() bool {
		return len(f.handler.getHandled()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.processor.Stop(ctx))
}
