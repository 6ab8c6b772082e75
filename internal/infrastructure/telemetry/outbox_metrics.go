package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AttrEventType is the metric attribute carrying a domain event type
var AttrEventType = attribute.Key("event_type")

// Outbox delivery outcomes
const (
	OutcomeDelivered = "delivered"
	OutcomeRetry     = "retry"
	OutcomeDead      = "dead"
)

// OutboxMetrics counts outbox deliveries. A nil *OutboxMetrics is a no-op.
type OutboxMetrics struct {
	deliveries metric.Int64Counter
	cleaned    metric.Int64Counter
}

// NewOutboxMetrics creates the outbox instruments on meter
func NewOutboxMetrics(meter metric.Meter) (*OutboxMetrics, error) {
	deliveries, err := meter.Int64Counter("itam.outbox.deliveries",
		metric.WithDescription("Outbox entries handled by the processor, by outcome"),
		metric.WithUnit("{event}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create deliveries counter: %w", err)
	}
	cleaned, err := meter.Int64Counter("itam.outbox.cleaned",
		metric.WithDescription("Delivered outbox entries removed after retention"),
		metric.WithUnit("{event}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create cleanup counter: %w", err)
	}
	return &OutboxMetrics{deliveries: deliveries, cleaned: cleaned}, nil
}

// RecordDelivery records one processed entry of eventType
func (m *OutboxMetrics) RecordDelivery(ctx context.Context, eventType, outcome string) {
	if m == nil {
		return
	}
	m.deliveries.Add(ctx, 1, metric.WithAttributes(AttrEventType.String(eventType), AttrOutcome.String(outcome)))
}

// RecordCleanup records entries removed by one cleanup pass
func (m *OutboxMetrics) RecordCleanup(ctx context.Context, deleted int64) {
	if m == nil || deleted == 0 {
		return
	}
	m.cleaned.Add(ctx, deleted)
}
