package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrTransition = attribute.Key("transition")
	AttrOutcome    = attribute.Key("outcome")
)

// RunDurationBuckets are histogram boundaries for transition runs (seconds).
// Runs that render a PDF take seconds, plain status changes milliseconds.
var RunDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// TransitionMetrics records transition runs. A nil *TransitionMetrics is a no-op.
type TransitionMetrics struct {
	runs     metric.Int64Counter
	assets   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewTransitionMetrics creates the transition instruments on meter
func NewTransitionMetrics(meter metric.Meter) (*TransitionMetrics, error) {
	runs, err := meter.Int64Counter("itam.transition.runs",
		metric.WithDescription("Transition runs by outcome"),
		metric.WithUnit("{run}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create runs counter: %w", err)
	}
	assets, err := meter.Int64Counter("itam.transition.assets",
		metric.WithDescription("Assets moved by successful transition runs"),
		metric.WithUnit("{asset}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create assets counter: %w", err)
	}
	duration, err := meter.Float64Histogram("itam.transition.run.duration",
		metric.WithDescription("Duration of transition runs"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(RunDurationBuckets...))
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	return &TransitionMetrics{runs: runs, assets: assets, duration: duration}, nil
}

// RecordRun records one finished run of the transition with slug
func (m *TransitionMetrics) RecordRun(ctx context.Context, slug string, assetCount int, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	attrs := metric.WithAttributes(AttrTransition.String(slug), AttrOutcome.String(outcome))
	m.runs.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
	if err == nil {
		m.assets.Add(ctx, int64(assetCount), metric.WithAttributes(AttrTransition.String(slug)))
	}
}
