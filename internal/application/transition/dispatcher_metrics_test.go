package transition_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/itam/backend/internal/application/transition"
	"github.com/itam/backend/internal/domain/asset"
	domain "github.com/itam/backend/internal/domain/transition"
	"github.com/itam/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func runDurations(t *testing.T, reader *sdkmetric.ManualReader) metricdata.Histogram[float64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "itam.transition.run.duration" {
				hist, ok := m.Data.(metricdata.Histogram[float64])
				require.True(t, ok)
				return hist
			}
		}
	}
	t.Fatal("run duration histogram not recorded")
	return metricdata.Histogram[float64]{}
}

func TestDispatcher_Run_RecordsDurationFromClock(t *testing.T) {
	tests := []struct {
		name    string
		saveErr error
	}{
		{name: "success"},
		{name: "failure", saveErr: errors.New("database gone")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := sdkmetric.NewManualReader()
			provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
			defer func() { _ = provider.Shutdown(context.Background()) }()
			metrics, err := telemetry.NewTransitionMetrics(provider.Meter("test"))
			require.NoError(t, err)

			s := newDispatcherSetup(t)
			s.assetRepo.On("Save", mock.Anything, mock.Anything).Return(tt.saveErr)
			s.historyRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

			// Every read after the first is three seconds later
			start := s.now
			calls := 0
			clock := func() time.Time {
				calls++
				if calls == 1 {
					return start
				}
				return start.Add(3 * time.Second)
			}

			d := s.build(t, transition.DispatcherParams{
				Transition: newTransition("t", asset.StatusUsed, domain.ActionChangeStatus),
				Assets:     []*asset.Asset{newAsset(asset.StatusNew, nil)},
				LoggedUser: newUser("admin"),
			}, transition.WithClock(clock), transition.WithMetrics(metrics))
			runErr := d.Run(context.Background())
			if tt.saveErr != nil {
				require.Error(t, runErr)
			} else {
				require.NoError(t, runErr)
			}

			hist := runDurations(t, reader)
			require.Len(t, hist.DataPoints, 1)
			assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
			assert.InDelta(t, 3.0, hist.DataPoints[0].Sum, 1e-9)
		})
	}
}
