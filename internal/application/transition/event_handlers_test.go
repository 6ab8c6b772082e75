package transition_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/itam/backend/internal/application/transition"
	"github.com/itam/backend/internal/domain/asset"
	"github.com/itam/backend/internal/domain/shared"
	domain "github.com/itam/backend/internal/domain/transition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTransitionedEvent() *domain.AssetsTransitionedEvent {
	historyID := uuid.New()
	return &domain.AssetsTransitionedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(domain.EventTypeAssetsTransitioned,
			domain.AggregateTypeTransitionHistory, historyID, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)),
		HistoryID:      historyID,
		TransitionID:   uuid.New(),
		TransitionSlug: "release-asset",
		ToStatus:       asset.StatusUsed,
		AssetIDs:       []uuid.UUID{uuid.New(), uuid.New()},
		LoggedUserID:   uuid.New(),
		RunID:          uuid.New(),
	}
}

type otherEvent struct {
	shared.BaseDomainEvent
}

func TestTransitionAuditHandler(t *testing.T) {
	t.Run("logs the run", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		h := transition.NewTransitionAuditHandler(zap.New(core))
		event := newTransitionedEvent()
		affected := uuid.New()
		event.AffectedUserID = &affected
		event.ReportFilename = "report.pdf"
		event.ReportFileURL = "s3://reports/report.pdf"

		require.NoError(t, h.Handle(context.Background(), event))

		entries := logs.FilterMessage("assets transitioned").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, event.RunID.String(), fields["run_id"])
		assert.Equal(t, "release-asset", fields["transition"])
		assert.Equal(t, string(asset.StatusUsed), fields["to_status"])
		assert.Equal(t, affected.String(), fields["affected_user_id"])
		assert.Equal(t, true, fields["archived"])
	})

	t.Run("omits optional fields", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		h := transition.NewTransitionAuditHandler(zap.New(core))
		event := newTransitionedEvent()
		event.ToStatus = ""

		require.NoError(t, h.Handle(context.Background(), event))

		fields := logs.All()[0].ContextMap()
		assert.NotContains(t, fields, "to_status")
		assert.NotContains(t, fields, "affected_user_id")
		assert.NotContains(t, fields, "report")
	})

	t.Run("rejects other events", func(t *testing.T) {
		h := transition.NewTransitionAuditHandler(zap.NewNop())
		other := &otherEvent{BaseDomainEvent: shared.NewBaseDomainEvent("Other", "Thing", uuid.New(), time.Time{})}

		err := h.Handle(context.Background(), other)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected event type")
	})

	t.Run("subscribes to assets transitioned", func(t *testing.T) {
		h := transition.NewTransitionAuditHandler(zap.NewNop())
		assert.Equal(t, []string{domain.EventTypeAssetsTransitioned}, h.EventTypes())
	})
}

func writeReport(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))
	return path
}

func TestArchivedReportCleanupHandler(t *testing.T) {
	ctx := context.Background()
	h := transition.NewArchivedReportCleanupHandler(zap.NewNop())

	t.Run("removes the temp copy of an archived report", func(t *testing.T) {
		path := writeReport(t, t.TempDir())
		event := newTransitionedEvent()
		event.ReportFilePath = path
		event.ReportFileURL = "s3://reports/report.pdf"

		require.NoError(t, h.Handle(ctx, event))

		assert.NoFileExists(t, path)
	})

	t.Run("keeps reports that were not archived", func(t *testing.T) {
		path := writeReport(t, t.TempDir())
		event := newTransitionedEvent()
		event.ReportFilePath = path

		require.NoError(t, h.Handle(ctx, event))

		assert.FileExists(t, path)
	})

	t.Run("keeps a report archived in place", func(t *testing.T) {
		path := writeReport(t, t.TempDir())
		event := newTransitionedEvent()
		event.ReportFilePath = path
		event.ReportFileURL = "file://" + path

		require.NoError(t, h.Handle(ctx, event))

		assert.FileExists(t, path)
	})

	t.Run("a missing file is not an error", func(t *testing.T) {
		event := newTransitionedEvent()
		event.ReportFilePath = filepath.Join(t.TempDir(), "gone.pdf")
		event.ReportFileURL = "s3://reports/gone.pdf"

		assert.NoError(t, h.Handle(ctx, event))
	})

	t.Run("runs without a report", func(t *testing.T) {
		assert.NoError(t, h.Handle(ctx, newTransitionedEvent()))
	})

	t.Run("rejects other events", func(t *testing.T) {
		other := &otherEvent{BaseDomainEvent: shared.NewBaseDomainEvent("Other", "Thing", uuid.New(), time.Time{})}
		assert.Error(t, h.Handle(ctx, other))
	})
}
