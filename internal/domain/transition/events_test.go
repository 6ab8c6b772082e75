package transition

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/itam/backend/internal/domain/asset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAssetsTransitionedEvent(t *testing.T) {
	tr, err := NewTransition("Release", "release-asset", asset.StatusUsed,
		[]Action{ActionAssignUser, ActionChangeStatus, ActionReleaseReport})
	require.NoError(t, err)

	affected := uuid.New()
	created := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	h, err := NewTransitionHistory(HistoryParams{
		TransitionID:   tr.ID,
		AssetIDs:       []uuid.UUID{uuid.New(), uuid.New()},
		LoggedUserID:   uuid.New(),
		AffectedUserID: &affected,
		RunID:          uuid.New(),
		ReportFilename: "release.pdf",
		ReportFilePath: "/tmp/reports/release.pdf",
		ReportFileURL:  "s3://reports/release.pdf",
		CreatedAt:      created,
	})
	require.NoError(t, err)

	e := NewAssetsTransitionedEvent(tr, h)

	assert.Equal(t, EventTypeAssetsTransitioned, e.EventType())
	assert.Equal(t, AggregateTypeTransitionHistory, e.AggregateType())
	assert.Equal(t, h.ID, e.AggregateID())
	assert.Equal(t, created, e.OccurredAt())
	assert.Equal(t, "release-asset", e.TransitionSlug)
	assert.Equal(t, asset.StatusUsed, e.ToStatus)
	assert.Equal(t, h.AssetIDs, e.AssetIDs)
	assert.Equal(t, &affected, e.AffectedUserID)
	assert.Equal(t, h.RunID, e.RunID)
	assert.Equal(t, "release.pdf", e.ReportFilename)
	assert.Equal(t, "/tmp/reports/release.pdf", e.ReportFilePath)
	assert.True(t, e.Archived())
}

func TestNewAssetsTransitionedEvent_WithoutStatusOrReport(t *testing.T) {
	tr, err := NewTransition("Unassign", "unassign", asset.StatusUsed, []Action{ActionUnassignUser})
	require.NoError(t, err)
	h, err := NewTransitionHistory(HistoryParams{
		TransitionID: tr.ID,
		AssetIDs:     []uuid.UUID{uuid.New()},
		LoggedUserID: uuid.New(),
		RunID:        uuid.New(),
	})
	require.NoError(t, err)

	e := NewAssetsTransitionedEvent(tr, h)

	assert.Empty(t, e.ToStatus, "status is only reported when the transition changes it")
	assert.Empty(t, e.ReportFilename)
	assert.False(t, e.Archived())
	assert.Nil(t, e.AffectedUserID)
}
