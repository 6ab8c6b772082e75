package event

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/itam/backend/internal/domain/asset"
	"github.com/itam/backend/internal/domain/transition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSerializer_Register(t *testing.T) {
	serializer := NewEventSerializer()

	serializer.Register("Event2", &testEvent{})
	serializer.Register("Event1", &testEvent{})

	assert.True(t, serializer.IsRegistered("Event1"))
	assert.False(t, serializer.IsRegistered("UnknownEvent"))
	assert.Equal(t, []string{"Event1", "Event2"}, serializer.RegisteredTypes())
}

func TestEventSerializer_Deserialize(t *testing.T) {
	serializer := newTestSerializer()

	original := newTestEvent("TestEvent")
	data, err := serializer.Serialize(original)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"data":"test data"`)

	deserialized, err := serializer.Deserialize("TestEvent", data)
	require.NoError(t, err)

	event, ok := deserialized.(*testEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), event.EventID())
	assert.Equal(t, original.AggregateID(), event.AggregateID())
	assert.Equal(t, "TestAggregate", event.AggregateType())
	assert.True(t, original.OccurredAt().Equal(event.OccurredAt()))
	assert.Equal(t, original.Data, event.Data)
}

func TestEventSerializer_Deserialize_Errors(t *testing.T) {
	serializer := newTestSerializer()

	_, err := serializer.Deserialize("UnknownEvent", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")

	_, err = serializer.Deserialize("TestEvent", []byte(`invalid json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal TestEvent event")
}

func TestRegisterAllEvents(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterAllEvents(serializer)

	tr, err := transition.NewTransition("Release", "release-asset", asset.StatusUsed,
		[]transition.Action{transition.ActionChangeStatus, transition.ActionAssignUser})
	require.NoError(t, err)
	affected := uuid.New()
	report := "release-asset_20260302.pdf"
	h, err := transition.NewTransitionHistory(transition.HistoryParams{
		TransitionID:   tr.ID,
		AssetIDs:       []uuid.UUID{uuid.New()},
		LoggedUserID:   uuid.New(),
		AffectedUserID: &affected,
		RunID:          uuid.New(),
		ReportFilename: report,
		CreatedAt:      time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	original := transition.NewAssetsTransitionedEvent(tr, h)

	data, err := serializer.Serialize(original)
	require.NoError(t, err)
	decoded, err := serializer.Deserialize(transition.EventTypeAssetsTransitioned, data)
	require.NoError(t, err)

	event, ok := decoded.(*transition.AssetsTransitionedEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), event.EventID())
	assert.Equal(t, h.ID, event.HistoryID)
	assert.Equal(t, asset.StatusUsed, event.ToStatus)
	assert.Equal(t, h.AssetIDs, event.AssetIDs)
	assert.Equal(t, affected, *event.AffectedUserID)
	assert.Equal(t, report, event.ReportFilename)
	assert.False(t, event.Archived())
}
