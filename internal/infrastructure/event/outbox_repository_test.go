package event

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/itam/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormOutboxRepository_SaveAndFindPending(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOutboxRepository(setupOutboxDB(t))
	serializer := newTestSerializer()

	first := newOutboxEntry(t, serializer)
	second := newOutboxEntry(t, serializer)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.Save(ctx, second, first))
	require.NoError(t, repo.Save(ctx))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID, "oldest first")
	assert.Equal(t, first.EventID, pending[0].EventID)
	assert.Equal(t, first.Payload, pending[0].Payload)
	assert.Equal(t, shared.OutboxStatusPending, pending[0].Status)

	limited, err := repo.FindPending(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGormOutboxRepository_FindRetryable(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOutboxRepository(setupOutboxDB(t))
	serializer := newTestSerializer()

	due := newOutboxEntry(t, serializer)
	due.MarkFailed("boom")
	past := time.Now().Add(-time.Minute)
	due.NextRetryAt = &past
	later := newOutboxEntry(t, serializer)
	later.MarkFailed("boom")
	require.NoError(t, repo.Save(ctx, due, later, newOutboxEntry(t, serializer)))

	retryable, err := repo.FindRetryable(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, retryable, 1)
	assert.Equal(t, due.ID, retryable[0].ID)
	assert.Equal(t, 1, retryable[0].RetryCount)
	assert.Equal(t, "boom", retryable[0].LastError)
}

func TestGormOutboxRepository_MarkProcessing(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOutboxRepository(setupOutboxDB(t))
	serializer := newTestSerializer()

	pending := newOutboxEntry(t, serializer)
	sent := newOutboxEntry(t, serializer)
	sent.MarkSent()
	require.NoError(t, repo.Save(ctx, pending, sent))

	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{pending.ID, sent.ID})
	require.NoError(t, err)
	require.Len(t, claimed, 1, "only pending and failed entries are claimed")
	assert.Equal(t, pending.ID, claimed[0].ID)
	assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)

	stored, err := repo.FindByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusProcessing, stored.Status)

	again, err := repo.MarkProcessing(ctx, []uuid.UUID{pending.ID})
	require.NoError(t, err)
	assert.Empty(t, again, "an entry is claimed once")

	none, err := repo.MarkProcessing(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGormOutboxRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOutboxRepository(setupOutboxDB(t))
	entry := newOutboxEntry(t, newTestSerializer())
	require.NoError(t, repo.Save(ctx, entry))

	entry.MarkSent()
	require.NoError(t, repo.Update(ctx, entry))

	stored, err := repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusSent, stored.Status)
	require.NotNil(t, stored.ProcessedAt)
}

func TestGormOutboxRepository_FindByID_NotFound(t *testing.T) {
	repo := NewGormOutboxRepository(setupOutboxDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOutboxRepository_DeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOutboxRepository(setupOutboxDB(t))
	serializer := newTestSerializer()

	old := newOutboxEntry(t, serializer)
	old.MarkSent()
	longAgo := time.Now().Add(-48 * time.Hour)
	old.ProcessedAt = &longAgo
	recent := newOutboxEntry(t, serializer)
	recent.MarkSent()
	pending := newOutboxEntry(t, serializer)
	require.NoError(t, repo.Save(ctx, old, recent, pending))

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindByID(ctx, old.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = repo.FindByID(ctx, recent.ID)
	assert.NoError(t, err)
}

func TestGormOutboxRepository_FindDeadAndCount(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOutboxRepository(setupOutboxDB(t))
	serializer := newTestSerializer()

	var dead []*shared.OutboxEntry
	for i := 0; i < 3; i++ {
		e := newOutboxEntry(t, serializer)
		e.MaxRetries = 1
		e.MarkFailed("gave up")
		require.True(t, e.IsDead())
		dead = append(dead, e)
	}
	require.NoError(t, repo.Save(ctx, dead...))
	require.NoError(t, repo.Save(ctx, newOutboxEntry(t, serializer)))

	page, total, err := repo.FindDead(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 2)

	page, _, err = repo.FindDead(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[shared.OutboxStatusDead])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusPending])
}
