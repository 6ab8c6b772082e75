package persistence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	apptransition "github.com/itam/backend/internal/application/transition"
	"github.com/itam/backend/internal/domain/asset"
	"github.com/itam/backend/internal/domain/shared"
	"github.com/itam/backend/internal/domain/transition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recordingOutbox keeps saved events and whether they came with a transaction
type recordingOutbox struct {
	events []shared.DomainEvent
	withTx bool
	err    error
}

func (o *recordingOutbox) SaveEvents(_ context.Context, txProvider any, events ...shared.DomainEvent) error {
	_, o.withTx = txProvider.(*gorm.DB)
	if o.err != nil {
		return o.err
	}
	o.events = append(o.events, events...)
	return nil
}

// fileRenderer writes a placeholder report, or fails after writing part of it
type fileRenderer struct {
	err error
}

func (r fileRenderer) Render(_ context.Context, _, outputPath string, _ apptransition.ReportData) error {
	if err := os.WriteFile(outputPath, []byte("%PDF-1.4"), 0o600); err != nil {
		return err
	}
	return r.err
}

type scopeFixture struct {
	scope      *GormTransitionScope
	assets     *GormAssetRepository
	history    *GormHistoryRepository
	transition *transition.Transition
	template   *transition.ReportTemplateSource
	batch      []*asset.Asset
	tempPath   string
}

func newScopeFixture(t *testing.T) *scopeFixture {
	t.Helper()
	db := setupTestDB(t)
	ctx := context.Background()

	f := &scopeFixture{
		scope:    NewGormTransitionScope(db),
		assets:   NewGormAssetRepository(db),
		history:  NewGormHistoryRepository(db),
		tempPath: t.TempDir() + string(filepath.Separator),
	}

	transitions := NewGormTransitionRepository(db)
	f.transition = createTestTransition(t, transitions, "release", asset.StatusUsed,
		transition.ActionChangeStatus,
		transition.ActionAssignUser,
		transition.ActionReleaseReport,
	)
	f.template = &transition.ReportTemplateSource{
		BaseEntity:   shared.NewBaseEntity(),
		Name:         "Release note",
		Slug:         "release-note",
		TemplatePath: "/templates/release-note.html",
	}
	require.NoError(t, NewGormReportTemplateRepository(db).Save(ctx, f.template))

	for _, sn := range []string{"SN-A", "SN-B"} {
		f.batch = append(f.batch, createTestAsset(t, f.assets, sn))
	}
	return f
}

func (f *scopeFixture) dispatcher(t *testing.T, renderer apptransition.ReportRenderer) *apptransition.Dispatcher {
	t.Helper()
	d, err := apptransition.NewDispatcher(f.scope, renderer, f.tempPath, apptransition.DispatcherParams{
		Transition:   f.transition,
		Assets:       f.batch,
		LoggedUser:   newTestUser("admin"),
		AffectedUser: newTestUser("alice"),
		Template:     f.template,
	})
	require.NoError(t, err)
	return d
}

func (f *scopeFixture) batchIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(f.batch))
	for i, a := range f.batch {
		ids[i] = a.ID
	}
	return ids
}

func TestGormTransitionScope_CommitsRun(t *testing.T) {
	f := newScopeFixture(t)
	ctx := context.Background()

	d := f.dispatcher(t, fileRenderer{})
	require.NoError(t, d.Run(ctx))

	stored, err := f.assets.FindByIDs(ctx, f.batchIDs())
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, a := range stored {
		assert.Equal(t, asset.StatusUsed, a.Status)
		assert.NotNil(t, a.OwnerID)
	}

	history, err := f.history.FindByID(ctx, d.History().ID)
	require.NoError(t, err)
	assert.Equal(t, f.batchIDs(), history.AssetIDs)
	assert.Equal(t, d.RunID(), history.RunID)
	require.NotNil(t, history.ReportFilename)
	assert.Equal(t, d.ReportFileName(), *history.ReportFilename)
	assert.FileExists(t, d.ReportFilePath())
}

func TestGormTransitionScope_RollsBackOnRenderFailure(t *testing.T) {
	f := newScopeFixture(t)
	ctx := context.Background()

	renderErr := errors.New("chrome crashed")
	d := f.dispatcher(t, fileRenderer{err: renderErr})
	err := d.Run(ctx)
	require.ErrorIs(t, err, renderErr)

	stored, err := f.assets.FindByIDs(ctx, f.batchIDs())
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, a := range stored {
		assert.Equal(t, asset.StatusNew, a.Status, "asset changes must be rolled back")
		assert.Nil(t, a.OwnerID)
	}

	count, err := f.history.Count(ctx, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Zero(t, count)

	entries, err := os.ReadDir(f.tempPath)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial report must be removed")
}

func TestGormTransitionScope_Execute(t *testing.T) {
	f := newScopeFixture(t)
	ctx := context.Background()

	t.Run("error rolls back every repository", func(t *testing.T) {
		failure := errors.New("boom")
		err := f.scope.Execute(ctx, func(repos apptransition.TransactionalRepositories) error {
			a := f.batch[0].Clone()
			a.Remarks = "changed"
			if err := repos.AssetRepo().Save(ctx, a); err != nil {
				return err
			}
			h := newTestHistory(t, f.transition.ID, uuid.New(), nil, a.UpdatedAt, a.ID)
			if err := repos.HistoryRepo().Create(ctx, h); err != nil {
				return err
			}
			return failure
		})
		require.ErrorIs(t, err, failure)

		stored, err := f.assets.FindByID(ctx, f.batch[0].ID)
		require.NoError(t, err)
		assert.Empty(t, stored.Remarks)

		count, err := f.history.Count(ctx, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestGormTransitionScope_WritesEventsToOutbox(t *testing.T) {
	f := newScopeFixture(t)
	outbox := &recordingOutbox{}
	f.scope = NewGormTransitionScope(f.scope.db, WithOutbox(outbox))
	ctx := context.Background()

	d := f.dispatcher(t, fileRenderer{})
	require.NoError(t, d.Run(ctx))

	require.Len(t, outbox.events, 1)
	assert.True(t, outbox.withTx)
	e, ok := outbox.events[0].(*transition.AssetsTransitionedEvent)
	require.True(t, ok)
	assert.Equal(t, d.History().ID, e.HistoryID)
	assert.Equal(t, f.batchIDs(), e.AssetIDs)
	assert.Equal(t, d.ReportFileName(), e.ReportFilename)
}

func TestGormTransitionScope_OutboxFailureRollsBack(t *testing.T) {
	f := newScopeFixture(t)
	f.scope = NewGormTransitionScope(f.scope.db, WithOutbox(&recordingOutbox{err: errors.New("outbox table missing")}))
	ctx := context.Background()

	d := f.dispatcher(t, fileRenderer{})
	require.Error(t, d.Run(ctx))

	stored, err := f.assets.FindByIDs(ctx, f.batchIDs())
	require.NoError(t, err)
	for _, a := range stored {
		assert.Equal(t, asset.StatusNew, a.Status)
	}
	count, err := f.history.Count(ctx, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Zero(t, count)
}
