package migration_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/itam/backend/internal/domain/asset"
	"github.com/itam/backend/internal/domain/shared"
	"github.com/itam/backend/internal/domain/transition"
	"github.com/itam/backend/internal/infrastructure/event"
	"github.com/itam/backend/internal/infrastructure/migration"
	"github.com/itam/backend/internal/infrastructure/persistence"
	"github.com/itam/backend/migrations"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const latestVersion = 6

// startPostgres runs a throwaway PostgreSQL container and returns its DSN
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("itam_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func migrateUp(t *testing.T, dsn string) (*sql.DB, *migration.Migrator) {
	t.Helper()
	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.NewEmbedded(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	return sqlDB, m
}

func TestMigrations_UpAndDown(t *testing.T) {
	dsn := startPostgres(t)
	_, m := migrateUp(t, dsn)

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(latestVersion), version)
	assert.False(t, dirty)

	// A second Up is a no-op
	require.NoError(t, m.Up())

	require.NoError(t, m.Down())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
}

func TestMigrations_SeedTransitions(t *testing.T) {
	dsn := startPostgres(t)
	migrateUp(t, dsn)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	ctx := context.Background()

	transitions := persistence.NewGormTransitionRepository(db)
	release, err := transitions.FindBySlug(ctx, "release-asset")
	require.NoError(t, err)
	assert.Equal(t, asset.StatusUsed, release.ToStatus)
	assert.Equal(t, []transition.Action{
		transition.ActionAssignUser,
		transition.ActionChangeStatus,
		transition.ActionReleaseReport,
	}, release.Actions)

	giveBack, err := transitions.FindBySlug(ctx, "return-asset")
	require.NoError(t, err)
	assert.True(t, giveBack.Has(transition.ActionUnassignUser))
	assert.True(t, giveBack.Has(transition.ActionReturnReport))

	templates := persistence.NewGormReportTemplateRepository(db)
	tpl, err := templates.FindBySlug(ctx, "loan-asset")
	require.NoError(t, err)
	assert.Equal(t, "templates/reports/release-note.html", tpl.TemplatePath)
}

type integrationEvent struct {
	shared.BaseDomainEvent
}

func TestMigrations_OutboxOnPostgres(t *testing.T) {
	dsn := startPostgres(t)
	migrateUp(t, dsn)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	ctx := context.Background()
	repo := event.NewGormOutboxRepository(db)

	entry := shared.NewOutboxEntry(&integrationEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AssetsTransitioned", "TransitionHistory", uuid.New(), time.Time{}),
	}, []byte(`{"run_id":"r1"}`))
	require.NoError(t, repo.Save(ctx, entry))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{entry.ID})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)

	again, err := repo.MarkProcessing(ctx, []uuid.UUID{entry.ID})
	require.NoError(t, err)
	assert.Empty(t, again, "an entry is claimed once")

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusProcessing])
}
