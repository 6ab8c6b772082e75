package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates a file backed SQLite database with the asset transition
// tables. A file is used so every pooled connection sees the same schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "itam.db")), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			first_name TEXT,
			last_name TEXT,
			email TEXT,
			password_hash TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			last_login_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE warehouses (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE assets (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			sn TEXT UNIQUE,
			barcode TEXT UNIQUE,
			status TEXT NOT NULL,
			owner_id TEXT,
			warehouse_id TEXT,
			price TEXT NOT NULL DEFAULT '0',
			remarks TEXT,
			deleted INTEGER NOT NULL DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE transitions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			to_status TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE transition_actions (
			id TEXT PRIMARY KEY,
			transition_id TEXT NOT NULL,
			action TEXT NOT NULL,
			position INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE report_templates (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			template_path TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE transition_histories (
			id TEXT PRIMARY KEY,
			transition_id TEXT NOT NULL,
			logged_user_id TEXT NOT NULL,
			affected_user_id TEXT,
			run_id TEXT NOT NULL UNIQUE,
			report_filename TEXT,
			report_file_path TEXT,
			report_file_url TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE transition_history_assets (
			history_id TEXT NOT NULL,
			asset_id TEXT NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (history_id, asset_id)
		)`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}
