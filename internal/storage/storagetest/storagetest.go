// Package storagetest opens throwaway sqlite databases for tests.
package storagetest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bookclub/internal/config"
	"bookclub/internal/storage"
)

// OpenDB returns a migrated in-memory database that is closed when the test ends.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := storage.InitDB(config.DatabaseConfig{
		Type:     "sqlite",
		Path:     ":memory:",
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, storage.AutoMigrateTables(db))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// FileConfig migrates a sqlite database in a temporary file and returns its
// config, for code under test that opens and closes its own handles.
func FileConfig(t testing.TB) config.DatabaseConfig {
	t.Helper()

	cfg := config.DatabaseConfig{
		Type:     "sqlite",
		Path:     filepath.Join(t.TempDir(), "bookclub.db"),
		LogLevel: "silent",
	}
	db, err := storage.InitDB(cfg)
	require.NoError(t, err)
	require.NoError(t, storage.AutoMigrateTables(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	return cfg
}
