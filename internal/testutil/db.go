// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/reelbook/reelbook/internal/config"
	"github.com/reelbook/reelbook/internal/database"
)

// OpenTestDB opens a throwaway local store under t.TempDir with the schema
// applied, closed automatically when the test finishes.
func OpenTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.OpenLocal(config.LocalDatabaseConfig{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
