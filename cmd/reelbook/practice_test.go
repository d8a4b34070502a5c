package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelbook/reelbook/internal/config"
	"github.com/reelbook/reelbook/internal/database"
)

// useTestConfig points the command layer at a throwaway local store.
func useTestConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "reelbook.db")
	cfgPath := filepath.Join(dir, "config.yml")
	content := fmt.Sprintf("database:\n  local:\n    path: %s\n", dbPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))

	previous := configFile
	configFile = cfgPath
	t.Cleanup(func() {
		configFile = previous
	})
	return dbPath
}

func TestPracticeStageCommand(t *testing.T) {
	dbPath := useTestConfig(t)

	command := newPracticeStageCommand()
	command.SetOut(io.Discard)
	command.SetArgs([]string{
		"--user", "alice",
		"--repertoire", "1",
		"--tune", "7",
		"--rating", "good",
		"--goal", "fluency",
		"--notes", "rushed the B part",
		"--at", "2025-01-10T09:00:00Z",
	})
	require.NoError(t, command.Execute())

	db, err := database.OpenLocal(config.LocalDatabaseConfig{Path: dbPath})
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	var staged struct {
		Quality *string `db:"quality"`
		Goal    string  `db:"goal"`
		Notes   string  `db:"notes"`
	}
	require.NoError(t, db.Get(&staged,
		`SELECT quality, goal, notes FROM staged_evaluation
		WHERE user_ref = 'alice' AND tune_ref = 7 AND repertoire_ref = 1`))
	require.NotNil(t, staged.Quality)
	assert.Equal(t, "good", *staged.Quality)
	assert.Equal(t, "fluency", staged.Goal)
	assert.Equal(t, "rushed the B part", staged.Notes)
}

func TestPracticeStageCommandRejectsBadRating(t *testing.T) {
	useTestConfig(t)

	command := newPracticeStageCommand()
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{
		"--repertoire", "1",
		"--tune", "7",
		"--rating", "flawless",
	})
	require.Error(t, command.Execute())
}
