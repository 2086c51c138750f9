package commands

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsisso/internal/cli/output"
	"github.com/leapstack-labs/leapsisso/internal/cli/testutil"
	"github.com/leapstack-labs/leapsisso/internal/state"
)

func newMemoryStore(t *testing.T) *state.SQLiteStore {
	t.Helper()
	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// copyReport copies the example report to name inside dir.
func copyReport(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "SISSO.out"))
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestIngestReports(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cmdCtx, _ := newTestContext(t, dir, output.ModeMarkdown)
	store := newMemoryStore(t)

	paths := []string{
		filepath.Join(dir, "SISSO.out"),
		copyReport(t, dir, filepath.Join("rerun", "SISSO.out")),
		filepath.Join(dir, "missing.out"),
	}

	results, err := ingestReports(context.Background(), cmdCtx, store, paths, false)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, res := range results {
		assert.Equal(t, paths[i], res.Path, "results keep argument order")
	}

	// Identical bytes are stored once; either copy may win the race.
	assert.Empty(t, results[0].Error)
	assert.Empty(t, results[1].Error)
	assert.Equal(t, results[0].ID, results[1].ID)
	assert.NotEqual(t, results[0].Created, results[1].Created)

	assert.NotEmpty(t, results[2].Error)
	assert.Empty(t, results[2].ID)

	records, err := store.ListReports(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)

	err = ingestFailure(results)
	require.Error(t, err)
	assert.Equal(t, "1 of 3 reports failed to ingest", err.Error())
}

func TestIngestReports_FailFast(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cmdCtx, _ := newTestContext(t, dir, output.ModeMarkdown)
	cmdCtx.Cfg.IngestWorkers = 1
	store := newMemoryStore(t)

	_, err := ingestReports(context.Background(), cmdCtx, store,
		[]string{filepath.Join(dir, "missing.out"), filepath.Join(dir, "SISSO.out")}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.out")
}

func TestIngestFailure(t *testing.T) {
	assert.NoError(t, ingestFailure(nil))
	assert.NoError(t, ingestFailure([]output.IngestResult{{Path: "a", ID: "x", Created: true}}))
}

func TestIngestAndHistoryCommands(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	stdout, _, err := runCommand(t, dir, NewHistoryCommand())
	require.NoError(t, err)
	assert.Contains(t, stdout, "No reports ingested yet")

	stdout, _, err = runCommand(t, dir, NewIngestCommand(), filepath.Join(dir, "SISSO.out"), "--workers", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "SISSO.out")
	_, err = os.Stat(filepath.Join(dir, ".leapsisso", "state.db"))
	require.NoError(t, err, "state database is created inside the project")

	stdout, _, err = runCommand(t, dir, NewIngestCommand(), filepath.Join(dir, "SISSO.out"), "-o", "json")
	require.NoError(t, err)
	var results []output.IngestResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	require.Len(t, results, 1)
	assert.False(t, results[0].Created)
	id := results[0].ID

	stdout, _, err = runCommand(t, dir, NewHistoryCommand())
	require.NoError(t, err)
	assert.Contains(t, stdout, "# Reports (1 total)")
	assert.Contains(t, stdout, id)

	stdout, _, err = runCommand(t, dir, NewHistoryCommand(), "show", id)
	require.NoError(t, err)
	assert.Contains(t, stdout, "# SISSO report: "+filepath.Join(dir, "SISSO.out"))
	assert.Contains(t, stdout, "## Dimension 2")

	_, _, err = runCommand(t, dir, NewHistoryCommand(), "show", "unknown-id")
	require.ErrorIs(t, err, state.ErrNotFound)
}

func TestIngestCommand_Failure(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	stdout, _, err := runCommand(t, dir, NewIngestCommand(), filepath.Join(dir, "missing.out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 reports failed to ingest")
	assert.Contains(t, stdout, "missing.out")
}
