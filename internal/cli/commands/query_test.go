package commands

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsisso/internal/cli/output"
	"github.com/leapstack-labs/leapsisso/internal/cli/testutil"
	"github.com/leapstack-labs/leapsisso/internal/state"
	"github.com/leapstack-labs/leapsisso/pkg/sisso"
)

// setupTestDB ingests the example report into a fresh state database.
func setupTestDB(t *testing.T, path string) {
	t.Helper()

	raw, err := os.ReadFile(filepath.Join(testutil.GetTestdataDir(t), "sisso", "SISSO.out"))
	require.NoError(t, err)
	report, err := sisso.Parse(string(raw), sisso.ParseOptions{})
	require.NoError(t, err)

	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(path))
	defer func() { _ = store.Close() }()
	require.NoError(t, store.Migrate())

	_, _, err = store.SaveReport(context.Background(), "runs/SISSO.out", raw, report)
	require.NoError(t, err)
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	statePath := filepath.Join(t.TempDir(), "state.db")
	setupTestDB(t, statePath)

	db, err := sql.Open("sqlite", statePath+"?mode=ro")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// queryOutput runs query against db and returns it rendered in format.
func queryOutput(t *testing.T, db *sql.DB, format, query string, args ...any) string {
	t.Helper()
	rs, err := queryResult(context.Background(), db, query, args...)
	require.NoError(t, err)
	buf := new(bytes.Buffer)
	require.NoError(t, rs.Write(buf, format))
	return buf.String()
}

func TestQueryCommand_Tables(t *testing.T) {
	db := openTestDB(t)
	buf := new(bytes.Buffer)

	err := listTablesFromDB(context.Background(), buf, db, "table", false)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "reports")
	assert.Contains(t, out, "descriptors")
	assert.Contains(t, out, "coefficients")
	assert.Contains(t, out, "v_models")
	assert.NotContains(t, out, "goose_db_version")
}

func TestQueryCommand_ViewsOnly(t *testing.T) {
	db := openTestDB(t)
	buf := new(bytes.Buffer)

	err := listTablesFromDB(context.Background(), buf, db, "table", true)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "v_models")
	assert.Contains(t, out, "v_reports")
	assert.NotContains(t, out, "coefficients")
	assert.Contains(t, out, "(2 rows)")
}

func TestQueryCommand_Schema(t *testing.T) {
	db := openTestDB(t)
	buf := new(bytes.Buffer)

	err := showSchemaFromDB(context.Background(), buf, db, "descriptors", "table")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Table: descriptors")
	assert.Contains(t, out, "notation")
	assert.Contains(t, out, "fingerprint")
	assert.Contains(t, out, "idx_descriptors_fingerprint")
}

func TestQueryCommand_SchemaNotFound(t *testing.T) {
	db := openTestDB(t)
	buf := new(bytes.Buffer)

	err := showSchemaFromDB(context.Background(), buf, db, "nonexistent_table", "table")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestQueryCommand_DirectSQL(t *testing.T) {
	db := openTestDB(t)

	out := queryOutput(t, db, output.FormatTable,
		"SELECT dimension, notation FROM descriptors ORDER BY dimension, position")
	assert.Contains(t, out, "((feature1-feature2)+(feature3-feature4))")
	assert.Contains(t, out, "(feature1)^2")
	assert.Contains(t, out, "(3 rows)")
}

func TestQueryCommand_JSONFormat(t *testing.T) {
	db := openTestDB(t)

	out := queryOutput(t, db, output.FormatJSON,
		"SELECT dimension, task, coefficient FROM v_models WHERE dimension = 1 ORDER BY task")
	assert.Contains(t, out, `"dimension"`)
	assert.Contains(t, out, `"coefficient": 0.5`)
	assert.Contains(t, out, `"coefficient": 2`)
}

func TestQueryCommand_YAMLFormat(t *testing.T) {
	db := openTestDB(t)

	out := queryOutput(t, db, output.FormatYAML, "SELECT version, dimensions FROM reports")
	assert.Contains(t, out, "- dimensions: 2")
	assert.Contains(t, out, "3.0.2")
}

func TestQueryCommand_CSVFormat(t *testing.T) {
	db := openTestDB(t)

	out := queryOutput(t, db, output.FormatCSV,
		"SELECT dimension, position, notation FROM descriptors ORDER BY dimension, position")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4) // header + 3 rows
	assert.Equal(t, "dimension,position,notation", lines[0])
	assert.Equal(t, "2,2,(feature1)^2", lines[3])
}

func TestQueryCommand_MarkdownFormat(t *testing.T) {
	db := openTestDB(t)

	out := queryOutput(t, db, output.FormatMarkdown,
		"SELECT dimension, subspace_size FROM iterations ORDER BY dimension")
	assert.Contains(t, out, "| dimension | subspace_size |")
	assert.Contains(t, out, "| --- | --- |")
	assert.Contains(t, out, "| 1 | 20 |")
}

func TestQueryCommand_EmptyResults(t *testing.T) {
	db := openTestDB(t)

	out := queryOutput(t, db, output.FormatTable, "SELECT * FROM descriptors WHERE 1=0")
	assert.Equal(t, "(0 rows)\n", out)

	out = queryOutput(t, db, output.FormatJSON, "SELECT * FROM descriptors WHERE 1=0")
	assert.Equal(t, "[]\n", out)
}

func TestQueryCommand_SchemaJSON(t *testing.T) {
	db := openTestDB(t)
	buf := new(bytes.Buffer)

	err := showSchemaFromDB(context.Background(), buf, db, "reports", "json")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"name": "reports"`)
	assert.Contains(t, out, `"type": "table"`)
	assert.Contains(t, out, `"columns"`)
}

func TestQueryCommand_ViewSchema(t *testing.T) {
	db := openTestDB(t)
	buf := new(bytes.Buffer)

	err := showSchemaFromDB(context.Background(), buf, db, "v_models", "table")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "View: v_models")
}

func TestQueryCommand_Search(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.db")
	setupTestDB(t, statePath)

	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetContext(context.Background())

	require.NoError(t, searchDescriptors(cmd, statePath, "^2", "csv"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "path,dimension,position,notation,fingerprint", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "runs/SISSO.out,2,2,(feature1)^2,"))
}

func TestQueryFormat(t *testing.T) {
	tests := []struct {
		mode     output.Mode
		explicit string
		expected string
	}{
		{output.ModeText, "", "table"},
		{output.ModeMarkdown, "", "md"},
		{output.ModeJSON, "", "json"},
		{output.ModeYAML, "", "yaml"},
		{output.ModeJSON, "csv", "csv"},
	}

	for _, tt := range tests {
		tr := testutil.NewTestRenderer(tt.mode, false)
		cmdCtx := &CommandContext{Renderer: tr.Renderer}
		assert.Equal(t, tt.expected, queryFormat(cmdCtx, tt.explicit), "mode %s", tt.mode)
	}
}

func TestNewQueryCommand(t *testing.T) {
	cmd := NewQueryCommand()
	assert.Equal(t, "query", cmd.Use[:5])
	assert.NotNil(t, cmd.RunE)

	// Check subcommands
	subCmds := cmd.Commands()
	var names []string
	for _, c := range subCmds {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "tables")
	assert.Contains(t, names, "views")
	assert.Contains(t, names, "schema")
	assert.Contains(t, names, "search")
}

func TestQueryCommand_NoDB(t *testing.T) {
	tmpDir := t.TempDir()
	statePath := filepath.Join(tmpDir, "nonexistent", "state.db")

	cmd := &cobra.Command{}
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))

	// Verify file doesn't exist check works
	_, err := os.Stat(statePath)
	assert.True(t, os.IsNotExist(err))
}

func TestQueryCommand_SchemaRejectsUnknownNames(t *testing.T) {
	db := openTestDB(t)

	for _, name := range []string{
		"reports); DROP TABLE reports; --",
		`descriptors"`,
		"goose_db_version",
	} {
		err := showSchemaFromDB(context.Background(), new(bytes.Buffer), db, name, output.FormatTable)
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), "not found")
	}

	out := queryOutput(t, db, output.FormatCSV, "SELECT COUNT(*) AS n FROM reports")
	assert.Equal(t, "n\n1\n", out)
}

func TestQueryCommand_SchemaKeys(t *testing.T) {
	db := openTestDB(t)

	obj, err := lookupObject(context.Background(), db, "coefficients")
	require.NoError(t, err)
	assert.Equal(t, "table", obj.Type)

	keys := map[string]int{}
	for _, col := range obj.Columns {
		keys[col.Name] = col.Key
		assert.True(t, col.NotNull, col.Name)
	}
	assert.Equal(t, map[string]int{"report_id": 1, "dimension": 2, "task": 3, "position": 4, "value": 0}, keys)
	assert.Empty(t, obj.Indexes)
}

func newTestSession(t *testing.T, format string) (*replSession, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	return &replSession{
		ctx:    context.Background(),
		db:     openTestDB(t),
		format: format,
		out:    stdout,
		errOut: stderr,
	}, stdout, stderr
}

func TestREPLSession_MultiLineSQL(t *testing.T) {
	s, stdout, stderr := newTestSession(t, output.FormatCSV)

	assert.True(t, s.handle("SELECT dimension, subspace_size"))
	assert.True(t, s.continuing())
	assert.Empty(t, stdout.String())

	assert.True(t, s.handle("FROM iterations ORDER BY dimension;"))
	assert.False(t, s.continuing())
	assert.Equal(t, "dimension,subspace_size\n1,20\n2,20\n", stdout.String())
	assert.Empty(t, stderr.String())

	assert.True(t, s.handle("SELECT * FROM nope;"))
	assert.Contains(t, stderr.String(), "Error:")

	assert.False(t, s.handle(".quit"))
}

func TestREPLSession_Shortcuts(t *testing.T) {
	s, stdout, stderr := newTestSession(t, output.FormatCSV)

	s.handle(".reports")
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,path,version,dimensions,finished,total_cpu_time,ingested_at", lines[0])
	id, _, _ := strings.Cut(lines[1], ",")

	stdout.Reset()
	s.handle(".best")
	assert.Contains(t, stdout.String(), "runs/SISSO.out,2,1,2,(feature1)^2,")
	assert.NotContains(t, stdout.String(), "runs/SISSO.out,1,")

	stdout.Reset()
	s.handle(".models " + id[:8])
	lines = strings.Split(strings.TrimSpace(stdout.String()), "\n")
	assert.Len(t, lines, 7, "header plus one row per task and descriptor of every dimension")

	stdout.Reset()
	s.handle(".search feature3")
	assert.Contains(t, stdout.String(), "((feature1-feature2)+(feature3-feature4))")

	s.handle(".models")
	assert.Contains(t, stderr.String(), "Usage: .models <report-id>")
	s.handle(".nope")
	assert.Contains(t, stderr.String(), "Unknown command: .nope")
}

func TestREPLSession_DescriptorLookup(t *testing.T) {
	s, stdout, stderr := newTestSession(t, output.FormatCSV)

	// Redundant parentheses do not change the fingerprint.
	s.handle(".descriptor ((feature1)^2)")
	assert.Empty(t, stderr.String())
	assert.Contains(t, stdout.String(), ",runs/SISSO.out,2,2,(feature1)^2")

	d, err := sisso.NewDescriptor(0, "(feature1)^2", nil)
	require.NoError(t, err)
	stdout.Reset()
	s.handle(".descriptor " + strings.ToUpper(d.FingerprintHex()))
	assert.Contains(t, stdout.String(), ",runs/SISSO.out,2,2,(feature1)^2")

	s.handle(".descriptor a+b")
	assert.Contains(t, stderr.String(), "Error:")
}

func TestREPLSession_Format(t *testing.T) {
	s, stdout, stderr := newTestSession(t, output.FormatTable)

	s.handle(".format json")
	s.handle("SELECT COUNT(*) AS n FROM descriptors;")
	assert.JSONEq(t, `[{"n": 3}]`, stdout.String())

	s.handle(".format xml")
	assert.Contains(t, stderr.String(), "Usage: .format table|json|yaml|csv|md")
	assert.Equal(t, output.FormatJSON, s.format)
}

func TestPrintREPLHelp(t *testing.T) {
	buf := new(bytes.Buffer)
	printREPLHelp(buf)
	for _, sc := range replShortcuts {
		assert.Contains(t, buf.String(), sc.name)
	}
	assert.Contains(t, buf.String(), ".descriptor <fingerprint|notation>")
	assert.Contains(t, buf.String(), ".schema <name>")
}
