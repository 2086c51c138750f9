package commands

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsisso/internal/cli/config"
	"github.com/leapstack-labs/leapsisso/internal/cli/output"
	"github.com/leapstack-labs/leapsisso/internal/cli/testutil"
	"github.com/leapstack-labs/leapsisso/pkg/expr"
	"github.com/leapstack-labs/leapsisso/pkg/sisso"
)

// newTestContext builds a CommandContext for a test project without going
// through the global configuration.
func newTestContext(t *testing.T, dir string, mode output.Mode) (*CommandContext, *testutil.TestRenderer) {
	t.Helper()

	cache, err := expr.NewCache(64, expr.Decoder{})
	require.NoError(t, err)

	tr := testutil.NewTestRenderer(mode, false)
	return &CommandContext{
		Cfg: &config.Config{
			StatePath:       filepath.Join(dir, ".leapsisso", "state.db"),
			Output:          string(mode),
			FeatureSpace:    filepath.Join(dir, "SIS_subspaces", "Uspace.expressions"),
			DecodeCacheSize: 64,
			IngestWorkers:   2,
			Watch:           &config.WatchConfig{Debounce: 20 * time.Millisecond},
		},
		Logger:   slog.New(slog.DiscardHandler),
		Renderer: tr.Renderer,
		Cache:    cache,
	}, tr
}

// runCommand executes cmd under a minimal root that loads the project
// configuration with the parsed flags, the way the CLI root does.
func runCommand(t *testing.T, dir string, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	root := &cobra.Command{
		Use:           "leapsisso",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			_, err := config.LoadConfig(filepath.Join(dir, "leapsisso.yaml"), c.Flags())
			return err
		},
	}
	root.PersistentFlags().StringP("output", "o", "", "Output format")
	root.PersistentFlags().Bool("allow-unfinished", false, "Parse reports without the completion line")
	root.AddCommand(cmd)

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(append([]string{cmd.Name()}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func parseTestReport(t *testing.T, dir string) *sisso.Report {
	t.Helper()
	report, err := sisso.ParseFile(filepath.Join(dir, "SISSO.out"), sisso.ParseOptions{})
	require.NoError(t, err)
	return report
}

func TestCommandMetadata(t *testing.T) {
	commands := []*cobra.Command{
		NewParseCommand(),
		NewModelsCommand(),
		NewDecodeCommand(),
		NewPredictCommand(),
		NewFeaturesCommand(),
		NewIngestCommand(),
		NewHistoryCommand(),
		NewQueryCommand(),
		NewWatchCommand(),
	}

	for _, cmd := range commands {
		t.Run(cmd.Name(), func(t *testing.T) {
			assert.NotEmpty(t, cmd.Short, "Short description should not be empty")
			assert.NotEmpty(t, cmd.Long, "Long description should not be empty")
			assert.NotEmpty(t, cmd.Example, "Example should not be empty")
			assert.NotNil(t, cmd.RunE)
		})
	}
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		flags []string
	}{
		{NewParseCommand(), []string{"show-unset"}},
		{NewModelsCommand(), []string{"dimension"}},
		{NewDecodeCommand(), []string{"interactive", "eval", "numeric"}},
		{NewPredictCommand(), []string{"data", "dimension"}},
		{NewFeaturesCommand(), []string{"data", "dedup"}},
		{NewIngestCommand(), []string{"workers", "fail-fast"}},
		{NewWatchCommand(), []string{"ingest", "debounce", "timeout"}},
	}

	for _, tt := range tests {
		t.Run(tt.cmd.Name(), func(t *testing.T) {
			for _, name := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(name), "flag --%s", name)
			}
		})
	}
}

func TestBuildReportOutput(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	out := buildReportOutput("SISSO.out", parseTestReport(t, dir))

	assert.Equal(t, "3.0.2", out.Version)
	assert.True(t, out.Finished)
	assert.InDelta(t, 0.09, out.TotalCPUTime, 1e-12)
	require.Len(t, out.Iterations, 2)

	it := out.Iterations[1]
	assert.Equal(t, 2, it.Dimension)
	assert.Equal(t, 20, it.SubspaceSize)
	require.Len(t, it.FeatureSpaces, 3)
	assert.Equal(t, 1552, it.FeatureSpaces[2].Features)

	m := it.Model
	assert.Equal(t, []string{"((feature1-feature2)+(feature3-feature4))", "(feature1)^2"}, m.Descriptors)
	assert.Equal(t, []string{"feature1", "feature2", "feature3", "feature4"}, m.Inputs)
	require.Len(t, m.Tasks, 2)
	assert.Equal(t, []float64{0.5, -2}, m.Tasks[0].Coefficients)
	require.NotNil(t, m.Tasks[0].RMSE)
	assert.InDelta(t, 0.05, *m.Tasks[0].RMSE, 1e-12)
	assert.Contains(t, m.Tasks[0].Equation, "- 2*(feature1)^2")

	var unset int
	for _, p := range out.Parameters {
		if !p.Set {
			unset++
		}
	}
	assert.Zero(t, unset, "every parameter appears in the example report")
}

func TestErrorCell(t *testing.T) {
	v := 0.25
	assert.Equal(t, "-", errorCell(nil))
	assert.Equal(t, "0.25", errorCell(&v))
}

func TestRenderReportSummary_Markdown(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	tr := testutil.NewTestRendererMarkdown()

	renderReportSummary(tr.Renderer, buildReportOutput("SISSO.out", parseTestReport(t, dir)), false)

	md := tr.Output()
	assert.Contains(t, md, "# SISSO report: SISSO.out")
	assert.Contains(t, md, "- **Version**: 3.0.2")
	assert.Contains(t, md, "| Total Number Properties | 2 |")
	assert.Contains(t, md, "| Fit Intercept | true |")
	assert.Contains(t, md, "| 2 | 1552 | 20 | 0.05 | 0.05 | 0.09 |")
	testutil.AssertNoANSI(t, md)
	testutil.AssertValidMarkdown(t, md)
}

func TestRenderReportSummary_NoIterations(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()
	renderReportSummary(tr.Renderer, output.ReportOutput{Path: "SISSO.out", Version: "3.0.2"}, true)
	assert.Contains(t, tr.Output(), "no completed dimensions")
}

func TestSelectModels(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	report := parseTestReport(t, dir)

	all, err := selectModels(report, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := selectModels(report, 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, 1, one[0].Dimension)

	_, err = selectModels(report, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no model of dimension 3")
}

func TestRenderModel(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	report := parseTestReport(t, dir)
	tr := testutil.NewTestRendererMarkdown()

	renderModel(tr.Renderer, buildModelOutput(report.Model()))

	md := tr.Output()
	assert.Contains(t, md, "## Dimension 2")
	assert.Contains(t, md, "| 2 | (feature1)^2 |")
	assert.Contains(t, md, "| 1 | 1 | 0.5 | -2 | 0.05 | 0.09 |")
	assert.Contains(t, md, "- **Task 2**: ")
}

func TestParseCommand_JSON(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	stdout, _, err := runCommand(t, dir, NewParseCommand(), filepath.Join(dir, "SISSO.out"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "# SISSO report:")

	stdout, _, err = runCommand(t, dir, NewParseCommand(), filepath.Join(dir, "SISSO.out"), "-o", "json")
	require.NoError(t, err)

	var payload output.ReportOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &payload))
	assert.Equal(t, "3.0.2", payload.Version)
	assert.Len(t, payload.Iterations, 2)
}

func TestParseCommand_Unfinished(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	data, err := os.ReadFile(filepath.Join(dir, "SISSO.out"))
	require.NoError(t, err)

	cut := bytes.Index(data, []byte(sisso.Sentinel))
	require.Positive(t, cut)
	partial := filepath.Join(dir, "partial.out")
	require.NoError(t, os.WriteFile(partial, data[:cut], 0o600))

	_, _, err = runCommand(t, dir, NewParseCommand(), partial)
	require.Error(t, err)
	assert.ErrorIs(t, err, sisso.ErrUnfinished)

	stdout, _, err := runCommand(t, dir, NewParseCommand(), partial, "--allow-unfinished")
	require.NoError(t, err)
	assert.Contains(t, stdout, "- **Finished**: false")
}

func TestModelsCommand(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	stdout, _, err := runCommand(t, dir, NewModelsCommand(), filepath.Join(dir, "SISSO.out"), "-d", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "## Dimension 1")
	assert.NotContains(t, stdout, "## Dimension 2")
}

func TestPredictCommand(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	for _, data := range []string{"train.dat", "train.csv"} {
		t.Run(data, func(t *testing.T) {
			stdout, _, err := runCommand(t, dir, NewPredictCommand(),
				filepath.Join(dir, "SISSO.out"), "--data", filepath.Join(dir, data))
			require.NoError(t, err)
			assert.Contains(t, stdout, "## Predictions of the 2D model")
			assert.Contains(t, stdout, "| 0 | 0 | 3.25 |")
			assert.Contains(t, stdout, "| 1 | -6.5 | 2.5 |")
			assert.Contains(t, stdout, "| 2 | 1 | 1.5625 |")
		})
	}
}

func TestPredictCommand_Dimension(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	_, _, err := runCommand(t, dir, NewPredictCommand(),
		filepath.Join(dir, "SISSO.out"), "--data", filepath.Join(dir, "train.dat"), "--dimension", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no model of dimension 5")

	_, _, err = runCommand(t, dir, NewPredictCommand(), filepath.Join(dir, "SISSO.out"))
	require.Error(t, err, "--data is required")
}

func TestLoadFeatureSpace(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cmdCtx, tr := newTestContext(t, dir, output.ModeMarkdown)

	space, err := loadFeatureSpace(cmdCtx, cmdCtx.Cfg.FeatureSpace)
	require.NoError(t, err)
	assert.Equal(t, 4, space.Len())

	missing, err := loadFeatureSpace(cmdCtx, filepath.Join(dir, "nope.expressions"))
	require.NoError(t, err)
	assert.Zero(t, missing.Len())
	assert.Contains(t, tr.ErrorOutput(), "not found")
}

func TestFeaturesCommand(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	stdout, _, err := runCommand(t, dir, NewFeaturesCommand())
	require.NoError(t, err)
	assert.Contains(t, stdout, "(4 descriptors)")
	assert.Contains(t, stdout, "| 2 | scd((feature3/feature4)) | [feature3 feature4] |")

	stdout, _, err = runCommand(t, dir, NewFeaturesCommand(), "--data", filepath.Join(dir, "train.dat"), "--dedup", "-o", "json")
	require.NoError(t, err)

	var payload output.FeatureSpaceOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &payload))
	assert.Equal(t, 3, payload.Rows)
	require.Len(t, payload.Features, 3)
	assert.Equal(t, []float64{2, 1, 1}, payload.Features[0].Values)
	assert.Equal(t, []float64{1, 4, 0.25}, payload.Features[1].Values)
}

func TestWatchCommand_Finished(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	stdout, _, err := runCommand(t, dir, NewWatchCommand(), filepath.Join(dir, "SISSO.out"), "--ingest", "--timeout", "5s")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# SISSO report:")
	assert.Contains(t, stdout, "Stored report")

	stdout, _, err = runCommand(t, dir, NewWatchCommand(), filepath.Join(dir, "SISSO.out"), "--ingest", "--timeout", "5s")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Report already stored")
}

func TestWatchCommand_Timeout(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	_, _, err := runCommand(t, dir, NewWatchCommand(), filepath.Join(dir, "running.out"), "--timeout", "100ms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "waiting for")
}
