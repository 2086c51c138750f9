package sisso

import (
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsisso/internal/testutil"
	"github.com/leapstack-labs/leapsisso/pkg/expr"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(data)
}

func sampleFrame(t *testing.T) *expr.Frame {
	t.Helper()
	f, err := expr.FrameFromMap(map[string][]float64{
		"feature1": {5, 1},
		"feature2": {2, 1},
		"feature3": {9, 1},
		"feature4": {1, 1},
	})
	require.NoError(t, err)
	return f
}

func TestParseReport(t *testing.T) {
	r, err := Parse(readFixture(t, "SISSO.out"), ParseOptions{})
	require.NoError(t, err)

	assert.True(t, r.Finished)
	assert.Equal(t, "Version SISSO.3.0.2, June, 2019.", r.Version.Header)
	assert.Equal(t, []int{3, 0, 2}, r.Version.Components)
	assert.Equal(t, "3.0.2", r.Version.String())
	assert.InDelta(t, 0.09, r.TotalCPUTime, 1e-12)

	require.Len(t, r.Iterations, 2)
	first, second := r.Iterations[0], r.Iterations[1]
	assert.Equal(t, 1, first.Dimension)
	assert.Equal(t, 2, second.Dimension)
	assert.Same(t, second.Model, r.Model())
	assert.Equal(t, []*Model{first.Model, second.Model}, r.Models())

	assert.Equal(t, []RungCount{
		{Rung: "phi00", Features: 4},
		{Rung: "phi01", Features: 34},
		{Rung: "phi02", Features: 1552},
	}, first.FeatureSpaces)
	assert.Equal(t, 20, first.SubspaceSize)
	assert.InDelta(t, 0.01, first.CPUTime, 1e-12)
	assert.InDelta(t, 0.05, second.CPUTime, 1e-12)

	it, ok := r.Iteration(2)
	require.True(t, ok)
	assert.Same(t, second, it)
	_, ok = r.Iteration(3)
	assert.False(t, ok)
}

func TestParseReportModels(t *testing.T) {
	r, err := Parse(readFixture(t, "SISSO.out"), ParseOptions{})
	require.NoError(t, err)

	m1 := r.Iterations[0].Model
	assert.Equal(t, [][]float64{{0.5}, {2}}, m1.Coefficients)
	assert.Equal(t, []float64{1, -0.5}, m1.Intercepts)
	assert.Equal(t, []float64{0.12, 0.3}, m1.RMSE)
	assert.Equal(t, []float64{0.25, 0.6}, m1.MaxAE)

	m2 := r.Model()
	require.Len(t, m2.Descriptors, 2)
	assert.Equal(t, 1, m2.Descriptors[0].ID)
	assert.Equal(t, "((feature1-feature2)+(feature3-feature4))", m2.Descriptors[0].Notation())
	assert.Equal(t, "(feature1)^2", m2.Descriptors[1].Notation())
	assert.Equal(t, [][]float64{{0.5, -2}, {1.5, 0.25}}, m2.Coefficients)
	assert.Equal(t, []string{"feature1", "feature2", "feature3", "feature4"}, m2.Inputs())
	assert.Equal(t, 2, m2.Tasks())

	pred, err := m2.Predict(sampleFrame(t))
	require.NoError(t, err)
	require.Len(t, pred, 2)
	assert.InDeltaSlice(t, []float64{-43.5, 22.75}, pred[0], 1e-12)
	assert.InDeltaSlice(t, []float64{-1, 0.25}, pred[1], 1e-12)

	pred, err = m1.Predict(sampleFrame(t))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{6.5, 21.5}, pred[0], 1e-12)
}

func TestParseReportPredictionsSurviveRedecoding(t *testing.T) {
	r, err := Parse(readFixture(t, "SISSO.out"), ParseOptions{})
	require.NoError(t, err)
	tbl := sampleFrame(t)

	for _, m := range r.Models() {
		want, err := m.Predict(tbl)
		require.NoError(t, err)

		rebuilt := *m
		rebuilt.Descriptors = nil
		for _, d := range m.Descriptors {
			again, err := NewDescriptor(d.ID, expr.Format(d.Expression().Root()), nil)
			require.NoError(t, err)
			rebuilt.Descriptors = append(rebuilt.Descriptors, again)
		}

		got, err := rebuilt.Predict(tbl)
		require.NoError(t, err)
		for i := range want {
			assert.InDeltaSlice(t, want[i], got[i], 1e-12)
		}
	}
}

func TestParseReportUnfinished(t *testing.T) {
	text := strings.Replace(readFixture(t, "SISSO.out"), Sentinel, "", 1)

	_, err := Parse(text, ParseOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnfinished))

	var pe *ParseError
	assert.False(t, errors.As(err, &pe), "unfinished reports are not structural errors")

	r, err := Parse(text, ParseOptions{AllowUnfinished: true})
	require.NoError(t, err)
	assert.False(t, r.Finished)
	assert.Len(t, r.Iterations, 2)
}

func TestParseReportPreReleaseVersion(t *testing.T) {
	text := strings.Replace(readFixture(t, "SISSO.out"), "SISSO.3.0.2, June, 2019.", "SISSO.3.1-beta, May, 2024.", 1)

	r, err := Parse(text, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Version SISSO.3.1-beta, May, 2024.", r.Version.Header)
	assert.Equal(t, []int{3}, r.Version.Components)
	assert.Len(t, r.Iterations, 2)
}

func TestParseReportStructuralErrors(t *testing.T) {
	fixture := readFixture(t, "SISSO.out")

	tests := []struct {
		name    string
		text    string
		section string
	}{
		{
			name:    "missing total time",
			text:    strings.Replace(fixture, "Total time (second):", "Total wall time:", 1),
			section: SectionTotalTime,
		},
		{
			name:    "missing descriptor line",
			text:    strings.Replace(fixture, "                      2:[(feature1)^2]\n", "", 1),
			section: SectionDescriptor,
		},
		{
			name:    "missing subspace size",
			text:    strings.Replace(fixture, "Size of the SIS-selected subspace from phi02:         20\nTime (second) used for this FC:            0.02", "Time (second) used for this FC:            0.02", 1),
			section: SectionIteration,
		},
		{
			name:    "short header",
			text:    "Have a nice day !\nTotal time (second): 1",
			section: SectionVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text, ParseOptions{})
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, tt.section, pe.Section)
		})
	}
}

func TestParseReportDimensionOrder(t *testing.T) {
	fixture := readFixture(t, "SISSO.out")
	blocks := iterationBlockRe.FindAllString(fixture, -1)
	require.Len(t, blocks, 2)

	swapped := strings.Replace(fixture, blocks[0], "\x00", 1)
	swapped = strings.Replace(swapped, blocks[1], blocks[0], 1)
	swapped = strings.Replace(swapped, "\x00", blocks[1], 1)

	_, err := Parse(swapped, ParseOptions{})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "dimension 1 follows dimension 2", pe.Message)
}

func TestParseFile(t *testing.T) {
	r, err := ParseFile("testdata/SISSO.out", ParseOptions{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	assert.Len(t, r.Iterations, 2)

	opened := ""
	r, err = ParseFile("any", ParseOptions{Open: func(path string) (io.ReadCloser, error) {
		opened = path
		return io.NopCloser(strings.NewReader(readFixture(t, "SISSO.out"))), nil
	}})
	require.NoError(t, err)
	assert.Equal(t, "any", opened)
	assert.Len(t, r.Models(), 2)

	_, err = ParseFile("testdata/missing.out", ParseOptions{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseSharedCache(t *testing.T) {
	cache, err := expr.NewCache(16, expr.Decoder{})
	require.NoError(t, err)

	r, err := Parse(readFixture(t, "SISSO.out"), ParseOptions{Cache: cache})
	require.NoError(t, err)

	// The first descriptor appears in both models and is decoded once.
	assert.Equal(t, 2, cache.Len())
	assert.Same(t, r.Iterations[0].Model.Descriptors[0].Expression(), r.Model().Descriptors[0].Expression())
}

func TestReportWithoutIterations(t *testing.T) {
	r := &Report{}
	assert.Nil(t, r.Model())
	assert.Empty(t, r.Models())
}
