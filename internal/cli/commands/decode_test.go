package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsisso/internal/cli/output"
	"github.com/leapstack-labs/leapsisso/internal/cli/testutil"
	"github.com/leapstack-labs/leapsisso/pkg/expr"
)

func TestParseAssignments(t *testing.T) {
	values, err := parseAssignments("")
	require.NoError(t, err)
	assert.Nil(t, values)

	values, err = parseAssignments("a=1, b = 2.5,c=-3e-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"a": 1, "b": 2.5, "c": -0.3}, values)

	_, err = parseAssignments("a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected name=value")

	_, err = parseAssignments("a=x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid value for a")
}

func TestDecodeNotation(t *testing.T) {
	values := map[string]float64{"a": 3, "b": 1, "c": 0}
	out, err := decodeNotation(expr.Decoder{}, "((a-b)+exp(-c))", values)
	require.NoError(t, err)

	assert.Equal(t, "((a-b)+exp(-c))", out.Notation)
	assert.Equal(t, []string{"a", "b", "c"}, out.Inputs)
	assert.Equal(t, []output.OccurrenceOutput{
		{Name: "a", Start: 2, End: 3},
		{Name: "b", Start: 4, End: 5},
		{Name: "c", Start: 12, End: 13},
	}, out.Occurrences)
	assert.Len(t, out.Fingerprint, 16)
	require.NotNil(t, out.Value)
	assert.InDelta(t, 3, *out.Value, 1e-12)

	again, err := expr.Decode(out.Canonical)
	require.NoError(t, err, "canonical form %q decodes", out.Canonical)
	assert.Equal(t, out.Inputs, again.Inputs())
}

func TestDecodeNotation_FingerprintIgnoresRedundantGroups(t *testing.T) {
	plain, err := decodeNotation(expr.Decoder{}, "((feature1-feature2)+(feature3-feature4))", nil)
	require.NoError(t, err)
	wrapped, err := decodeNotation(expr.Decoder{}, "(((feature1-feature2)+(feature3-feature4)))", nil)
	require.NoError(t, err)

	assert.Equal(t, plain.Fingerprint, wrapped.Fingerprint)
	assert.Equal(t, plain.Canonical, wrapped.Canonical)
	assert.Nil(t, plain.Value)
}

func TestDecodeNotation_Errors(t *testing.T) {
	_, err := decodeNotation(expr.Decoder{}, "a+b", nil)
	var de *expr.DecodeError
	require.ErrorAs(t, err, &de)

	_, err = decodeNotation(expr.Decoder{}, "((a-b))", map[string]float64{"a": 1})
	var mce *expr.MissingColumnError
	require.ErrorAs(t, err, &mce)
}

func TestRenderTree(t *testing.T) {
	root := &expr.BinaryOp{
		Kind: expr.Add,
		Left: &expr.BinaryOp{Kind: expr.Sub, Left: &expr.ColumnRef{Name: "a"}, Right: &expr.ColumnRef{Name: "b"}},
		Right: &expr.UnaryOp{
			Kind:    expr.Exp,
			Operand: &expr.Power{Operand: &expr.ColumnRef{Name: "c"}, Exponent: 2},
		},
	}

	want := strings.Join([]string{
		"+",
		"├── -",
		"│   ├── a",
		"│   └── b",
		"└── exp",
		"    └── ^2",
		"        └── c",
		"",
	}, "\n")
	assert.Equal(t, want, renderTree(root))
	assert.Equal(t, "1.5\n", renderTree(&expr.Literal{Value: 1.5}))
}

func TestRenderDecode(t *testing.T) {
	out, err := decodeNotation(expr.Decoder{}, "(a/b)", map[string]float64{"a": 1.5, "b": 3})
	require.NoError(t, err)

	t.Run("markdown", func(t *testing.T) {
		tr := testutil.NewTestRendererMarkdown()
		require.NoError(t, renderDecode(tr.Renderer, out))

		md := tr.Output()
		assert.Contains(t, md, "- **Inputs**: a, b")
		assert.Contains(t, md, "- **Value**: 0.5")
		assert.Contains(t, md, "| a | 1 | 2 |")
		assert.Contains(t, md, "```text")
		testutil.AssertValidMarkdown(t, md)
	})

	t.Run("json", func(t *testing.T) {
		tr := testutil.NewTestRenderer(output.ModeJSON, false)
		require.NoError(t, renderDecode(tr.Renderer, out))

		var got output.DecodeOutput
		require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &got))
		assert.Equal(t, out.Fingerprint, got.Fingerprint)
		require.NotNil(t, got.Value)
		assert.InDelta(t, 0.5, *got.Value, 1e-12)
	})
}

func TestDecodeCommand(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	stdout, _, err := runCommand(t, dir, NewDecodeCommand(), "(feature1)^2", "--eval", "feature1=3")
	require.NoError(t, err)
	assert.Contains(t, stdout, "- **Value**: 9")
	assert.Contains(t, stdout, "- **Inputs**: feature1")
}

func TestDecodeCommand_Interactive(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	cmd := NewDecodeCommand()
	cmd.SetIn(bytes.NewBufferString("(a*b)\nnot valid\n.quit\n"))

	stdout, stderr, err := runCommand(t, dir, cmd, "-i", "--eval", "a=2,b=4")
	require.NoError(t, err)
	assert.Contains(t, stdout, "- **Value**: 8")
	assert.Contains(t, stderr, "Error:")
}
