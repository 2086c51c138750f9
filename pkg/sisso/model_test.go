package sisso

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsisso/pkg/expr"
)

const twoDescriptorBlock = `Dimension:   2
@@@descriptor: 
     1:[(a+b)]
     2:[scd(a)]
  coefficients_001:   0.2E+01  -0.1E+01
     Intercept_001:   0.5E+00
    RMSE,MaxAE_001:   0.1E+00  0.3E+00
`

func TestParseModel(t *testing.T) {
	m, err := ParseModel(twoDescriptorBlock, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, m.Dimension)
	require.Len(t, m.Descriptors, 2)
	assert.Equal(t, "scd(a)", m.Descriptors[1].Notation())
	assert.Equal(t, [][]float64{{2, -1}}, m.Coefficients)
	assert.Equal(t, []float64{0.5}, m.Intercepts)
	assert.Equal(t, []float64{0.1}, m.RMSE)
	assert.Equal(t, []float64{0.3}, m.MaxAE)
}

func TestModelPredict(t *testing.T) {
	m, err := ParseModel(twoDescriptorBlock, nil)
	require.NoError(t, err)

	tbl, err := expr.FrameFromMap(map[string][]float64{"a": {0, 1}, "b": {1, 2}})
	require.NoError(t, err)

	got, err := m.Predict(tbl)
	require.NoError(t, err)
	// row 0: 0.5 + 2*1 - scd(0); row 1: 0.5 + 2*3 - scd(1)
	assert.InDelta(t, 2.5-expr.Scd(0), got[0][0], 1e-12)
	assert.InDelta(t, 6.5-expr.Scd(1), got[1][0], 1e-12)

	missing, err := expr.FrameFromMap(map[string][]float64{"a": {1}})
	require.NoError(t, err)
	_, err = m.Predict(missing)
	var mce *expr.MissingColumnError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, "b", mce.Name)
}

func TestParseModelErrors(t *testing.T) {
	tests := []struct {
		name    string
		block   string
		section string
		message string
	}{
		{
			name:    "no descriptor block",
			block:   "Dimension: 1\n coefficients_001: 1.0\n Intercept_001: 0.0\n",
			section: SectionModel,
			message: ErrNoDescriptorBlock,
		},
		{
			name:    "too few descriptors",
			block:   "Dimension: 2\n@@@descriptor:\n 1:[(a+b)]\n",
			section: SectionModel,
			message: "expected 2 descriptors, found 1",
		},
		{
			name:    "descriptor interrupted by coefficients",
			block:   "Dimension: 2\n@@@descriptor:\n 1:[(a+b)]\n coefficients_001: 1.0 2.0\n",
			section: SectionDescriptor,
		},
		{
			name:    "coefficient width",
			block:   "Dimension: 1\n@@@descriptor:\n 1:[(a)]\n coefficients_001: 1.0 2.0\n Intercept_001: 0.0\n",
			section: SectionModel,
			message: "coefficient row 1 has 2 values, expected 1",
		},
		{
			name:    "missing intercept",
			block:   "Dimension: 1\n@@@descriptor:\n 1:[(a)]\n coefficients_001: 1.0\n",
			section: SectionModel,
			message: "found 1 coefficient rows but 0 intercepts",
		},
		{
			name:    "no tasks",
			block:   "Dimension: 1\n@@@descriptor:\n 1:[(a)]\n",
			section: SectionModel,
			message: ErrNoTasks,
		},
		{
			name:    "bad dimension",
			block:   "Dimension: two\n",
			section: SectionModel,
		},
		{
			name:    "dimension larger than block",
			block:   "Dimension:   99999999999999\n@@@descriptor: \n  1:[(a)]\n coefficients_001: 1.0\n Intercept_001: 0.0\n",
			section: SectionModel,
			message: "dimension 99999999999999 exceeds the 6 lines of the model block",
		},
		{
			name:    "bad coefficient",
			block:   "Dimension: 1\n@@@descriptor:\n 1:[(a)]\n coefficients_001: 1.0x\n",
			section: SectionModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseModel(tt.block, nil)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.section, pe.Section)
			if tt.message != "" {
				assert.Equal(t, tt.message, pe.Message)
			}
		})
	}
}

func TestParseModelDecodeError(t *testing.T) {
	_, err := ParseModel("Dimension: 1\n@@@descriptor:\n 1:[a+b]\n", nil)
	var de *expr.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "a+b", de.Notation)
}

func TestModelEquation(t *testing.T) {
	m, err := ParseModel(twoDescriptorBlock, nil)
	require.NoError(t, err)

	eq, err := m.Equation(0)
	require.NoError(t, err)
	assert.Equal(t, "0.5 + 2*(a+b) - 1*scd(a)", eq)

	_, err = m.Equation(1)
	assert.Error(t, err)
}

func TestParseDescriptorLine(t *testing.T) {
	d, err := ParseDescriptorLine("                      3:[((f1-f2)+(f3-f4))]  ", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, d.ID)
	assert.Equal(t, "((f1-f2)+(f3-f4))", d.String())
	assert.Equal(t, []string{"f1", "f2", "f3", "f4"}, d.Inputs())

	for _, line := range []string{"no colon", "x:[(a)]", "1:(a)", "1:[", "1:[(a)"} {
		_, err := ParseDescriptorLine(line, nil)
		var pe *ParseError
		assert.ErrorAs(t, err, &pe, line)
	}
}

func TestDescriptorFingerprint(t *testing.T) {
	a, err := NewDescriptor(0, "(a+b)", nil)
	require.NoError(t, err)
	b, err := NewDescriptor(1, "((a+b))", nil)
	require.NoError(t, err)
	c, err := NewDescriptor(2, "(b+a)", nil)
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	assert.Len(t, a.FingerprintHex(), 16)
	assert.Equal(t, a.FingerprintHex(), b.FingerprintHex())
	n, err := strconv.ParseUint(a.FingerprintHex(), 16, 64)
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint(), n)
}
