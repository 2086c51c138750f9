package sisso

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapsisso/pkg/expr"
)

// Report line markers of a model block.
const (
	descriptorMarker  = "@@@descriptor"
	coefficientMarker = "coefficients_"
	interceptMarker   = "Intercept_"
	errorMarker       = "RMSE,MaxAE_"
)

// Model is a linear combination of descriptors, fit once per task.
type Model struct {
	Dimension    int
	Descriptors  []*Descriptor
	Coefficients [][]float64 // [task][descriptor]
	Intercepts   []float64   // one per task
	RMSE         []float64   // one per task, empty when not reported
	MaxAE        []float64   // one per task, empty when not reported
}

// ParseModel builds a model from the text of one dimension block. The first
// line must end with the dimension.
func ParseModel(block string, cache *expr.Cache) (*Model, error) {
	lines := strings.Split(block, "\n")
	head := strings.Fields(lines[0])
	if len(head) == 0 {
		return nil, parseErrorf(SectionModel, "empty model block")
	}
	dim, err := strconv.Atoi(head[len(head)-1])
	if err != nil || dim < 1 {
		return nil, parseErrorf(SectionModel, "invalid dimension header %q", strings.TrimSpace(lines[0]))
	}
	// Every descriptor takes a line of its own.
	if dim > len(lines) {
		return nil, parseErrorf(SectionModel, "dimension %d exceeds the %d lines of the model block", dim, len(lines))
	}

	m := &Model{Dimension: dim}
	collecting := false
	for _, line := range lines[1:] {
		if strings.Contains(line, descriptorMarker) {
			collecting = true
			m.Descriptors = m.Descriptors[:0]
			continue
		}
		if collecting && len(m.Descriptors) < dim {
			if strings.TrimSpace(line) == "" {
				continue
			}
			d, err := ParseDescriptorLine(line, cache)
			if err != nil {
				return nil, err
			}
			m.Descriptors = append(m.Descriptors, d)
			continue
		}

		switch {
		case strings.Contains(line, coefficientMarker):
			_, values, _ := strings.Cut(line, ":")
			row, err := parseFloats(strings.Fields(values), line)
			if err != nil {
				return nil, err
			}
			m.Coefficients = append(m.Coefficients, row)
		case strings.Contains(line, interceptMarker):
			_, value, _ := strings.Cut(line, ":")
			v, err := parseFloat(strings.TrimSpace(value), line)
			if err != nil {
				return nil, err
			}
			m.Intercepts = append(m.Intercepts, v)
		case strings.Contains(line, errorMarker):
			fields := strings.Fields(line)
			if len(fields) < 3 {
				return nil, parseErrorf(SectionModel, "malformed error line %q", strings.TrimSpace(line))
			}
			pair, err := parseFloats(fields[1:3], line)
			if err != nil {
				return nil, err
			}
			m.RMSE = append(m.RMSE, pair[0])
			m.MaxAE = append(m.MaxAE, pair[1])
		}
	}

	if !collecting {
		return nil, parseErrorf(SectionModel, ErrNoDescriptorBlock)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) validate() error {
	if len(m.Descriptors) != m.Dimension {
		return parseErrorf(SectionModel, ErrDescriptorCount, m.Dimension, len(m.Descriptors))
	}
	if len(m.Coefficients) == 0 {
		return parseErrorf(SectionModel, ErrNoTasks)
	}
	if len(m.Coefficients) != len(m.Intercepts) {
		return parseErrorf(SectionModel, ErrCoefficientRows, len(m.Coefficients), len(m.Intercepts))
	}
	for i, row := range m.Coefficients {
		if len(row) != m.Dimension {
			return parseErrorf(SectionModel, ErrCoefficientWidth, i+1, len(row), m.Dimension)
		}
	}
	if len(m.RMSE) != 0 && len(m.RMSE) != len(m.Intercepts) {
		return parseErrorf(SectionModel, ErrErrorRows, len(m.RMSE), len(m.Intercepts))
	}
	return nil
}

// Tasks returns the number of fitted tasks.
func (m *Model) Tasks() int { return len(m.Intercepts) }

// Predict evaluates the model for every row of t. The result is indexed
// [row][task].
func (m *Model) Predict(t expr.Table) ([][]float64, error) {
	rows := t.Len()
	out := make([][]float64, rows)
	for r := range out {
		out[r] = append([]float64(nil), m.Intercepts...)
	}
	for i, d := range m.Descriptors {
		values, err := d.Evaluate(t)
		if err != nil {
			return nil, fmt.Errorf("descriptor %d: %w", d.ID, err)
		}
		for task, coeffs := range m.Coefficients {
			c := coeffs[i]
			for r, v := range values {
				out[r][task] += c * v
			}
		}
	}
	return out, nil
}

// Inputs returns the distinct input features of all descriptors in
// first-seen order.
func (m *Model) Inputs() []string {
	var names []string
	seen := make(map[string]struct{})
	for _, d := range m.Descriptors {
		for _, name := range d.Inputs() {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

// Equation renders the fitted equation of one 0-based task, e.g.
// "1 + 0.5*((a-b)) - 2*(a)^2".
func (m *Model) Equation(task int) (string, error) {
	if task < 0 || task >= m.Tasks() {
		return "", fmt.Errorf("task %d out of range [0, %d)", task, m.Tasks())
	}
	var b strings.Builder
	b.WriteString(formatNumber(m.Intercepts[task]))
	for i, d := range m.Descriptors {
		c := m.Coefficients[task][i]
		sign := " + "
		if c < 0 {
			sign, c = " - ", -c
		}
		b.WriteString(sign)
		b.WriteString(formatNumber(c))
		b.WriteByte('*')
		b.WriteString(d.Notation())
	}
	return b.String(), nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

func parseFloat(s, line string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, parseErrorf(SectionModel, ErrInvalidNumber, s, strings.TrimSpace(line))
	}
	return v, nil
}

func parseFloats(fields []string, line string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := parseFloat(f, line)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
