package expr

import (
	"fmt"
	"sort"
)

// Table is a row-indexed collection of named numeric columns. Every column
// has Len() values.
type Table interface {
	Column(name string) ([]float64, bool)
	Len() int
}

// Frame is an in-memory Table.
type Frame struct {
	names   []string
	columns map[string][]float64
	rows    int
}

// NewFrame returns an empty frame with the given row count.
func NewFrame(rows int) *Frame {
	return &Frame{columns: make(map[string][]float64), rows: rows}
}

// FrameFromMap builds a frame from a column map. Columns are ordered by name.
func FrameFromMap(cols map[string][]float64) (*Frame, error) {
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := 0
	if len(names) > 0 {
		rows = len(cols[names[0]])
	}
	f := NewFrame(rows)
	for _, name := range names {
		if err := f.Add(name, cols[name]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Add appends a column. The frame keeps a reference to values.
func (f *Frame) Add(name string, values []float64) error {
	if _, dup := f.columns[name]; dup {
		return fmt.Errorf(ErrDuplicateColumn, name)
	}
	if len(values) != f.rows {
		return fmt.Errorf(ErrColumnLength, name, len(values), f.rows)
	}
	f.columns[name] = values
	f.names = append(f.names, name)
	return nil
}

// Column returns the named column.
func (f *Frame) Column(name string) ([]float64, bool) {
	v, ok := f.columns[name]
	return v, ok
}

// Len returns the row count.
func (f *Frame) Len() int { return f.rows }

// Names returns the column names in insertion order.
func (f *Frame) Names() []string {
	return append([]string(nil), f.names...)
}

// Row returns the values of one row keyed by column name.
func (f *Frame) Row(i int) map[string]float64 {
	row := make(map[string]float64, len(f.names))
	for _, name := range f.names {
		row[name] = f.columns[name][i]
	}
	return row
}
