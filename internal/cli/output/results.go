package output

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Query result formats.
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatCSV      = "csv"
	FormatMarkdown = "md"
)

// ResultSet is a fully read SQL result.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// ScanRows reads every row of rows. Text stored as bytes is returned as a
// string.
func ScanRows(rows *sql.Rows) (*ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

// Records returns one column-keyed map per row.
func (rs *ResultSet) Records() []map[string]any {
	out := make([]map[string]any, len(rs.Rows))
	for i, row := range rs.Rows {
		rec := make(map[string]any, len(rs.Columns))
		for j, col := range rs.Columns {
			rec[col] = row[j]
		}
		out[i] = rec
	}
	return out
}

// FormatCell renders one SQL value for text output. Floats keep full
// precision so copied values round-trip.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

func (rs *ResultSet) cells() [][]string {
	out := make([][]string, len(rs.Rows))
	for i, row := range rs.Rows {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = FormatCell(v)
		}
	}
	return out
}

// Write renders the result in format. Unknown formats fall back to a table.
func (rs *ResultSet) Write(w io.Writer, format string) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, rs.Records())
	case FormatYAML:
		return WriteYAML(w, rs.Records())
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(rs.Columns); err != nil {
			return err
		}
		if err := cw.WriteAll(rs.cells()); err != nil {
			return err
		}
		return cw.Error()
	case FormatMarkdown, "markdown":
		rs.tableWriter(w).RenderMarkdown()
		return nil
	}

	if len(rs.Rows) == 0 {
		_, err := fmt.Fprintln(w, "(0 rows)")
		return err
	}
	rs.tableWriter(w).Render()
	_, err := fmt.Fprintf(w, "(%d rows)\n", len(rs.Rows))
	return err
}

func (rs *ResultSet) tableWriter(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(toRow(rs.Columns))
	for _, row := range rs.cells() {
		t.AppendRow(toRow(row))
	}
	return t
}

func toRow(values []string) table.Row {
	row := make(table.Row, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}
