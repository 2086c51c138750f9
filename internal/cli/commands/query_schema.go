package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/leapstack-labs/leapsisso/internal/cli/output"
)

// Tables and views a user can query; goose bookkeeping is hidden.
const stateObjectsQuery = `
	SELECT name, type
	FROM sqlite_master
	WHERE type IN ('table', 'view')
	AND name NOT LIKE 'sqlite_%'
	AND name NOT LIKE 'goose_%'`

// stateObject describes one table or view of the state database.
type stateObject struct {
	Name    string        `json:"name" yaml:"name"`
	Type    string        `json:"type" yaml:"type"`
	Columns []stateColumn `json:"columns" yaml:"columns"`
	Indexes []string      `json:"indexes,omitempty" yaml:"indexes,omitempty"`
}

type stateColumn struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	NotNull bool   `json:"not_null" yaml:"not_null"`
	Default string `json:"default,omitempty" yaml:"default,omitempty"`
	// Key is the 1-based position in the primary key, 0 when not part of it.
	Key int `json:"key,omitempty" yaml:"key,omitempty"`
}

// queryResult runs query and reads the whole result.
func queryResult(ctx context.Context, db *sql.DB, query string, args ...any) (*output.ResultSet, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return output.ScanRows(rows)
}

func listTablesFromDB(ctx context.Context, w io.Writer, db *sql.DB, format string, viewsOnly bool) error {
	query := stateObjectsQuery
	if viewsOnly {
		query += ` AND type = 'view'`
	}
	rs, err := queryResult(ctx, db, query+` ORDER BY type DESC, name`)
	if err != nil {
		return err
	}
	return rs.Write(w, format)
}

// lookupObject reads the columns and indexes of a table or view. Only names
// listed in sqlite_master are described.
func lookupObject(ctx context.Context, db *sql.DB, name string) (*stateObject, error) {
	obj := &stateObject{Name: name}
	err := db.QueryRowContext(ctx, stateObjectsQuery+` AND name = ?`, name).Scan(&obj.Name, &obj.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("table or view '%s' not found", name)
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`, obj.Name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var col stateColumn
		var notNull int
		var dflt sql.NullString
		if err := rows.Scan(&col.Name, &col.Type, &notNull, &dflt, &col.Key); err != nil {
			return nil, err
		}
		col.NotNull = notNull == 1
		col.Default = dflt.String
		obj.Columns = append(obj.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if obj.Type == "table" {
		idx, err := queryResult(ctx, db,
			`SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND name NOT LIKE 'sqlite_%' ORDER BY name`,
			obj.Name)
		if err != nil {
			return nil, err
		}
		for _, row := range idx.Rows {
			obj.Indexes = append(obj.Indexes, output.FormatCell(row[0]))
		}
	}
	return obj, nil
}

func showSchemaFromDB(ctx context.Context, w io.Writer, db *sql.DB, name, format string) error {
	obj, err := lookupObject(ctx, db, name)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.WriteJSON(w, obj)
	case output.FormatYAML:
		return output.WriteYAML(w, obj)
	}

	title := "Table"
	if obj.Type == "view" {
		title = "View"
	}
	heading := fmt.Sprintf("%s: %s", title, obj.Name)
	if format == output.FormatMarkdown {
		heading = output.FormatHeader(2, heading)
	}
	_, _ = fmt.Fprintln(w, heading)

	rs := &output.ResultSet{Columns: []string{"column", "type", "not null", "default", "key"}}
	for _, col := range obj.Columns {
		key := ""
		if col.Key > 0 {
			key = "pk " + strconv.Itoa(col.Key)
		}
		rs.Rows = append(rs.Rows, []any{col.Name, col.Type, col.NotNull, col.Default, key})
	}
	if err := rs.Write(w, format); err != nil {
		return err
	}

	if len(obj.Indexes) > 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "Indexes:")
		for _, idx := range obj.Indexes {
			_, _ = fmt.Fprintf(w, "  %s\n", idx)
		}
	}
	return nil
}
