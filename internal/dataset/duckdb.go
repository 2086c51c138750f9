package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/leapstack-labs/leapsisso/pkg/expr"
)

// numericTypes are the DuckDB column types loaded as float64.
var numericTypes = map[string]bool{
	"DOUBLE":    true,
	"FLOAT":     true,
	"REAL":      true,
	"DECIMAL":   true,
	"TINYINT":   true,
	"SMALLINT":  true,
	"INTEGER":   true,
	"BIGINT":    true,
	"HUGEINT":   true,
	"UTINYINT":  true,
	"USMALLINT": true,
	"UINTEGER":  true,
	"UBIGINT":   true,
}

// LoadCSV reads a CSV file with a header row using DuckDB's schema inference.
func LoadCSV(ctx context.Context, path string) (*expr.Frame, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	defer func() { _ = db.Close() }()

	query := fmt.Sprintf(
		"SELECT * FROM read_csv_auto('%s', header=true)",
		strings.ReplaceAll(absPath, "'", "''"),
	)
	rows, err := db.QueryContext(ctx, query) //nolint:gosec // path is quoted above
	if err != nil {
		return nil, fmt.Errorf("failed to load CSV: %w", err)
	}
	defer func() { _ = rows.Close() }()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV columns: %w", err)
	}
	cols := make([]*column, len(types))
	for i, ct := range types {
		base, _, _ := strings.Cut(ct.DatabaseTypeName(), "(")
		cols[i] = &column{name: ct.Name(), numeric: numericTypes[base]}
	}

	n := 0
	dest := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan CSV row %d: %w", n+1, err)
		}
		for i, c := range cols {
			if !c.numeric {
				continue
			}
			v, ok := toFloat(dest[i])
			if !ok {
				c.numeric = false
				continue
			}
			c.values = append(c.values, v)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating CSV rows: %w", err)
	}
	return buildFrame(cols, n)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return math.NaN(), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case interface{ Float64() float64 }:
		return x.Float64(), true
	}
	return 0, false
}
