// Package dataset loads named numeric columns from SISSO training files and
// CSV tables.
package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapsisso/pkg/expr"
)

// Options configures loading.
type Options struct {
	// Logger receives debug output. Nil discards.
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// Load reads a table, choosing the reader by extension: ".csv" goes through
// DuckDB, anything else is read as whitespace-delimited SISSO data.
// Columns that are not entirely numeric are skipped.
func Load(ctx context.Context, path string, opts Options) (*expr.Frame, error) {
	var (
		f   *expr.Frame
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err = LoadCSV(ctx, path)
	default:
		f, err = LoadDat(path)
	}
	if err != nil {
		return nil, err
	}
	opts.logger().Debug("loaded dataset", "path", path, "rows", f.Len(), "columns", len(f.Names()))
	return f, nil
}

// column accumulates values for one source column.
type column struct {
	name    string
	values  []float64
	numeric bool
}

func buildFrame(cols []*column, rows int) (*expr.Frame, error) {
	f := expr.NewFrame(rows)
	for _, c := range cols {
		if !c.numeric {
			continue
		}
		if err := f.Add(c.name, c.values); err != nil {
			return nil, fmt.Errorf("build table: %w", err)
		}
	}
	return f, nil
}
