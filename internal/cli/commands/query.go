package commands

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/leapsisso/internal/cli/config"
	"github.com/leapstack-labs/leapsisso/internal/cli/output"
	"github.com/spf13/cobra"

	// sqlite driver for state database queries.
	_ "modernc.org/sqlite"
)

// resolveStatePath returns the state database path from config or the default.
func resolveStatePath(cfg *config.Config) string {
	if cfg.StatePath != "" {
		return cfg.StatePath
	}
	return config.DefaultStateFile
}

// queryFormat picks the query output format: an explicit --format wins,
// otherwise it follows the output mode.
func queryFormat(cmdCtx *CommandContext, explicit string) string {
	if explicit != "" {
		return explicit
	}
	switch cmdCtx.Renderer.EffectiveMode() {
	case output.ModeJSON:
		return output.FormatJSON
	case output.ModeYAML:
		return output.FormatYAML
	case output.ModeMarkdown:
		return output.FormatMarkdown
	}
	return output.FormatTable
}

// openStateDBReadOnly opens the state database in read-only mode.
func openStateDBReadOnly(path string) (*sql.DB, error) {
	return sql.Open("sqlite", path+"?mode=ro")
}

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format string
	Input  string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Query the state database",
		Long: `Query the leapsisso state database directly.

Execute SQL against the ingested reports, iterations, descriptors and fitted
coefficients. Supports multiple output formats for scripting and integration.

When invoked without arguments, enters interactive REPL mode.`,
		Example: `  # Execute SQL directly
  leapsisso query "SELECT * FROM v_reports"

  # List available tables
  leapsisso query tables

  # Show schema for a table
  leapsisso query schema descriptors

  # Find stored descriptors using a feature
  leapsisso query search "feature1"

  # Output as JSON
  leapsisso query "SELECT * FROM v_models" --format json

  # Interactive mode
  leapsisso query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	// Flags
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, yaml, csv, md (default from --output)")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	// Subcommands
	cmd.AddCommand(newQueryTablesCommand(opts))
	cmd.AddCommand(newQueryViewsCommand(opts))
	cmd.AddCommand(newQuerySchemaCommand(opts))
	cmd.AddCommand(newQuerySearchCommand(opts))

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	statePath := resolveStatePath(cmdCtx.Cfg)
	format := queryFormat(cmdCtx, opts.Format)

	if _, err := os.Stat(statePath); os.IsNotExist(err) {
		return fmt.Errorf("state database not found at %s (run 'leapsisso ingest' first)", statePath)
	}

	// Determine SQL source
	var sqlQuery string

	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case !isTerminal(os.Stdin):
		// Read from stdin (piped input)
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	default:
		// No input, TTY detected - enter REPL mode
		return runQueryREPL(cmd, statePath, format)
	}

	// Execute the query
	return executeAndRender(cmd.Context(), cmd, statePath, sqlQuery, format)
}

func executeAndRender(ctx context.Context, cmd *cobra.Command, statePath, sqlQuery, format string) error {
	return withStateDB(statePath, func(db *sql.DB) error {
		rs, err := queryResult(ctx, db, sqlQuery)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
		return rs.Write(cmd.OutOrStdout(), format)
	})
}

// withStateDB opens the state database read-only for the duration of fn.
func withStateDB(statePath string, fn func(db *sql.DB) error) error {
	db, err := openStateDBReadOnly(statePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()
	return fn(db)
}

// newQueryTablesCommand creates the tables subcommand.
func newQueryTablesCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List all tables and views in the state database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			return withStateDB(resolveStatePath(cmdCtx.Cfg), func(db *sql.DB) error {
				return listTablesFromDB(cmd.Context(), cmd.OutOrStdout(), db, queryFormat(cmdCtx, opts.Format), false)
			})
		},
	}
}

// newQueryViewsCommand creates the views subcommand.
func newQueryViewsCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "views",
		Short: "List views only",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			return withStateDB(resolveStatePath(cmdCtx.Cfg), func(db *sql.DB) error {
				return listTablesFromDB(cmd.Context(), cmd.OutOrStdout(), db, queryFormat(cmdCtx, opts.Format), true)
			})
		},
	}
}

// newQuerySchemaCommand creates the schema subcommand.
func newQuerySchemaCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Show schema for a table or view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			return withStateDB(resolveStatePath(cmdCtx.Cfg), func(db *sql.DB) error {
				return showSchemaFromDB(cmd.Context(), cmd.OutOrStdout(), db, args[0], queryFormat(cmdCtx, opts.Format))
			})
		},
	}
}

// newQuerySearchCommand creates the search subcommand.
func newQuerySearchCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Find stored descriptors by notation",
		Long: `Search the descriptors of every ingested model for a substring of their
notation, typically a feature name or an operator such as "exp(".`,
		Example: `  leapsisso query search "feature1"
  leapsisso query search "exp(-" --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			statePath := resolveStatePath(cmdCtx.Cfg)
			return searchDescriptors(cmd, statePath, args[0], queryFormat(cmdCtx, opts.Format))
		},
	}
}

// searchQuery finds stored descriptors whose notation contains a term.
const searchQuery = `
	SELECT
		r.path,
		d.dimension,
		d.position,
		d.notation,
		d.fingerprint
	FROM descriptors d
	JOIN reports r ON r.id = d.report_id
	WHERE instr(d.notation, ?) > 0
	ORDER BY r.ingested_at DESC, d.dimension, d.position
	LIMIT 50`

func searchDescriptors(cmd *cobra.Command, statePath, term, format string) error {
	return withStateDB(statePath, func(db *sql.DB) error {
		rs, err := queryResult(cmd.Context(), db, searchQuery, term)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		return rs.Write(cmd.OutOrStdout(), format)
	})
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
