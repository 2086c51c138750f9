package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsisso/internal/cli/output"
	"github.com/leapstack-labs/leapsisso/pkg/sisso"
)

const (
	replPrompt         = "leapsisso> "
	replContinuePrompt = "       ...> "
)

// replShortcut is a dot-command backed by a canned query over the state schema.
type replShortcut struct {
	name  string
	usage string // argument placeholder; empty when the command takes none
	help  string
	query string
	// arg converts the argument into the query parameter.
	arg func(string) (any, error)
}

var replShortcuts = []replShortcut{
	{
		name:  ".reports",
		help:  "List ingested reports, newest first",
		query: `SELECT id, path, version, dimensions, finished, total_cpu_time, ingested_at
			FROM v_reports ORDER BY ingested_at DESC, path`,
	},
	{
		name:  ".best",
		help:  "Show the highest-dimension model of every report",
		query: `SELECT r.path, m.dimension, m.task, m.position, m.notation, m.coefficient, m.intercept, m.rmse, m.maxae
			FROM v_models m
			JOIN reports r ON r.id = m.report_id
			WHERE m.dimension = r.dimensions
			ORDER BY r.ingested_at DESC, r.path, m.task, m.position`,
	},
	{
		name:  ".models",
		usage: "<report-id>",
		help:  "Show every model of a report (an id prefix is enough)",
		query: `SELECT dimension, task, position, notation, coefficient, intercept, rmse, maxae
			FROM v_models WHERE report_id LIKE ? || '%'
			ORDER BY dimension, task, position`,
	},
	{
		name:  ".descriptor",
		usage: "<fingerprint|notation>",
		help:  "Find the reports that selected a descriptor",
		query: `SELECT r.id AS report_id, r.path, d.dimension, d.position, d.notation
			FROM descriptors d
			JOIN reports r ON r.id = d.report_id
			WHERE d.fingerprint = ?
			ORDER BY r.ingested_at DESC, d.dimension, d.position`,
		arg: descriptorFingerprint,
	},
	{
		name:  ".search",
		usage: "<term>",
		help:  "Find descriptors whose notation contains term",
		query: searchQuery,
	},
}

// descriptorFingerprint accepts a stored fingerprint as is and fingerprints
// anything else as a descriptor notation, so "((a+b))" finds "(a+b)".
func descriptorFingerprint(arg string) (any, error) {
	if len(arg) == 16 {
		if _, err := strconv.ParseUint(arg, 16, 64); err == nil {
			return strings.ToLower(arg), nil
		}
	}
	d, err := sisso.NewDescriptor(0, arg, nil)
	if err != nil {
		return nil, err
	}
	return d.FingerprintHex(), nil
}

// replSession is one interactive query session over the state database.
type replSession struct {
	ctx     context.Context
	db      *sql.DB
	format  string
	out     io.Writer
	errOut  io.Writer
	pending strings.Builder
}

// continuing reports whether a statement is waiting for its semicolon.
func (s *replSession) continuing() bool { return s.pending.Len() > 0 }

// handle processes one input line and reports whether the session goes on.
func (s *replSession) handle(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	if !s.continuing() && strings.HasPrefix(line, ".") {
		return s.dotCommand(line)
	}

	s.pending.WriteString(line)
	if !strings.HasSuffix(line, ";") {
		s.pending.WriteString(" ")
		return true
	}
	query := strings.TrimSuffix(s.pending.String(), ";")
	s.pending.Reset()
	s.report(s.run(query))
	return true
}

func (s *replSession) run(query string, args ...any) error {
	rs, err := queryResult(s.ctx, s.db, query, args...)
	if err != nil {
		return err
	}
	return rs.Write(s.out, s.format)
}

func (s *replSession) report(err error) {
	if err != nil {
		_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
	}
}

func (s *replSession) dotCommand(line string) bool {
	name, rest, _ := strings.Cut(line, " ")
	name = strings.ToLower(name)
	rest = strings.TrimSpace(rest)

	switch name {
	case ".quit", ".exit":
		return false
	case ".help":
		printREPLHelp(s.out)
	case ".tables", ".views":
		s.report(listTablesFromDB(s.ctx, s.out, s.db, s.format, name == ".views"))
	case ".schema":
		if rest == "" {
			_, _ = fmt.Fprintln(s.errOut, "Usage: .schema <table>")
			break
		}
		s.report(showSchemaFromDB(s.ctx, s.out, s.db, rest, s.format))
	case ".format":
		if !slices.Contains(queryFormats, rest) {
			_, _ = fmt.Fprintf(s.errOut, "Usage: .format %s\n", strings.Join(queryFormats, "|"))
			break
		}
		s.format = rest
	default:
		i := slices.IndexFunc(replShortcuts, func(sc replShortcut) bool { return sc.name == name })
		if i < 0 {
			_, _ = fmt.Fprintf(s.errOut, "Unknown command: %s (type .help for commands)\n", name)
			break
		}
		s.shortcut(replShortcuts[i], rest)
	}
	return true
}

func (s *replSession) shortcut(sc replShortcut, arg string) {
	if sc.usage == "" {
		s.report(s.run(sc.query))
		return
	}
	if arg == "" {
		_, _ = fmt.Fprintf(s.errOut, "Usage: %s %s\n", sc.name, sc.usage)
		return
	}
	var param any = arg
	if sc.arg != nil {
		var err error
		if param, err = sc.arg(arg); err != nil {
			s.report(err)
			return
		}
	}
	s.report(s.run(sc.query, param))
}

var queryFormats = []string{
	output.FormatTable, output.FormatJSON, output.FormatYAML, output.FormatCSV, output.FormatMarkdown,
}

var replBuiltins = [][2]string{
	{".tables", "List all tables and views"},
	{".views", "List views only"},
	{".schema <name>", "Show schema for a table or view"},
	{".format <format>", "Switch output format (" + strings.Join(queryFormats, ", ") + ")"},
	{".help", "Show this help message"},
	{".quit / .exit", "Exit the REPL"},
}

func printREPLHelp(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Commands:")
	for _, sc := range replShortcuts {
		_, _ = fmt.Fprintf(w, "  %-30s %s\n", strings.TrimSpace(sc.name+" "+sc.usage), sc.help)
	}
	for _, b := range replBuiltins {
		_, _ = fmt.Fprintf(w, "  %-30s %s\n", b[0], b[1])
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "SQL statements end with a semicolon and may span lines.")
}

func runQueryREPL(cmd *cobra.Command, statePath, format string) error {
	return withStateDB(statePath, func(db *sql.DB) error {
		s := &replSession{
			ctx:    cmd.Context(),
			db:     db,
			format: format,
			out:    cmd.OutOrStdout(),
			errOut: cmd.ErrOrStderr(),
		}

		rl, err := readline.NewEx(&readline.Config{
			Prompt:          replPrompt,
			HistoryFile:     filepath.Join(filepath.Dir(statePath), "query_history"),
			AutoComplete:    newStateCompleter(s.ctx, db),
			InterruptPrompt: "^C",
			EOFPrompt:       ".quit",
			Stdin:           io.NopCloser(cmd.InOrStdin()),
			Stdout:          cmd.OutOrStdout(),
			Stderr:          cmd.ErrOrStderr(),
		})
		if err != nil {
			return fmt.Errorf("failed to initialize REPL: %w", err)
		}
		defer func() { _ = rl.Close() }()

		_, _ = fmt.Fprintf(s.out, "leapsisso query REPL (state: %s)\n", statePath)
		_, _ = fmt.Fprintln(s.out, "Type .help for commands, .quit to exit")

		for {
			line, err := rl.Readline()
			if errors.Is(err, readline.ErrInterrupt) {
				s.pending.Reset()
			} else if err != nil {
				return nil
			} else if !s.handle(line) {
				return nil
			}

			if s.continuing() {
				rl.SetPrompt(replContinuePrompt)
			} else {
				rl.SetPrompt(replPrompt)
			}
		}
	})
}

// newStateCompleter completes dot-commands and the names of tables and views.
func newStateCompleter(ctx context.Context, db *sql.DB) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	if rs, err := queryResult(ctx, db, stateObjectsQuery+` ORDER BY name`); err == nil {
		for _, row := range rs.Rows {
			items = append(items, readline.PcItem(output.FormatCell(row[0])))
		}
	}
	for _, sc := range replShortcuts {
		items = append(items, readline.PcItem(sc.name))
	}
	for _, name := range []string{".tables", ".views", ".schema", ".format", ".help", ".quit", ".exit"} {
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}
