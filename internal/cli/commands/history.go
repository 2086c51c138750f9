package commands

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapsisso/internal/cli/output"
	"github.com/leapstack-labs/leapsisso/internal/state"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List ingested reports",
		Long:  `List the reports stored in the state database, newest first.`,
		Example: `  leapsisso history
  leapsisso history show 6f1c...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd)
		},
	}

	cmd.AddCommand(newHistoryShowCommand())

	return cmd
}

func historyEntry(rec *state.ReportRecord) output.HistoryEntry {
	return output.HistoryEntry{
		ID:           rec.ID,
		Path:         rec.Path,
		Version:      rec.Version,
		Dimensions:   rec.Dimensions,
		TotalCPUTime: rec.TotalCPUTime,
		Finished:     rec.Finished,
		Fingerprint:  rec.Fingerprint,
		IngestedAt:   rec.IngestedAt,
	}
}

func runHistory(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	store, cleanup, err := cmdCtx.OpenStore()
	if err != nil {
		return err
	}
	defer cleanup()

	records, err := store.ListReports(cmd.Context())
	if err != nil {
		return err
	}

	entries := make([]output.HistoryEntry, len(records))
	for i, rec := range records {
		entries[i] = historyEntry(rec)
	}

	r := cmdCtx.Renderer
	if ok, err := r.Structured(entries); ok {
		return err
	}
	if len(entries) == 0 {
		r.Muted("No reports ingested yet (run 'leapsisso ingest <report>')")
		return nil
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			e.ID,
			e.Path,
			e.Version,
			strconv.Itoa(e.Dimensions),
			output.FormatFloat(e.TotalCPUTime),
			strconv.FormatBool(e.Finished),
			e.IngestedAt.Format("2006-01-02 15:04:05"),
		}
	}
	r.Header(1, fmt.Sprintf("Reports (%d total)", len(entries)))
	r.Table([]string{"ID", "Path", "Version", "Dims", "CPU (s)", "Finished", "Ingested"}, rows)
	return nil
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			store, cleanup, err := cmdCtx.OpenStore()
			if err != nil {
				return err
			}
			defer cleanup()

			rec, err := store.GetReport(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			report, err := store.LoadReport(cmd.Context(), rec.ID, cmdCtx.ParseOptions())
			if err != nil {
				return fmt.Errorf("failed to re-parse stored report: %w", err)
			}

			r := cmdCtx.Renderer
			payload := buildReportOutput(rec.Path, report)
			if ok, err := r.Structured(payload); ok {
				return err
			}
			renderReportSummary(r, payload, false)
			r.Println("")
			for _, m := range payload.Iterations {
				renderModel(r, m.Model)
			}
			return nil
		},
	}
}
