package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapsisso/internal/watch"
	"github.com/leapstack-labs/leapsisso/pkg/sisso"
	"github.com/spf13/cobra"
)

// WatchOptions holds options for the watch command.
type WatchOptions struct {
	Ingest bool
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}
	cmd := &cobra.Command{
		Use:   "watch <report>",
		Short: "Wait for a running SISSO job to finish",
		Long: `Watch a SISSO.out file that is still being written and print its summary
as soon as the solver writes its completion line.

The file does not need to exist yet. With --ingest the finished report is
also stored in the state database.`,
		Example: `  leapsisso watch SISSO.out
  leapsisso watch SISSO.out --ingest --timeout 2h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Ingest, "ingest", false, "Store the finished report in the state database")
	cmd.Flags().Duration("debounce", 0, "Quiet period before the report is re-read")
	cmd.Flags().Duration("timeout", 0, "Give up after this long (0 waits forever)")

	return cmd
}

func runWatch(cmd *cobra.Command, path string, opts *WatchOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout := cmdCtx.Cfg.Watch.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	spinner := r.NewSpinner(fmt.Sprintf("Waiting for %s to finish...", path))
	spinner.Start()
	raw, err := watch.WaitFinished(ctx, path, watch.Options{
		Debounce: cmdCtx.Cfg.Watch.Debounce,
		Logger:   cmdCtx.Logger,
		OnChange: func(size int) {
			spinner.Update(fmt.Sprintf("Waiting for %s to finish... (%d bytes)", path, size))
		},
	})
	spinner.Stop()
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", path, err)
	}
	cmdCtx.Logger.Info("report finished", "path", path, "elapsed", time.Since(start))

	report, err := sisso.Parse(string(raw), cmdCtx.ParseOptions())
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	payload := buildReportOutput(path, report)
	if ok, err := r.Structured(payload); ok {
		if err != nil {
			return err
		}
	} else {
		renderReportSummary(r, payload, false)
	}

	if !opts.Ingest {
		return nil
	}

	store, cleanup, err := cmdCtx.OpenStore()
	if err != nil {
		return err
	}
	defer cleanup()

	id, created, err := store.SaveReport(ctx, path, raw, report)
	if err != nil {
		return err
	}
	if created {
		r.Success("Stored report " + id)
	} else {
		r.Muted("Report already stored as " + id)
	}
	return nil
}
