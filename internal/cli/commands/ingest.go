package commands

import (
	"context"
	"fmt"
	"sync"

	"github.com/leapstack-labs/leapsisso/internal/cli/output"
	"github.com/leapstack-labs/leapsisso/internal/reportio"
	"github.com/leapstack-labs/leapsisso/internal/state"
	"github.com/leapstack-labs/leapsisso/pkg/sisso"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// IngestOptions holds options for the ingest command.
type IngestOptions struct {
	FailFast bool
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand() *cobra.Command {
	opts := &IngestOptions{}
	cmd := &cobra.Command{
		Use:   "ingest <report>...",
		Short: "Store reports in the state database",
		Long: `Parse SISSO reports and store them, with their models, in the state
database so they can be listed with 'history' and queried with 'query'.

Reports are parsed concurrently (--workers, default from ingest_workers).
A report whose bytes were already ingested is not stored twice.`,
		Example: `  leapsisso ingest SISSO.out
  leapsisso ingest runs/*/SISSO.out --workers 8`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, args, opts)
		},
	}

	cmd.Flags().Int("workers", 0, "Number of reports parsed concurrently")
	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "Stop at the first report that fails")

	return cmd
}

func runIngest(cmd *cobra.Command, paths []string, opts *IngestOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	store, cleanup, err := cmdCtx.OpenStore()
	if err != nil {
		return err
	}
	defer cleanup()

	results, err := ingestReports(cmd.Context(), cmdCtx, store, paths, opts.FailFast)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if ok, err := r.Structured(results); ok {
		if err != nil {
			return err
		}
		return ingestFailure(results)
	}

	for _, res := range results {
		switch {
		case res.Error != "":
			r.StatusLine(res.Path, "failed", res.Error)
		case res.Created:
			r.StatusLine(res.Path, "success", res.ID)
		default:
			r.StatusLine(res.Path, "skipped", "already ingested as "+res.ID)
		}
	}
	return ingestFailure(results)
}

// ingestReports parses paths concurrently and stores them one at a time.
// Results are in the order of paths.
func ingestReports(ctx context.Context, cmdCtx *CommandContext, store state.Store, paths []string, failFast bool) ([]output.IngestResult, error) {
	results := make([]output.IngestResult, len(paths))
	var saveMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cmdCtx.Cfg.IngestWorkers)

	for i, path := range paths {
		results[i].Path = path
		g.Go(func() error {
			id, created, err := ingestOne(gctx, cmdCtx, store, &saveMu, path)
			if err != nil {
				cmdCtx.Logger.Warn("ingest failed", "path", path, "error", err)
				results[i].Error = err.Error()
				if failFast {
					return fmt.Errorf("%s: %w", path, err)
				}
				return nil
			}
			results[i].ID = id
			results[i].Created = created
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func ingestOne(ctx context.Context, cmdCtx *CommandContext, store state.Store, saveMu *sync.Mutex, path string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	raw, err := reportio.ReadFile(path)
	if err != nil {
		return "", false, err
	}
	report, err := sisso.Parse(string(raw), cmdCtx.ParseOptions())
	if err != nil {
		return "", false, err
	}

	saveMu.Lock()
	defer saveMu.Unlock()
	id, created, err := store.SaveReport(ctx, path, raw, report)
	if err != nil {
		return "", false, err
	}
	cmdCtx.Logger.Info("ingested report", "path", path, "report_id", id, "created", created)
	return id, created, nil
}

func ingestFailure(results []output.IngestResult) error {
	failed := 0
	for _, res := range results {
		if res.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d reports failed to ingest", failed, len(results))
	}
	return nil
}
