package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapsisso/internal/cli/output"
	"github.com/leapstack-labs/leapsisso/pkg/sisso"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ParseOptions holds options for the parse command.
type ParseOptions struct {
	ShowUnset bool
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	opts := &ParseOptions{}
	cmd := &cobra.Command{
		Use:   "parse <report>",
		Short: "Summarize a SISSO report",
		Long: `Parse a SISSO.out report and print its version, parameters and the
result of every descriptor dimension.

Compressed reports (gzip, zstd, lz4) are detected automatically.
Reports without the completion line are rejected unless --allow-unfinished is set.`,
		Example: `  # Summarize a finished run
  leapsisso parse SISSO.out

  # Inspect a run that is still going
  leapsisso parse SISSO.out --allow-unfinished

  # Machine-readable output
  leapsisso parse SISSO.out -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.ShowUnset, "show-unset", false, "List parameters that were not found in the report")

	return cmd
}

func runParse(cmd *cobra.Command, path string, opts *ParseOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	report, err := sisso.ParseFile(path, cmdCtx.ParseOptions())
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cmdCtx.Logger.Debug("parsed report", "path", path, "iterations", len(report.Iterations))

	r := cmdCtx.Renderer
	payload := buildReportOutput(path, report)
	if ok, err := r.Structured(payload); ok {
		return err
	}

	renderReportSummary(r, payload, opts.ShowUnset)
	return nil
}

func renderReportSummary(r *output.Renderer, out output.ReportOutput, showUnset bool) {
	r.Header(1, "SISSO report: "+out.Path)
	r.Println("")
	r.KeyValue("Version", out.Version)
	r.KeyValue("Header", out.Header)
	r.KeyValue("Total CPU time", fmt.Sprintf("%ss", output.FormatFloat(out.TotalCPUTime)))
	r.KeyValue("Finished", strconv.FormatBool(out.Finished))
	r.Println("")

	titleCaser := cases.Title(language.English)
	r.Header(2, "Parameters")
	var rows [][]string
	for _, p := range out.Parameters {
		if !p.Set && !showUnset {
			continue
		}
		value := p.Value
		if !p.Set {
			value = "(unset)"
		}
		rows = append(rows, []string{titleCaser.String(humanize(p.Name)), value})
	}
	r.Table([]string{"Parameter", "Value"}, rows)
	r.Println("")

	r.Header(2, "Iterations")
	if len(out.Iterations) == 0 {
		r.Muted("no completed dimensions")
		return
	}
	rows = rows[:0]
	for _, it := range out.Iterations {
		rmse, maxae := "-", "-"
		if len(it.Model.Tasks) > 0 {
			rmse = errorCell(it.Model.Tasks[0].RMSE)
			maxae = errorCell(it.Model.Tasks[0].MaxAE)
		}
		features := 0
		if n := len(it.FeatureSpaces); n > 0 {
			features = it.FeatureSpaces[n-1].Features
		}
		rows = append(rows, []string{
			strconv.Itoa(it.Dimension),
			strconv.Itoa(features),
			strconv.Itoa(it.SubspaceSize),
			output.FormatFloat(it.CPUTime),
			rmse,
			maxae,
		})
	}
	r.Table([]string{"Dimension", "Features", "SIS size", "CPU (s)", "RMSE", "MaxAE"}, rows)
}

// humanize turns a parameter key such as "n_rungs" into "n rungs".
func humanize(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
