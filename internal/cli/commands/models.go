package commands

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapsisso/internal/cli/output"
	"github.com/leapstack-labs/leapsisso/pkg/sisso"
	"github.com/spf13/cobra"
)

// ModelsOptions holds options for the models command.
type ModelsOptions struct {
	Dimension int
}

// NewModelsCommand creates the models command.
func NewModelsCommand() *cobra.Command {
	opts := &ModelsOptions{}
	cmd := &cobra.Command{
		Use:   "models <report>",
		Short: "Show the fitted models of a SISSO report",
		Long: `Show the descriptors, coefficients, intercepts and fit errors of every
model in a SISSO report, one per descriptor dimension.`,
		Example: `  # Every model
  leapsisso models SISSO.out

  # Only the 2D model
  leapsisso models SISSO.out --dimension 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModels(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Dimension, "dimension", "d", 0, "Only show the model of this dimension")

	return cmd
}

func runModels(cmd *cobra.Command, path string, opts *ModelsOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	report, err := sisso.ParseFile(path, cmdCtx.ParseOptions())
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	models, err := selectModels(report, opts.Dimension)
	if err != nil {
		return err
	}

	payload := make([]output.ModelOutput, len(models))
	for i, m := range models {
		payload[i] = buildModelOutput(m)
	}

	r := cmdCtx.Renderer
	if ok, err := r.Structured(payload); ok {
		return err
	}

	if len(payload) == 0 {
		r.Warning("report has no completed dimensions")
		return nil
	}
	for _, m := range payload {
		renderModel(r, m)
	}
	return nil
}

// selectModels returns every model, or only the one of dimension when it is positive.
func selectModels(report *sisso.Report, dimension int) ([]*sisso.Model, error) {
	if dimension <= 0 {
		return report.Models(), nil
	}
	it, ok := report.Iteration(dimension)
	if !ok {
		return nil, fmt.Errorf("report has no model of dimension %d", dimension)
	}
	return []*sisso.Model{it.Model}, nil
}

func renderModel(r *output.Renderer, m output.ModelOutput) {
	r.Header(2, fmt.Sprintf("Dimension %d", m.Dimension))

	rows := make([][]string, len(m.Descriptors))
	for i, d := range m.Descriptors {
		rows[i] = []string{strconv.Itoa(i + 1), d}
	}
	r.Table([]string{"#", "Descriptor"}, rows)

	header := []string{"Task", "Intercept"}
	for i := range m.Descriptors {
		header = append(header, fmt.Sprintf("c%d", i+1))
	}
	header = append(header, "RMSE", "MaxAE")

	rows = rows[:0]
	for _, t := range m.Tasks {
		row := []string{strconv.Itoa(t.Task), output.FormatFloat(t.Intercept)}
		for _, c := range t.Coefficients {
			row = append(row, output.FormatFloat(c))
		}
		row = append(row, errorCell(t.RMSE), errorCell(t.MaxAE))
		rows = append(rows, row)
	}
	r.Table(header, rows)

	for _, t := range m.Tasks {
		r.KeyValue(fmt.Sprintf("Task %d", t.Task), t.Equation)
	}
	r.Println("")
}
