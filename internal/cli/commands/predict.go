package commands

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapsisso/internal/cli/output"
	"github.com/leapstack-labs/leapsisso/internal/dataset"
	"github.com/leapstack-labs/leapsisso/pkg/sisso"
	"github.com/spf13/cobra"
)

// PredictOptions holds options for the predict command.
type PredictOptions struct {
	Data      string
	Dimension int
}

// NewPredictCommand creates the predict command.
func NewPredictCommand() *cobra.Command {
	opts := &PredictOptions{}
	cmd := &cobra.Command{
		Use:   "predict <report>",
		Short: "Evaluate a fitted model over a dataset",
		Long: `Evaluate a model of a SISSO report for every row of a dataset.

The dataset is either a whitespace-delimited SISSO train.dat file or a CSV
file with a header row. Columns are matched to descriptor inputs by name.
The model of the highest dimension is used unless --dimension is set.`,
		Example: `  leapsisso predict SISSO.out --data train.dat
  leapsisso predict SISSO.out --data samples.csv --dimension 2 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "Dataset to evaluate (train.dat or .csv)")
	cmd.Flags().IntVarP(&opts.Dimension, "dimension", "d", 0, "Use the model of this dimension")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func runPredict(cmd *cobra.Command, path string, opts *PredictOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	report, err := sisso.ParseFile(path, cmdCtx.ParseOptions())
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	model := report.Model()
	if opts.Dimension > 0 {
		it, ok := report.Iteration(opts.Dimension)
		if !ok {
			return fmt.Errorf("report has no model of dimension %d", opts.Dimension)
		}
		model = it.Model
	}
	if model == nil {
		return fmt.Errorf("report %s has no completed dimensions", path)
	}

	frame, err := dataset.Load(cmd.Context(), opts.Data, dataset.Options{Logger: cmdCtx.Logger})
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", opts.Data, err)
	}

	values, err := model.Predict(frame)
	if err != nil {
		return err
	}
	cmdCtx.Logger.Debug("predicted", "dimension", model.Dimension, "rows", len(values))

	payload := output.PredictionOutput{
		Dimension: model.Dimension,
		Rows:      len(values),
		Tasks:     model.Tasks(),
		Values:    values,
	}

	r := cmdCtx.Renderer
	if ok, err := r.Structured(payload); ok {
		return err
	}

	header := []string{"Row"}
	for task := range payload.Tasks {
		header = append(header, fmt.Sprintf("Task %d", task+1))
	}
	rows := make([][]string, len(values))
	for i, row := range values {
		cells := []string{strconv.Itoa(i)}
		for _, v := range row {
			cells = append(cells, output.FormatFloat(v))
		}
		rows[i] = cells
	}
	r.Header(2, fmt.Sprintf("Predictions of the %dD model", model.Dimension))
	r.Table(header, rows)
	return nil
}
