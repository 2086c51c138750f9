package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/leapstack-labs/leapsisso/internal/cli/output"
	"github.com/leapstack-labs/leapsisso/internal/dataset"
	"github.com/leapstack-labs/leapsisso/internal/reportio"
	"github.com/leapstack-labs/leapsisso/pkg/sisso"
	"github.com/spf13/cobra"
)

// FeaturesOptions holds options for the features command.
type FeaturesOptions struct {
	Data  string
	Dedup bool
}

// NewFeaturesCommand creates the features command.
func NewFeaturesCommand() *cobra.Command {
	opts := &FeaturesOptions{}
	cmd := &cobra.Command{
		Use:   "features [expressions-file]",
		Short: "Evaluate a SIS feature space over a dataset",
		Long: `Read a feature space file (Uspace.expressions or space_DDDd.name), one
descriptor notation per line, and evaluate every descriptor for every row of
a dataset.

Without an argument the feature_space setting is used.
Without --data only the notations and their inputs are listed.`,
		Example: `  leapsisso features SIS_subspaces/Uspace.expressions --data train.dat
  leapsisso features --data train.dat --dedup -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeatures(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "Dataset to evaluate (train.dat or .csv)")
	cmd.Flags().BoolVar(&opts.Dedup, "dedup", false, "Drop descriptors equivalent to an earlier one")

	return cmd
}

// loadFeatureSpace reads a feature space file. A missing file is an empty space.
func loadFeatureSpace(cmdCtx *CommandContext, path string) (*sisso.FeatureSpace, error) {
	rc, err := reportio.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		cmdCtx.Logger.Warn("feature space file not found", "path", path)
		cmdCtx.Renderer.Warning(fmt.Sprintf("feature space file %s not found", path))
		return &sisso.FeatureSpace{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return sisso.ParseFeatureSpace(rc, cmdCtx.Cache)
}

func runFeatures(cmd *cobra.Command, args []string, opts *FeaturesOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	path := cmdCtx.Cfg.FeatureSpace
	if len(args) > 0 {
		path = args[0]
	}

	space, err := loadFeatureSpace(cmdCtx, path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if opts.Dedup {
		space = space.Dedup()
	}

	payload := output.FeatureSpaceOutput{
		Path:     path,
		Features: make([]output.FeatureOutput, space.Len()),
	}
	for i, d := range space.Descriptors {
		payload.Features[i] = output.FeatureOutput{ID: d.ID, Notation: d.Notation()}
	}

	if opts.Data != "" {
		frame, err := dataset.Load(cmd.Context(), opts.Data, dataset.Options{Logger: cmdCtx.Logger})
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", opts.Data, err)
		}
		values, err := space.Evaluate(frame)
		if err != nil {
			return err
		}
		payload.Rows = frame.Len()
		for i := range payload.Features {
			payload.Features[i].Values = values[i]
		}
	}

	r := cmdCtx.Renderer
	if ok, err := r.Structured(payload); ok {
		return err
	}

	r.Header(2, fmt.Sprintf("Feature space %s (%d descriptors)", path, space.Len()))
	if opts.Data == "" {
		rows := make([][]string, space.Len())
		for i, d := range space.Descriptors {
			rows[i] = []string{strconv.Itoa(d.ID), d.Notation(), fmt.Sprint(d.Inputs())}
		}
		r.Table([]string{"ID", "Descriptor", "Inputs"}, rows)
		return nil
	}

	header := []string{"Row"}
	for _, f := range payload.Features {
		header = append(header, f.Notation)
	}
	rows := make([][]string, payload.Rows)
	for row := range payload.Rows {
		cells := []string{strconv.Itoa(row)}
		for _, f := range payload.Features {
			cells = append(cells, output.FormatFloat(f.Values[row]))
		}
		rows[row] = cells
	}
	r.Table(header, rows)
	return nil
}
