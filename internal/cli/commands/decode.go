package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapsisso/internal/cli/output"
	"github.com/leapstack-labs/leapsisso/pkg/expr"
	"github.com/leapstack-labs/leapsisso/pkg/sisso"
	"github.com/spf13/cobra"
)

// DecodeOptions holds options for the decode command.
type DecodeOptions struct {
	Interactive bool
	Eval        string
	Numeric     bool
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand() *cobra.Command {
	opts := &DecodeOptions{}
	cmd := &cobra.Command{
		Use:   "decode [notation]",
		Short: "Decode a descriptor notation",
		Long: `Decode a SISSO descriptor notation such as "((a-b)+exp(-c))" into its
expression tree, listing the input features and where they occur.

With --eval, the expression is evaluated for one row of named values.
With --interactive (or no argument on a terminal), notations are read line by line.`,
		Example: `  # Show the tree of a descriptor
  leapsisso decode "((feature1-feature2)+(feature3)^2)"

  # Evaluate for one row
  leapsisso decode "(a/b)" --eval a=1.5,b=3

  # Decode interactively
  leapsisso decode -i`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false, "Read notations interactively")
	cmd.Flags().StringVarP(&opts.Eval, "eval", "e", "", "Evaluate with comma-separated name=value pairs")
	cmd.Flags().BoolVar(&opts.Numeric, "numeric", false, "Decode numeric feature names as constants")

	return cmd
}

func runDecode(cmd *cobra.Command, args []string, opts *DecodeOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	values, err := parseAssignments(opts.Eval)
	if err != nil {
		return err
	}

	decoder := expr.Decoder{NumericLiterals: opts.Numeric}
	if opts.Interactive || len(args) == 0 {
		return runDecodeREPL(cmd, cmdCtx, decoder, values)
	}

	payload, err := decodeNotation(decoder, args[0], values)
	if err != nil {
		return err
	}
	return renderDecode(cmdCtx.Renderer, payload)
}

// parseAssignments parses "a=1,b=2.5" into single-row columns.
func parseAssignments(s string) (map[string]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	values := make(map[string]float64)
	for _, part := range strings.Split(s, ",") {
		name, raw, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid assignment %q (expected name=value)", part)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", name, err)
		}
		values[strings.TrimSpace(name)] = v
	}
	return values, nil
}

// decodeNotation decodes one notation and, when values is non-nil, evaluates it.
func decodeNotation(decoder expr.Decoder, notation string, values map[string]float64) (*output.DecodeOutput, error) {
	e, err := decoder.Decode(notation)
	if err != nil {
		return nil, err
	}

	canonical := expr.Format(e.Root())
	d, err := sisso.NewDescriptor(0, canonical, nil)
	if err != nil {
		return nil, err
	}

	out := &output.DecodeOutput{
		Notation:    e.Notation(),
		Canonical:   canonical,
		Fingerprint: d.FingerprintHex(),
		Inputs:      e.Inputs(),
		Tree:        renderTree(e.Root()),
	}
	for _, occ := range e.Occurrences() {
		out.Occurrences = append(out.Occurrences, output.OccurrenceOutput{
			Name:  occ.Name,
			Start: occ.Span.Start,
			End:   occ.Span.End,
		})
	}

	if values != nil {
		cols := make(map[string][]float64, len(values))
		for name, v := range values {
			cols[name] = []float64{v}
		}
		frame, err := expr.FrameFromMap(cols)
		if err != nil {
			return nil, err
		}
		res, err := e.Evaluate(frame)
		if err != nil {
			return nil, err
		}
		out.Value = &res[0]
	}
	return out, nil
}

func renderDecode(r *output.Renderer, out *output.DecodeOutput) error {
	if ok, err := r.Structured(out); ok {
		return err
	}

	r.KeyValue("Notation", out.Notation)
	r.KeyValue("Canonical", out.Canonical)
	r.KeyValue("Fingerprint", out.Fingerprint)
	r.KeyValue("Inputs", strings.Join(out.Inputs, ", "))
	if out.Value != nil {
		r.KeyValue("Value", output.FormatFloat(*out.Value))
	}
	r.Println("")

	rows := make([][]string, len(out.Occurrences))
	for i, occ := range out.Occurrences {
		rows[i] = []string{occ.Name, strconv.Itoa(occ.Start), strconv.Itoa(occ.End)}
	}
	r.Table([]string{"Feature", "Start", "End"}, rows)
	r.Println("")

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatCodeBlock("text", out.Tree))
		return nil
	}
	r.Println(strings.TrimRight(out.Tree, "\n"))
	return nil
}

// renderTree draws an expression tree with one node per line.
func renderTree(root expr.Node) string {
	var b strings.Builder
	var walk func(n expr.Node, prefix string, last, top bool)
	walk = func(n expr.Node, prefix string, last, top bool) {
		branch, next := "├── ", "│   "
		if last {
			branch, next = "└── ", "    "
		}
		if top {
			branch, next = "", ""
		}
		b.WriteString(prefix + branch + nodeLabel(n) + "\n")

		children := nodeChildren(n)
		for i, c := range children {
			walk(c, prefix+next, i == len(children)-1, false)
		}
	}
	walk(root, "", true, true)
	return b.String()
}

func nodeLabel(n expr.Node) string {
	switch v := n.(type) {
	case *expr.ColumnRef:
		return v.Name
	case *expr.Literal:
		return strconv.FormatFloat(v.Value, 'g', -1, 64)
	case *expr.UnaryOp:
		return v.Kind.String()
	case *expr.BinaryOp:
		return v.Kind.String()
	case *expr.Power:
		return "^" + strconv.Itoa(v.Exponent)
	}
	return "?"
}

func nodeChildren(n expr.Node) []expr.Node {
	switch v := n.(type) {
	case *expr.UnaryOp:
		return []expr.Node{v.Operand}
	case *expr.BinaryOp:
		return []expr.Node{v.Left, v.Right}
	case *expr.Power:
		return []expr.Node{v.Operand}
	}
	return nil
}

func runDecodeREPL(cmd *cobra.Command, cmdCtx *CommandContext, decoder expr.Decoder, values map[string]float64) error {
	historyFile := filepath.Join(filepath.Dir(cmdCtx.Cfg.StatePath), "decode_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "decode> ",
		HistoryFile:     historyFile,
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

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Enter a notation, .quit to exit")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case ".quit", ".exit":
			return nil
		}

		payload, err := decodeNotation(decoder, line, values)
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			continue
		}
		if err := renderDecode(cmdCtx.Renderer, payload); err != nil {
			return err
		}
	}
}
