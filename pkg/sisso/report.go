// Package sisso parses the text report written by the SISSO symbolic
// regression solver into parameters, iterations and linear models.
package sisso

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapsisso/pkg/expr"
)

var (
	iterationBlockRe = regexp.MustCompile(`(?s)Dimension:.*?Time \(second\) used for this DI:[^\n]*(?:\n|$)`)
	totalTimeRe      = regexp.MustCompile(`Total time \(second\):.*`)
)

// ParseOptions configures report parsing.
type ParseOptions struct {
	// AllowUnfinished parses reports that lack the completion sentinel.
	AllowUnfinished bool
	// Logger receives debug output. Nil discards.
	Logger *slog.Logger
	// Cache shares decoded notations between reports. Nil disables caching.
	Cache *expr.Cache
	// Open opens report files for ParseFile. Nil uses os.Open.
	Open func(path string) (io.ReadCloser, error)
}

func (o ParseOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// Report is a fully parsed solver report.
type Report struct {
	Parameters   *Parameters
	Iterations   []*Iteration // index 0 is dimension 1
	Version      *Version
	TotalCPUTime float64 // seconds
	Finished     bool    // completion sentinel present
}

// Parse parses the complete text of a report.
func Parse(text string, opts ParseOptions) (*Report, error) {
	start := time.Now()
	logger := opts.logger()

	r := &Report{Finished: strings.Contains(text, Sentinel)}
	if !r.Finished && !opts.AllowUnfinished {
		return nil, ErrUnfinished
	}

	var err error
	if r.Parameters, err = ParseParameters(text, logger); err != nil {
		return nil, err
	}

	for _, block := range iterationBlockRe.FindAllString(text, -1) {
		it, err := ParseIteration(block, opts.Cache)
		if err != nil {
			return nil, err
		}
		if n := len(r.Iterations); n > 0 && it.Dimension <= r.Iterations[n-1].Dimension {
			return nil, parseErrorf(SectionIteration, ErrDimensionOrder, it.Dimension, r.Iterations[n-1].Dimension)
		}
		logger.Debug("parsed iteration", "dimension", it.Dimension, "descriptors", len(it.Model.Descriptors))
		r.Iterations = append(r.Iterations, it)
	}

	line, err := headerLine(text)
	if err != nil {
		return nil, err
	}
	r.Version = ParseVersion(line)
	if !r.Version.Compatible() {
		logger.Warn("report written by an untested solver version",
			"header", r.Version.Header, "expected_major", FormatMajor)
	}

	total := totalTimeRe.FindString(text)
	if total == "" {
		return nil, parseErrorf(SectionTotalTime, ErrMissingLine, "Total time (second):")
	}
	fields := strings.Fields(total)
	if r.TotalCPUTime, err = strconv.ParseFloat(fields[len(fields)-1], 64); err != nil {
		return nil, parseErrorf(SectionTotalTime, ErrInvalidNumber, fields[len(fields)-1], strings.TrimSpace(total))
	}

	logger.Debug("parsed report",
		"version", r.Version.String(),
		"iterations", len(r.Iterations),
		"elapsed", time.Since(start),
	)
	return r, nil
}

// ParseReader reads r to the end and parses the report.
func ParseReader(rd io.Reader, opts ParseOptions) (*Report, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return Parse(string(data), opts)
}

// ParseFile opens and parses the report at path.
func ParseFile(path string, opts ParseOptions) (*Report, error) {
	open := opts.Open
	if open == nil {
		open = func(p string) (io.ReadCloser, error) { return os.Open(p) }
	}
	f, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	opts.logger().Debug("parsing report", "path", path)
	return ParseReader(f, opts)
}

// Model returns the model of the highest dimension, or nil when the report
// has no iterations.
func (r *Report) Model() *Model {
	if len(r.Iterations) == 0 {
		return nil
	}
	return r.Iterations[len(r.Iterations)-1].Model
}

// Models returns the model of every iteration in dimension order.
func (r *Report) Models() []*Model {
	models := make([]*Model, len(r.Iterations))
	for i, it := range r.Iterations {
		models[i] = it.Model
	}
	return models
}

// Iteration returns the iteration for a dimension.
func (r *Report) Iteration(dimension int) (*Iteration, bool) {
	for _, it := range r.Iterations {
		if it.Dimension == dimension {
			return it, true
		}
	}
	return nil, false
}
