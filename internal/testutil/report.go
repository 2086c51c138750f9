package testutil

import (
	"fmt"
	"strings"
)

// ModelSpec describes one dimension block of a synthetic report.
type ModelSpec struct {
	Notations    []string
	Coefficients [][]float64 // [task][descriptor]
	Intercepts   []float64
	RMSE         []float64
	MaxAE        []float64
	Rungs        []int // feature count per rung, phi00 first
	SubspaceSize int
	CPUTime      float64
}

// ReportBuilder assembles SISSO.out text in the solver's layout.
type ReportBuilder struct {
	version   string
	params    []string
	models    []ModelSpec
	totalTime *float64
	finished  bool
}

// NewReport starts a finished report for version 3.0.2 with no parameters.
func NewReport() *ReportBuilder {
	t := 0.0
	return &ReportBuilder{version: "3.0.2", totalTime: &t, finished: true}
}

// Version sets the dotted version number printed on the header line.
func (b *ReportBuilder) Version(v string) *ReportBuilder {
	b.version = v
	return b
}

// Param appends a raw parameter line, e.g. "Number of tasks:        1".
func (b *ReportBuilder) Param(line string) *ReportBuilder {
	b.params = append(b.params, line)
	return b
}

// Model appends a dimension block. Its dimension is len(spec.Notations).
func (b *ReportBuilder) Model(spec ModelSpec) *ReportBuilder {
	b.models = append(b.models, spec)
	return b
}

// TotalTime sets the total CPU time line.
func (b *ReportBuilder) TotalTime(seconds float64) *ReportBuilder {
	b.totalTime = &seconds
	return b
}

// WithoutTotalTime omits the total CPU time line.
func (b *ReportBuilder) WithoutTotalTime() *ReportBuilder {
	b.totalTime = nil
	return b
}

// Unfinished omits the completion sentinel.
func (b *ReportBuilder) Unfinished() *ReportBuilder {
	b.finished = false
	return b
}

// String renders the report.
func (b *ReportBuilder) String() string {
	var sb strings.Builder
	sb.WriteString(strings.Repeat("*", 76) + "\n")
	sb.WriteString("  SISSO: Sure Independence Screening and Sparsifying Operator\n")
	fmt.Fprintf(&sb, "             Version SISSO.%s, June, 2019.\n", b.version)
	sb.WriteString(strings.Repeat("*", 76) + "\n\n")
	sb.WriteString("Read in data from SISSO.in\n")
	for _, p := range b.params {
		sb.WriteString(p + "\n")
	}
	sb.WriteString(strings.Repeat("-", 80) + "\n")

	for _, m := range b.models {
		writeModel(&sb, m)
	}

	if b.totalTime != nil {
		fmt.Fprintf(&sb, "\nTotal time (second):      %12.2f\n", *b.totalTime)
	}
	if b.finished {
		sb.WriteString("Have a nice day !\n")
	}
	return sb.String()
}

func writeModel(sb *strings.Builder, m ModelSpec) {
	dim := len(m.Notations)
	fmt.Fprintf(sb, "\nDimension:   %d\n-------------------\n", dim)
	sb.WriteString("Feature Construction (FC) starts ...\n")
	for i, n := range m.Rungs {
		fmt.Fprintf(sb, "Total number of features in the space phi%02d:%15d\n", i, n)
	}
	fmt.Fprintf(sb, "Size of the SIS-selected subspace from phi%02d:%10d\n", max(len(m.Rungs)-1, 0), m.SubspaceSize)
	sb.WriteString("\nDescriptor Identification (DI) starts ...\n")
	fmt.Fprintf(sb, "  %dD descriptor (model): \n", dim)
	sb.WriteString("@@@descriptor: \n")
	for i, n := range m.Notations {
		fmt.Fprintf(sb, "%23d:[%s]\n", i+1, n)
	}
	for task := range m.Intercepts {
		label := fmt.Sprintf("%03d", task+1)
		fmt.Fprintf(sb, "%24s:", "coefficients_"+label)
		for _, c := range m.Coefficients[task] {
			fmt.Fprintf(sb, "%20.10E", c)
		}
		sb.WriteString("\n")
		fmt.Fprintf(sb, "%24s:%20.10E\n", "Intercept_"+label, m.Intercepts[task])
		if task < len(m.RMSE) {
			fmt.Fprintf(sb, "%24s:%20.10E%20.10E\n", "RMSE,MaxAE_"+label, m.RMSE[task], m.MaxAE[task])
		}
	}
	sb.WriteString(strings.Repeat("=", 80) + "\n")
	fmt.Fprintf(sb, "Time (second) used for this DI:%16.2f\n", m.CPUTime)
}

// SimpleModel is a one-task model over the given notations with unit
// coefficients, zero intercept and one rung.
func SimpleModel(notations ...string) ModelSpec {
	coeffs := make([]float64, len(notations))
	for i := range coeffs {
		coeffs[i] = 1
	}
	return ModelSpec{
		Notations:    notations,
		Coefficients: [][]float64{coeffs},
		Intercepts:   []float64{0},
		RMSE:         []float64{0.1},
		MaxAE:        []float64{0.2},
		Rungs:        []int{2},
		SubspaceSize: 10,
		CPUTime:      0.5,
	}
}
