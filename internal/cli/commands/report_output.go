package commands

import (
	"github.com/leapstack-labs/leapsisso/internal/cli/output"
	"github.com/leapstack-labs/leapsisso/pkg/sisso"
)

// buildReportOutput converts a parsed report into its output payload.
func buildReportOutput(path string, r *sisso.Report) output.ReportOutput {
	out := output.ReportOutput{
		Path:         path,
		Header:       r.Version.Header,
		Version:      r.Version.String(),
		TotalCPUTime: r.TotalCPUTime,
		Finished:     r.Finished,
		Parameters:   []output.ParameterOutput{},
		Iterations:   make([]output.IterationOutput, 0, len(r.Iterations)),
	}
	for _, f := range r.Parameters.Fields() {
		out.Parameters = append(out.Parameters, output.ParameterOutput{Name: f.Name, Value: f.Value, Set: f.Set})
	}
	for _, it := range r.Iterations {
		iter := output.IterationOutput{
			Dimension:     it.Dimension,
			SubspaceSize:  it.SubspaceSize,
			CPUTime:       it.CPUTime,
			FeatureSpaces: make([]output.RungOutput, len(it.FeatureSpaces)),
			Model:         buildModelOutput(it.Model),
		}
		for i, rc := range it.FeatureSpaces {
			iter.FeatureSpaces[i] = output.RungOutput{Rung: rc.Rung, Features: rc.Features}
		}
		out.Iterations = append(out.Iterations, iter)
	}
	return out
}

// buildModelOutput converts a model into its output payload.
func buildModelOutput(m *sisso.Model) output.ModelOutput {
	out := output.ModelOutput{
		Dimension:   m.Dimension,
		Descriptors: make([]string, len(m.Descriptors)),
		Inputs:      m.Inputs(),
		Tasks:       make([]output.TaskFitOutput, m.Tasks()),
	}
	for i, d := range m.Descriptors {
		out.Descriptors[i] = d.Notation()
	}
	for task := range m.Tasks() {
		fit := output.TaskFitOutput{
			Task:         task + 1,
			Intercept:    m.Intercepts[task],
			Coefficients: m.Coefficients[task],
		}
		if task < len(m.RMSE) {
			fit.RMSE = &m.RMSE[task]
			fit.MaxAE = &m.MaxAE[task]
		}
		fit.Equation, _ = m.Equation(task)
		out.Tasks[task] = fit
	}
	return out
}

// errorCell renders an optional error metric.
func errorCell(v *float64) string {
	if v == nil {
		return "-"
	}
	return output.FormatFloat(*v)
}
