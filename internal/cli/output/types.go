package output

import "time"

// ParameterOutput is one solver parameter.
type ParameterOutput struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
	Set   bool   `json:"set" yaml:"set"`
}

// RungOutput is the feature count of one rung of a feature space.
type RungOutput struct {
	Rung     string `json:"rung" yaml:"rung"`
	Features int    `json:"features" yaml:"features"`
}

// TaskFitOutput is the fit of one task of a model.
type TaskFitOutput struct {
	Task         int       `json:"task" yaml:"task"`
	Intercept    float64   `json:"intercept" yaml:"intercept"`
	Coefficients []float64 `json:"coefficients" yaml:"coefficients"`
	RMSE         *float64  `json:"rmse,omitempty" yaml:"rmse,omitempty"`
	MaxAE        *float64  `json:"maxae,omitempty" yaml:"maxae,omitempty"`
	Equation     string    `json:"equation" yaml:"equation"`
}

// ModelOutput is a linear model over descriptors.
type ModelOutput struct {
	Dimension   int             `json:"dimension" yaml:"dimension"`
	Descriptors []string        `json:"descriptors" yaml:"descriptors"`
	Inputs      []string        `json:"inputs" yaml:"inputs"`
	Tasks       []TaskFitOutput `json:"tasks" yaml:"tasks"`
}

// IterationOutput summarizes one dimension of the search.
type IterationOutput struct {
	Dimension     int          `json:"dimension" yaml:"dimension"`
	SubspaceSize  int          `json:"subspace_size" yaml:"subspace_size"`
	CPUTime       float64      `json:"cpu_time" yaml:"cpu_time"`
	FeatureSpaces []RungOutput `json:"feature_spaces" yaml:"feature_spaces"`
	Model         ModelOutput  `json:"model" yaml:"model"`
}

// ReportOutput is the parse command payload.
type ReportOutput struct {
	Path         string            `json:"path" yaml:"path"`
	Header       string            `json:"header" yaml:"header"`
	Version      string            `json:"version" yaml:"version"`
	TotalCPUTime float64           `json:"total_cpu_time" yaml:"total_cpu_time"`
	Finished     bool              `json:"finished" yaml:"finished"`
	Parameters   []ParameterOutput `json:"parameters" yaml:"parameters"`
	Iterations   []IterationOutput `json:"iterations" yaml:"iterations"`
}

// OccurrenceOutput is one feature reference in a notation.
type OccurrenceOutput struct {
	Name  string `json:"name" yaml:"name"`
	Start int    `json:"start" yaml:"start"`
	End   int    `json:"end" yaml:"end"`
}

// DecodeOutput is the decode command payload.
type DecodeOutput struct {
	Notation    string             `json:"notation" yaml:"notation"`
	Canonical   string             `json:"canonical" yaml:"canonical"`
	Fingerprint string             `json:"fingerprint" yaml:"fingerprint"`
	Inputs      []string           `json:"inputs" yaml:"inputs"`
	Occurrences []OccurrenceOutput `json:"occurrences" yaml:"occurrences"`
	Tree        string             `json:"tree" yaml:"tree"`
	Value       *float64           `json:"value,omitempty" yaml:"value,omitempty"`
}

// PredictionOutput holds predictions of one model over a table.
type PredictionOutput struct {
	Dimension int         `json:"dimension" yaml:"dimension"`
	Rows      int         `json:"rows" yaml:"rows"`
	Tasks     int         `json:"tasks" yaml:"tasks"`
	Values    [][]float64 `json:"values" yaml:"values"`
}

// FeatureOutput is one evaluated descriptor of a feature space.
type FeatureOutput struct {
	ID       int       `json:"id" yaml:"id"`
	Notation string    `json:"notation" yaml:"notation"`
	Values   []float64 `json:"values" yaml:"values"`
}

// FeatureSpaceOutput is the features command payload.
type FeatureSpaceOutput struct {
	Path     string          `json:"path" yaml:"path"`
	Rows     int             `json:"rows" yaml:"rows"`
	Features []FeatureOutput `json:"features" yaml:"features"`
}

// IngestResult reports the outcome of ingesting one report.
type IngestResult struct {
	Path    string `json:"path" yaml:"path"`
	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	Created bool   `json:"created" yaml:"created"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// HistoryEntry is one ingested report.
type HistoryEntry struct {
	ID           string    `json:"id" yaml:"id"`
	Path         string    `json:"path" yaml:"path"`
	Version      string    `json:"version" yaml:"version"`
	Dimensions   int       `json:"dimensions" yaml:"dimensions"`
	TotalCPUTime float64   `json:"total_cpu_time" yaml:"total_cpu_time"`
	Finished     bool      `json:"finished" yaml:"finished"`
	Fingerprint  string    `json:"fingerprint" yaml:"fingerprint"`
	IngestedAt   time.Time `json:"ingested_at" yaml:"ingested_at"`
}

// VersionOutput is the version command payload.
type VersionOutput struct {
	Version      string `json:"version" yaml:"version"`
	ReportFormat string `json:"report_format" yaml:"report_format"`
	Operators    int    `json:"operators" yaml:"operators"`
	GoVersion    string `json:"go_version" yaml:"go_version"`
	Platform     string `json:"platform" yaml:"platform"`
}
