package sisso

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// Parameters is the global run configuration echoed at the top of a report.
// A nil or empty field was not found exactly once.
type Parameters struct {
	PropertyType          *int
	TotalNumberProperties *int
	DescriptorDimension   *int
	NumberOfSamples       []int
	NScalarFeatures       *int
	NRungs                *int
	MaxFeatureComplexity  *int
	DimensionTypes        [][]float64 // [feature][unit exponent]
	LowerBoundMaxAbsValue *float64
	UpperBoundMaxAbsValue *float64
	SISSubspacesSizes     []int
	Operators             []string
	SparsificationMethod  *string
	NTopModels            *int
	FitIntercept          *bool
	Metric                *string
}

// paramRule extracts one field from the line introduced by pattern.
type paramRule struct {
	name    string
	pattern string
	set     func(p *Parameters, last string, values []string) error
}

func literal(label string) string {
	return regexp.QuoteMeta(label)
}

var paramRules = []paramRule{
	{"property_type", literal("Property type:"), setInt(func(p *Parameters) **int { return &p.PropertyType })},
	{"total_number_properties", literal("Number of tasks:"), setInt(func(p *Parameters) **int { return &p.TotalNumberProperties })},
	{"descriptor_dimension", literal("Descriptor dimension:"), setInt(func(p *Parameters) **int { return &p.DescriptorDimension })},
	{"number_of_samples", literal("Number of samples for each task:"), setInts(func(p *Parameters) *[]int { return &p.NumberOfSamples })},
	{"n_scalar_features", literal("Number of scalar features:"), setInt(func(p *Parameters) **int { return &p.NScalarFeatures })},
	{"n_rungs", literal("Tier of the feature space:"), setInt(func(p *Parameters) **int { return &p.NRungs })},
	{"max_feature_complexity", literal("Maximal feature complexity (number of operators in a feature):"), setInt(func(p *Parameters) **int { return &p.MaxFeatureComplexity })},
	{"dimension_types", "", nil},
	{"lower_bound_maxabs_value", literal("The feature will be discarded if the minimum of the maximal abs. value in it <"), setFloat(func(p *Parameters) **float64 { return &p.LowerBoundMaxAbsValue })},
	// The solver misspells "feature" on this line.
	{"upper_bound_maxabs_value", `The f[ae]ature will be discarded if the maximum of the maximal abs\. value in it >`, setFloat(func(p *Parameters) **float64 { return &p.UpperBoundMaxAbsValue })},
	{"SIS_subspaces_sizes", literal("Size of the SIS-selected (single) subspace :"), setInts(func(p *Parameters) *[]int { return &p.SISSubspacesSizes })},
	{"operators", literal("Operators for feature construction:"), setStrings(func(p *Parameters) *[]string { return &p.Operators })},
	{"sparsification_method", literal("Method for sparse regression:"), setString(func(p *Parameters) **string { return &p.SparsificationMethod })},
	{"n_topmodels", literal("Number of the top-ranked models to output:"), setInt(func(p *Parameters) **int { return &p.NTopModels })},
	{"fit_intercept", literal("Fitting intercept:"), setBool(func(p *Parameters) **bool { return &p.FitIntercept })},
	{"metric", literal("Metric for model selection:"), setString(func(p *Parameters) **string { return &p.Metric })},
}

var paramPatterns = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(paramRules))
	for i, r := range paramRules {
		if r.pattern != "" {
			res[i] = regexp.MustCompile(`(` + r.pattern + `)([^\n]*)`)
		}
	}
	return res
}()

// unitsRe matches consecutive two-space indented rows of decimal numbers.
var unitsRe = regexp.MustCompile(`(?m)(?:^  (?:-?\d+\.\d*[ \t]+)+-?\d+\.\d*[ \t]*(?:\n|$))+`)

// ParseParameters extracts the run configuration from the full report text.
// Fields whose label is absent or appears more than once are left unset; a
// value that cannot be converted is a *ParseError.
func ParseParameters(text string, logger *slog.Logger) (*Parameters, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Parameters{}
	for i, rule := range paramRules {
		if rule.set == nil {
			p.DimensionTypes = parseUnits(text)
			continue
		}
		matches := paramPatterns[i].FindAllStringSubmatch(text, -1)
		if len(matches) != 1 {
			logger.Debug("parameter not set", "field", rule.name, "matches", len(matches))
			continue
		}
		values := strings.Fields(matches[0][2])
		if len(values) == 0 {
			logger.Debug("parameter has no value", "field", rule.name)
			continue
		}
		if err := rule.set(p, values[len(values)-1], values); err != nil {
			return nil, parseErrorf(SectionParameters, ErrCoerce, rule.name, strings.TrimSpace(matches[0][2]), err)
		}
	}
	return p, nil
}

func parseUnits(text string) [][]float64 {
	block := unitsRe.FindString(text)
	if block == "" {
		return nil
	}
	var rows [][]float64
	for _, line := range strings.Split(strings.TrimRight(block, "\n"), "\n") {
		fields := strings.Fields(line)
		row := make([]float64, len(fields))
		for i, f := range fields {
			// The pattern admits only well-formed decimals.
			row[i], _ = strconv.ParseFloat(f, 64)
		}
		rows = append(rows, row)
	}
	return rows
}

func setInt(field func(*Parameters) **int) func(*Parameters, string, []string) error {
	return func(p *Parameters, last string, _ []string) error {
		v, err := strconv.Atoi(last)
		if err != nil {
			return err
		}
		*field(p) = &v
		return nil
	}
}

func setFloat(field func(*Parameters) **float64) func(*Parameters, string, []string) error {
	return func(p *Parameters, last string, _ []string) error {
		v, err := strconv.ParseFloat(last, 64)
		if err != nil {
			return err
		}
		*field(p) = &v
		return nil
	}
}

func setString(field func(*Parameters) **string) func(*Parameters, string, []string) error {
	return func(p *Parameters, last string, _ []string) error {
		v := last
		*field(p) = &v
		return nil
	}
}

func setBool(field func(*Parameters) **bool) func(*Parameters, string, []string) error {
	return func(p *Parameters, last string, _ []string) error {
		v, err := parseBool(last)
		if err != nil {
			return err
		}
		*field(p) = &v
		return nil
	}
}

func setInts(field func(*Parameters) *[]int) func(*Parameters, string, []string) error {
	return func(p *Parameters, _ string, values []string) error {
		out := make([]int, len(values))
		for i, s := range values {
			v, err := strconv.Atoi(s)
			if err != nil {
				return err
			}
			out[i] = v
		}
		*field(p) = out
		return nil
	}
}

func setStrings(field func(*Parameters) *[]string) func(*Parameters, string, []string) error {
	return func(p *Parameters, _ string, values []string) error {
		*field(p) = append([]string(nil), values...)
		return nil
	}
}

// parseBool accepts the spellings the solver and its input files use,
// including Fortran logicals such as ".true." and "T".
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.Trim(s, ".")) {
	case "t", "true", "y", "yes", "1":
		return true, nil
	case "f", "false", "n", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean")
}

// Field is one rendered parameter.
type Field struct {
	Name  string
	Value string
	Set   bool
}

// Fields returns every parameter in extraction order.
func (p *Parameters) Fields() []Field {
	fields := make([]Field, 0, len(paramRules))
	add := func(name, value string, set bool) {
		fields = append(fields, Field{Name: name, Value: value, Set: set})
	}
	addInt := func(name string, v *int) {
		if v == nil {
			add(name, "", false)
			return
		}
		add(name, strconv.Itoa(*v), true)
	}
	addFloat := func(name string, v *float64) {
		if v == nil {
			add(name, "", false)
			return
		}
		add(name, strconv.FormatFloat(*v, 'g', -1, 64), true)
	}
	addString := func(name string, v *string) {
		if v == nil {
			add(name, "", false)
			return
		}
		add(name, *v, true)
	}

	addInt("property_type", p.PropertyType)
	addInt("total_number_properties", p.TotalNumberProperties)
	addInt("descriptor_dimension", p.DescriptorDimension)
	add("number_of_samples", joinInts(p.NumberOfSamples), p.NumberOfSamples != nil)
	addInt("n_scalar_features", p.NScalarFeatures)
	addInt("n_rungs", p.NRungs)
	addInt("max_feature_complexity", p.MaxFeatureComplexity)
	add("dimension_types", formatMatrix(p.DimensionTypes), p.DimensionTypes != nil)
	addFloat("lower_bound_maxabs_value", p.LowerBoundMaxAbsValue)
	addFloat("upper_bound_maxabs_value", p.UpperBoundMaxAbsValue)
	add("SIS_subspaces_sizes", joinInts(p.SISSubspacesSizes), p.SISSubspacesSizes != nil)
	add("operators", strings.Join(p.Operators, " "), p.Operators != nil)
	addString("sparsification_method", p.SparsificationMethod)
	addInt("n_topmodels", p.NTopModels)
	if p.FitIntercept == nil {
		add("fit_intercept", "", false)
	} else {
		add("fit_intercept", strconv.FormatBool(*p.FitIntercept), true)
	}
	addString("metric", p.Metric)
	return fields
}

var operatorGroupRe = regexp.MustCompile(`\(([^()]+)\)`)

// OperatorSymbols returns the distinct operators across all rungs in
// first-seen order, e.g. "+", "exp", "^2".
func (p *Parameters) OperatorSymbols() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, group := range p.Operators {
		for _, m := range operatorGroupRe.FindAllStringSubmatch(group, -1) {
			if _, dup := seen[m[1]]; dup {
				continue
			}
			seen[m[1]] = struct{}{}
			out = append(out, m[1])
		}
	}
	return out
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}

func formatMatrix(rows [][]float64) string {
	parts := make([]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		parts[i] = "[" + strings.Join(cells, " ") + "]"
	}
	return strings.Join(parts, " ")
}
