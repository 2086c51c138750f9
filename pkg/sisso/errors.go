package sisso

import (
	"errors"
	"fmt"
)

// Sentinel is the phrase the solver prints when a run completes.
const Sentinel = "Have a nice day !"

// ErrUnfinished is returned when a report lacks the completion sentinel and
// partial parsing was not requested.
var ErrUnfinished = errors.New("report is unfinished: completion sentinel not found")

// ParseError reports a structural problem in a report section.
type ParseError struct {
	Section string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.Section, e.Message)
}

func parseErrorf(section, format string, args ...any) *ParseError {
	return &ParseError{Section: section, Message: fmt.Sprintf(format, args...)}
}

// Report sections
const (
	SectionVersion      = "version"
	SectionParameters   = "parameters"
	SectionIteration    = "iteration"
	SectionModel        = "model"
	SectionDescriptor   = "descriptor"
	SectionTotalTime    = "total time"
	SectionFeatureSpace = "feature space"
)

// Common error messages
const (
	ErrMissingLine       = "no line matching %q"
	ErrLineCount         = "expected exactly one line matching %q, found %d"
	ErrInvalidNumber     = "invalid number %q in %q"
	ErrDescriptorSyntax  = "malformed descriptor line %q"
	ErrNoDescriptorBlock = "descriptor block not found"
	ErrDescriptorCount   = "expected %d descriptors, found %d"
	ErrCoefficientRows   = "found %d coefficient rows but %d intercepts"
	ErrCoefficientWidth  = "coefficient row %d has %d values, expected %d"
	ErrErrorRows         = "found %d RMSE,MaxAE rows for %d tasks"
	ErrNoTasks           = "no coefficients found"
	ErrDimensionMismatch = "block reports dimension %d but model has dimension %d"
	ErrDimensionOrder    = "dimension %d follows dimension %d"
	ErrNegativeTime      = "negative CPU time %v"
	ErrShortHeader       = "report has %d lines, version header is on line 3"
	ErrCoerce            = "field %s: cannot convert %q: %v"
)
