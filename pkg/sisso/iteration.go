package sisso

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapsisso/pkg/expr"
)

var (
	featureSpaceRe = regexp.MustCompile(`Total number of features in the space phi.*`)
	subspaceSizeRe = regexp.MustCompile(`Size of the SIS-selected subspace.*`)
	iterationCPURe = regexp.MustCompile(`Time \(second\) used for this DI:.*`)
)

// RungCount is the size of the feature space after one rung of expansion.
type RungCount struct {
	Rung     string // e.g. "phi01"
	Features int
}

// Iteration is the outcome of one dimension of the descriptor search.
type Iteration struct {
	Dimension     int
	Model         *Model
	FeatureSpaces []RungCount // in rung order
	SubspaceSize  int
	CPUTime       float64 // seconds
}

// ParseIteration parses one block spanning a "Dimension:" header through its
// "Time (second) used for this DI:" line.
func ParseIteration(block string, cache *expr.Cache) (*Iteration, error) {
	m, err := ParseModel(block, cache)
	if err != nil {
		return nil, err
	}
	it := &Iteration{Dimension: m.Dimension, Model: m}

	for _, line := range featureSpaceRe.FindAllString(block, -1) {
		fields := strings.Fields(line)
		// The label carries one trailing separator, e.g. "phi02:".
		label := fields[len(fields)-2]
		label = label[:len(label)-1]
		n, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil {
			return nil, parseErrorf(SectionIteration, ErrInvalidNumber, fields[len(fields)-1], strings.TrimSpace(line))
		}
		it.setRung(label, n)
	}

	sizeText, err := singleLastToken(block, subspaceSizeRe, "Size of the SIS-selected subspace")
	if err != nil {
		return nil, err
	}
	if it.SubspaceSize, err = strconv.Atoi(sizeText); err != nil {
		return nil, parseErrorf(SectionIteration, ErrInvalidNumber, sizeText, "Size of the SIS-selected subspace")
	}

	timeText, err := singleLastToken(block, iterationCPURe, "Time (second) used for this DI:")
	if err != nil {
		return nil, err
	}
	if it.CPUTime, err = strconv.ParseFloat(timeText, 64); err != nil {
		return nil, parseErrorf(SectionIteration, ErrInvalidNumber, timeText, "Time (second) used for this DI:")
	}
	if it.CPUTime < 0 {
		return nil, parseErrorf(SectionIteration, ErrNegativeTime, it.CPUTime)
	}
	return it, nil
}

// setRung records a rung count; a repeated label keeps its first position.
func (it *Iteration) setRung(label string, n int) {
	for i := range it.FeatureSpaces {
		if it.FeatureSpaces[i].Rung == label {
			it.FeatureSpaces[i].Features = n
			return
		}
	}
	it.FeatureSpaces = append(it.FeatureSpaces, RungCount{Rung: label, Features: n})
}

// FeatureSpace returns the feature count reported for a rung label.
func (it *Iteration) FeatureSpace(rung string) (int, bool) {
	for _, rc := range it.FeatureSpaces {
		if rc.Rung == rung {
			return rc.Features, true
		}
	}
	return 0, false
}

// singleLastToken returns the last whitespace token of the only line matching re.
func singleLastToken(block string, re *regexp.Regexp, label string) (string, error) {
	matches := re.FindAllString(block, -1)
	switch len(matches) {
	case 0:
		return "", parseErrorf(SectionIteration, ErrMissingLine, label)
	case 1:
	default:
		return "", parseErrorf(SectionIteration, ErrLineCount, label, len(matches))
	}
	fields := strings.Fields(matches[0])
	return fields[len(fields)-1], nil
}
