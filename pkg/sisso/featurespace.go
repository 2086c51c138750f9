package sisso

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/leapstack-labs/leapsisso/pkg/expr"
)

// FeatureSpace is the ordered list of candidate descriptors written to
// SIS_subspaces/Uspace.expressions or space_DDDd.expressions.
type FeatureSpace struct {
	Descriptors []*Descriptor
}

// ParseFeatureSpace reads one notation per line, taking the first whitespace
// token. Descriptor IDs are 0-based line indexes; blank lines are skipped.
func ParseFeatureSpace(r io.Reader, cache *expr.Cache) (*FeatureSpace, error) {
	fs := &FeatureSpace{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 0; scanner.Scan(); line++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		d, err := NewDescriptor(line, fields[0], cache)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", SectionFeatureSpace, line+1, err)
		}
		fs.Descriptors = append(fs.Descriptors, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", SectionFeatureSpace, err)
	}
	return fs, nil
}

// Len returns the number of descriptors.
func (fs *FeatureSpace) Len() int { return len(fs.Descriptors) }

// Evaluate returns one column per descriptor, indexed [descriptor][row].
func (fs *FeatureSpace) Evaluate(t expr.Table) ([][]float64, error) {
	out := make([][]float64, len(fs.Descriptors))
	for i, d := range fs.Descriptors {
		col, err := d.Evaluate(t)
		if err != nil {
			return nil, fmt.Errorf("descriptor %d: %w", d.ID, err)
		}
		out[i] = col
	}
	return out, nil
}

// Dedup returns a feature space without descriptors whose fingerprint was
// already seen. Descriptor IDs are preserved.
func (fs *FeatureSpace) Dedup() *FeatureSpace {
	out := &FeatureSpace{}
	seen := make(map[uint64]struct{}, len(fs.Descriptors))
	for _, d := range fs.Descriptors {
		fp := d.Fingerprint()
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		out.Descriptors = append(out.Descriptors, d)
	}
	return out
}

// Inputs returns the distinct input features of all descriptors.
func (fs *FeatureSpace) Inputs() []string {
	m := &Model{Descriptors: fs.Descriptors}
	return m.Inputs()
}
