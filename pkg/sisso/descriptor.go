package sisso

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/leapstack-labs/leapsisso/pkg/expr"
)

// Descriptor is one decoded composite feature.
type Descriptor struct {
	// ID is the identifier printed by the solver: the 1-based position in a
	// model, or the 0-based line index in a feature space.
	ID   int
	expr *expr.Expression
}

// NewDescriptor decodes notation into a descriptor. A nil cache decodes
// without caching.
func NewDescriptor(id int, notation string, cache *expr.Cache) (*Descriptor, error) {
	e, err := cache.Decode(notation)
	if err != nil {
		return nil, err
	}
	return &Descriptor{ID: id, expr: e}, nil
}

// ParseDescriptorLine parses a report line of the form "<id>:[<notation>]".
func ParseDescriptorLine(line string, cache *expr.Cache) (*Descriptor, error) {
	idText, rest, ok := strings.Cut(line, ":")
	if !ok {
		return nil, parseErrorf(SectionDescriptor, ErrDescriptorSyntax, strings.TrimSpace(line))
	}
	id, err := strconv.Atoi(strings.TrimSpace(idText))
	if err != nil {
		return nil, parseErrorf(SectionDescriptor, ErrDescriptorSyntax, strings.TrimSpace(line))
	}
	rest = strings.TrimSpace(rest)
	if len(rest) < 2 || rest[0] != '[' || rest[len(rest)-1] != ']' {
		return nil, parseErrorf(SectionDescriptor, ErrDescriptorSyntax, strings.TrimSpace(line))
	}
	return NewDescriptor(id, rest[1:len(rest)-1], cache)
}

// Notation returns the descriptor's source notation.
func (d *Descriptor) Notation() string { return d.expr.Notation() }

// Expression returns the decoded expression.
func (d *Descriptor) Expression() *expr.Expression { return d.expr }

// Inputs returns the distinct input features in first-seen order.
func (d *Descriptor) Inputs() []string { return d.expr.Inputs() }

// Evaluate computes the descriptor for every row of t.
func (d *Descriptor) Evaluate(t expr.Table) ([]float64, error) {
	return d.expr.Evaluate(t)
}

// Fingerprint hashes the canonical rendering of the expression tree, so
// notations differing only in redundant parentheses share a fingerprint.
func (d *Descriptor) Fingerprint() uint64 {
	return xxhash.Sum64String(expr.Format(d.expr.Root()))
}

// FingerprintHex is Fingerprint as 16 zero-padded hex digits, the form
// stored and printed by the CLI.
func (d *Descriptor) FingerprintHex() string {
	return fmt.Sprintf("%016x", d.Fingerprint())
}

func (d *Descriptor) String() string { return d.Notation() }
