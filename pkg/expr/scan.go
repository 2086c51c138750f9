package expr

import (
	"strings"

	"github.com/leapstack-labs/leapsisso/pkg/token"
)

// Marker is the placeholder character used by Mask.
const Marker = '#'

// scanner splits a notation into tokens by matching the operator catalog
// against the text. Every byte not covered by a catalog spelling belongs to a
// feature name.
type scanner struct {
	src    string
	marked []bool
	starts map[int]*token.Operator
}

func newScanner(src string) *scanner {
	s := &scanner{
		src:    src,
		marked: make([]bool, len(src)),
		starts: make(map[int]*token.Operator),
	}
	for i := range token.Catalog {
		s.markAll(&token.Catalog[i])
	}
	return s
}

// markAll marks every non-overlapping occurrence of op, left to right, that
// lies entirely in unmarked text. Earlier catalog entries win overlaps.
func (s *scanner) markAll(op *token.Operator) {
	n := len(op.Text)
	for i := 0; i+n <= len(s.src); {
		if s.free(i, n) && s.src[i:i+n] == op.Text {
			for j := i; j < i+n; j++ {
				s.marked[j] = true
			}
			s.starts[i] = op
			i += n
			continue
		}
		i++
	}
}

func (s *scanner) free(i, n int) bool {
	for j := i; j < i+n; j++ {
		if s.marked[j] {
			return false
		}
	}
	return true
}

// mask renders the notation with every operator byte replaced by Marker.
func (s *scanner) mask() string {
	var b strings.Builder
	b.Grow(len(s.src))
	for i := range s.src {
		if s.marked[i] {
			b.WriteByte(Marker)
		} else {
			b.WriteByte(s.src[i])
		}
	}
	return b.String()
}

// tokens returns the token stream terminated by EOF.
func (s *scanner) tokens() []token.Token {
	var toks []token.Token
	for i := 0; i < len(s.src); {
		if op, ok := s.starts[i]; ok {
			end := i + len(op.Text)
			toks = append(toks, token.Token{
				Type:    op.Type,
				Literal: op.Text,
				Span:    token.Span{Start: i, End: end},
				Op:      op,
			})
			i = end
			continue
		}
		start := i
		for i < len(s.src) && !s.marked[i] {
			i++
		}
		toks = append(toks, token.Token{
			Type:    token.FEATURE,
			Literal: s.src[start:i],
			Span:    token.Span{Start: start, End: i},
		})
	}
	return append(toks, token.Token{
		Type: token.EOF,
		Span: token.Span{Start: len(s.src), End: len(s.src)},
	})
}

// Mask returns notation with every recognized operator spelling replaced by a
// run of Marker characters of the same length.
func Mask(notation string) string {
	return newScanner(notation).mask()
}
