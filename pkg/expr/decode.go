// Package expr decodes SISSO descriptor notation into expression trees and
// evaluates them over named numeric columns.
package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapsisso/pkg/token"
)

// Occurrence is one appearance of a feature name in a notation.
type Occurrence struct {
	Name string
	Span token.Span
}

// Expression is a decoded notation. It is immutable and safe for concurrent use.
type Expression struct {
	notation    string
	root        Node
	occurrences []Occurrence
	inputs      []string
}

// Notation returns the source notation.
func (e *Expression) Notation() string { return e.notation }

// Root returns the expression tree.
func (e *Expression) Root() Node { return e.root }

// Occurrences returns every feature reference in textual order, duplicates included.
func (e *Expression) Occurrences() []Occurrence {
	return append([]Occurrence(nil), e.occurrences...)
}

// Inputs returns the distinct feature names in first-seen order.
func (e *Expression) Inputs() []string {
	return append([]string(nil), e.inputs...)
}

func (e *Expression) String() string { return e.notation }

// Substitute rebuilds the notation with every feature occurrence replaced by
// fn(name), leaving all operator text untouched.
func (e *Expression) Substitute(fn func(name string) string) string {
	var b strings.Builder
	last := 0
	for _, occ := range e.occurrences {
		b.WriteString(e.notation[last:occ.Span.Start])
		b.WriteString(fn(occ.Name))
		last = occ.Span.End
	}
	b.WriteString(e.notation[last:])
	return b.String()
}

// Decoder turns notations into expressions.
type Decoder struct {
	// NumericLiterals decodes feature runs that parse as numbers into
	// Literal nodes instead of column references.
	NumericLiterals bool
}

// Decode decodes a notation with the default Decoder.
func Decode(notation string) (*Expression, error) {
	return Decoder{}.Decode(notation)
}

// Decode decodes a notation into an Expression.
func (d Decoder) Decode(notation string) (*Expression, error) {
	if notation == "" {
		return nil, &DecodeError{Notation: notation, Message: ErrEmptyNotation}
	}

	s := newScanner(notation)
	if !s.marked[0] {
		return nil, &DecodeError{Notation: notation, Offset: 0, Message: ErrUnwrappedStart}
	}
	if !s.marked[len(notation)-1] {
		return nil, &DecodeError{Notation: notation, Offset: len(notation) - 1, Message: ErrUnwrappedEnd}
	}

	p := &parser{notation: notation, toks: s.tokens(), numeric: d.NumericLiterals}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type != token.EOF {
		return nil, p.errorf(tok, ErrTrailingInput, describe(tok))
	}

	e := &Expression{notation: notation, root: root, occurrences: p.occurrences}
	seen := make(map[string]struct{}, len(p.occurrences))
	for _, occ := range p.occurrences {
		if _, dup := seen[occ.Name]; dup {
			continue
		}
		seen[occ.Name] = struct{}{}
		e.inputs = append(e.inputs, occ.Name)
	}
	if len(e.inputs) == 0 {
		return nil, &DecodeError{Notation: notation, Message: ErrNoFeature}
	}
	return e, nil
}

// MustDecode is like Decode but panics on error. It is intended for tests and
// package-level fixtures.
func MustDecode(notation string) *Expression {
	e, err := Decode(notation)
	if err != nil {
		panic(err)
	}
	return e
}

// parser is a recursive-descent parser over the scanned tokens:
//
//	expr    := term { ("+" | "-") term }
//	term    := unary { ("*" | "/") unary }
//	unary   := ("-" | "+") unary | primary
//	primary := FEATURE | "(" expr closer | FUNC expr closer | "exp(-" expr closer
//	closer  := ")" | ")^n"
//
// The argument of "exp(-" is parsed with its first operand negated.
type parser struct {
	notation    string
	toks        []token.Token
	pos         int
	numeric     bool
	occurrences []Occurrence
}

func (p *parser) peek() token.Token {
	return p.toks[p.pos]
}

func (p *parser) next() token.Token {
	tok := p.toks[p.pos]
	if tok.Type != token.EOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok token.Token, format string, args ...any) error {
	return &DecodeError{Notation: p.notation, Offset: tok.Span.Start, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) parseExpr() (Node, error) {
	return p.parseExprNeg(false)
}

func (p *parser) parseExprNeg(negateFirst bool) (Node, error) {
	left, err := p.parseTerm(negateFirst)
	if err != nil {
		return nil, err
	}
	for {
		var kind BinaryKind
		switch p.peek().Type {
		case token.PLUS:
			kind = Add
		case token.MINUS:
			kind = Sub
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseTerm(false)
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Kind: kind, Left: left, Right: right}
	}
}

func (p *parser) parseTerm(negateFirst bool) (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if negateFirst {
		left = &UnaryOp{Kind: Neg, Operand: left}
	}
	for {
		var kind BinaryKind
		switch p.peek().Type {
		case token.STAR:
			kind = Mul
		case token.SLASH:
			kind = Div
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Kind: kind, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (Node, error) {
	switch p.peek().Type {
	case token.MINUS:
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Kind: Neg, Operand: operand}, nil
	case token.PLUS:
		p.next()
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.next()
	switch tok.Type {
	case token.FEATURE:
		return p.feature(tok), nil
	case token.LPAREN:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return p.close(tok, inner)
	case token.FUNC:
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return p.close(tok, &UnaryOp{Kind: funcKinds[tok.Op.Func], Operand: arg})
	case token.EXPNEG:
		arg, err := p.parseExprNeg(true)
		if err != nil {
			return nil, err
		}
		return p.close(tok, &UnaryOp{Kind: Exp, Operand: arg})
	}
	return nil, p.errorf(tok, ErrUnexpectedToken, describe(tok), "feature or opening parenthesis")
}

// close consumes the closer of the group opened by open and applies a
// trailing power to the group, if any.
func (p *parser) close(open token.Token, n Node) (Node, error) {
	tok := p.next()
	switch tok.Type {
	case token.RPAREN:
		return n, nil
	case token.POW:
		return &Power{Operand: n, Exponent: tok.Op.Exp}, nil
	case token.EOF:
		return nil, p.errorf(tok, ErrUnbalanced, open.Span.Start)
	}
	return nil, p.errorf(tok, ErrUnexpectedToken, describe(tok), "closing parenthesis")
}

func (p *parser) feature(tok token.Token) Node {
	if p.numeric {
		if v, err := strconv.ParseFloat(tok.Literal, 64); err == nil {
			return &Literal{Value: v}
		}
	}
	p.occurrences = append(p.occurrences, Occurrence{Name: tok.Literal, Span: tok.Span})
	return &ColumnRef{Name: tok.Literal, Span: tok.Span}
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of notation"
	case token.FEATURE:
		return fmt.Sprintf("feature %q", tok.Literal)
	}
	return fmt.Sprintf("%q", tok.Literal)
}
