// Package token defines the lexical vocabulary of the descriptor notation.
//
// The notation is produced by the SISSO solver and its spelling is a fixed
// contract: the operator catalog below must be matched exactly, in order.
package token

import "fmt"

// TokenType represents the type of a notation token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

//nolint:revive // ALL_CAPS names follow the lexer convention
const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// FEATURE is a run of non-operator characters naming an input column.
	FEATURE

	// Binary operators
	PLUS  // +
	MINUS // -
	STAR  // *
	SLASH // /

	// Grouping
	LPAREN // (
	RPAREN // )

	// FUNC opens a unary function call, e.g. "sqrt(".
	FUNC
	// EXPNEG opens exp of a negated argument: "exp(-".
	EXPNEG
	// POW closes a group and raises it to an integer power, e.g. ")^2".
	POW
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",
	FEATURE: "FEATURE",
	PLUS:    "+",
	MINUS:   "-",
	STAR:    "*",
	SLASH:   "/",
	LPAREN:  "(",
	RPAREN:  ")",
	FUNC:    "FUNC",
	EXPNEG:  "exp(-",
	POW:     "POW",
}

// Operator is one entry of the operator catalog.
type Operator struct {
	Text string    // literal spelling in the notation
	Type TokenType // token emitted for the spelling
	Func string    // function name for FUNC and EXPNEG
	Exp  int       // exponent for POW
}

// Catalog is the ordered list of recognized operator and delimiter spellings.
// Overlapping spellings appear longest-first: "exp(-" before "exp(", and the
// power closers before the bare ")".
var Catalog = []Operator{
	{Text: "exp(-", Type: EXPNEG, Func: "exp"},
	{Text: "exp(", Type: FUNC, Func: "exp"},
	{Text: "sin(", Type: FUNC, Func: "sin"},
	{Text: "cos(", Type: FUNC, Func: "cos"},
	{Text: "sqrt(", Type: FUNC, Func: "sqrt"},
	{Text: "cbrt(", Type: FUNC, Func: "cbrt"},
	{Text: "log(", Type: FUNC, Func: "log"},
	{Text: "abs(", Type: FUNC, Func: "abs"},
	{Text: "scd(", Type: FUNC, Func: "scd"},
	{Text: ")^-1", Type: POW, Exp: -1},
	{Text: ")^2", Type: POW, Exp: 2},
	{Text: ")^3", Type: POW, Exp: 3},
	{Text: ")^6", Type: POW, Exp: 6},
	{Text: "+", Type: PLUS},
	{Text: "-", Type: MINUS},
	{Text: "*", Type: STAR},
	{Text: "/", Type: SLASH},
	{Text: "(", Type: LPAREN},
	{Text: ")", Type: RPAREN},
}

// Token is a lexical token of a notation string.
type Token struct {
	Type    TokenType
	Literal string
	Span    Span
	Op      *Operator // catalog entry; nil for FEATURE and EOF
}

// IsCloser reports whether the token closes a group.
func (t Token) IsCloser() bool {
	return t.Type == RPAREN || t.Type == POW
}

// IsOpener reports whether the token opens a group.
func (t Token) IsOpener() bool {
	return t.Type == LPAREN || t.Type == FUNC || t.Type == EXPNEG
}

// FuncSpelling returns the opener spelling for a function name, e.g. "sqrt(".
func FuncSpelling(name string) string {
	return name + "("
}

// PowSpelling returns the closer spelling for an exponent, e.g. ")^2".
func PowSpelling(exp int) string {
	return fmt.Sprintf(")^%d", exp)
}

// LookupPow returns the catalog closer for an exponent.
func LookupPow(exp int) (Operator, bool) {
	for _, op := range Catalog {
		if op.Type == POW && op.Exp == exp {
			return op, true
		}
	}
	return Operator{}, false
}

// LookupFunc returns the catalog opener for a function name.
func LookupFunc(name string) (Operator, bool) {
	for _, op := range Catalog {
		if op.Type == FUNC && op.Func == name {
			return op, true
		}
	}
	return Operator{}, false
}
