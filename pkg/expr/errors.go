package expr

import "fmt"

// DecodeError reports a malformed descriptor notation.
type DecodeError struct {
	Notation string
	Offset   int
	Message  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error in %q at offset %d: %s", e.Notation, e.Offset, e.Message)
}

// MissingColumnError reports a referenced input column absent from a table.
type MissingColumnError struct {
	Name string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q", e.Name)
}

// EvalError wraps a failure evaluating one notation.
type EvalError struct {
	Notation string
	Err      error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluate %q: %v", e.Notation, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// Common error messages
const (
	ErrEmptyNotation     = "empty notation"
	ErrUnwrappedStart    = "notation must start with an operator or parenthesis"
	ErrUnwrappedEnd      = "notation must end with an operator or parenthesis"
	ErrNoFeature         = "notation references no input feature"
	ErrUnexpectedToken   = "unexpected token %s, expected %s"
	ErrUnbalanced        = "unbalanced group opened at offset %d"
	ErrTrailingInput     = "unexpected %s after complete expression"
	ErrColumnLength      = "column %q has %d rows, table has %d"
	ErrDuplicateColumn   = "duplicate column %q"
	ErrUnsupportedNode   = "unsupported node %T"
	ErrUnsupportedUnary  = "unsupported unary operator %s"
	ErrUnsupportedBinary = "unsupported binary operator %s"
)
