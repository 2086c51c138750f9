package expr

import "fmt"

// Evaluate computes the expression for every row of t.
func (e *Expression) Evaluate(t Table) ([]float64, error) {
	out, err := Eval(e.root, t)
	if err != nil {
		return nil, &EvalError{Notation: e.notation, Err: err}
	}
	return out, nil
}

// Eval evaluates a tree element-wise over the rows of t. The result is a
// fresh slice; columns of t are never modified.
func Eval(n Node, t Table) ([]float64, error) {
	rows := t.Len()
	switch v := n.(type) {
	case *ColumnRef:
		col, ok := t.Column(v.Name)
		if !ok {
			return nil, &MissingColumnError{Name: v.Name}
		}
		if len(col) != rows {
			return nil, fmt.Errorf(ErrColumnLength, v.Name, len(col), rows)
		}
		return append([]float64(nil), col...), nil

	case *Literal:
		out := make([]float64, rows)
		for i := range out {
			out[i] = v.Value
		}
		return out, nil

	case *UnaryOp:
		fn, ok := unaryFuncs[v.Kind]
		if !ok {
			return nil, fmt.Errorf(ErrUnsupportedUnary, v.Kind)
		}
		out, err := Eval(v.Operand, t)
		if err != nil {
			return nil, err
		}
		for i, x := range out {
			out[i] = fn(x)
		}
		return out, nil

	case *BinaryOp:
		fn, ok := binaryFuncs[v.Kind]
		if !ok {
			return nil, fmt.Errorf(ErrUnsupportedBinary, v.Kind)
		}
		left, err := Eval(v.Left, t)
		if err != nil {
			return nil, err
		}
		right, err := Eval(v.Right, t)
		if err != nil {
			return nil, err
		}
		for i := range left {
			left[i] = fn(left[i], right[i])
		}
		return left, nil

	case *Power:
		out, err := Eval(v.Operand, t)
		if err != nil {
			return nil, err
		}
		for i, x := range out {
			out[i] = pow(x, v.Exponent)
		}
		return out, nil
	}
	return nil, fmt.Errorf(ErrUnsupportedNode, n)
}
