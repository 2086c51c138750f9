package expr

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapsisso/pkg/token"
)

// Format renders a tree as notation that decodes back to an equivalent tree.
// Binary operations are always parenthesized.
func Format(n Node) string {
	var b strings.Builder
	writeNode(&b, n)
	s := b.String()
	if s == "" {
		return s
	}
	// Decoding requires operator text at both ends.
	m := Mask(s)
	if m[0] != Marker || m[len(m)-1] != Marker {
		return "(" + s + ")"
	}
	return s
}

func writeNode(b *strings.Builder, n Node) {
	switch v := n.(type) {
	case *ColumnRef:
		b.WriteString(v.Name)
	case *Literal:
		b.WriteString(strconv.FormatFloat(v.Value, 'g', -1, 64))
	case *BinaryOp:
		b.WriteByte('(')
		writeBinary(b, v)
		b.WriteByte(')')
	case *UnaryOp:
		writeUnary(b, v)
	case *Power:
		b.WriteByte('(')
		writeGroupBody(b, v.Operand)
		b.WriteString(token.PowSpelling(v.Exponent))
	}
}

func writeBinary(b *strings.Builder, v *BinaryOp) {
	writeNode(b, v.Left)
	b.WriteString(v.Kind.String())
	writeNode(b, v.Right)
}

// writeGroupBody writes n as the content of an enclosing group, dropping the
// redundant parentheses of a binary operation.
func writeGroupBody(b *strings.Builder, n Node) {
	if bin, ok := n.(*BinaryOp); ok {
		writeBinary(b, bin)
		return
	}
	writeNode(b, n)
}

func writeUnary(b *strings.Builder, v *UnaryOp) {
	switch {
	case v.Kind == Neg:
		b.WriteByte('-')
		writeNode(b, v.Operand)
	case v.Kind == Exp:
		if neg, ok := v.Operand.(*UnaryOp); ok && neg.Kind == Neg {
			b.WriteString("exp(-")
			writeNode(b, neg.Operand)
			b.WriteByte(')')
			return
		}
		fallthrough
	default:
		b.WriteString(token.FuncSpelling(v.Kind.String()))
		writeGroupBody(b, v.Operand)
		b.WriteByte(')')
	}
}
