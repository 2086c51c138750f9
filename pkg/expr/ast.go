package expr

import "github.com/leapstack-labs/leapsisso/pkg/token"

// Node is a decoded expression tree node.
type Node interface {
	exprNode()
}

// UnaryKind identifies a unary operator.
type UnaryKind int

// Unary operators
const (
	Neg UnaryKind = iota
	Sin
	Cos
	Exp
	Log
	Sqrt
	Cbrt
	Abs
	Cauchy
)

var unaryNames = [...]string{
	Neg:    "-",
	Sin:    "sin",
	Cos:    "cos",
	Exp:    "exp",
	Log:    "log",
	Sqrt:   "sqrt",
	Cbrt:   "cbrt",
	Abs:    "abs",
	Cauchy: "scd",
}

func (k UnaryKind) String() string {
	if k >= 0 && int(k) < len(unaryNames) {
		return unaryNames[k]
	}
	return "unary?"
}

// funcKinds maps catalog function names to unary kinds.
var funcKinds = map[string]UnaryKind{
	"sin":  Sin,
	"cos":  Cos,
	"exp":  Exp,
	"log":  Log,
	"sqrt": Sqrt,
	"cbrt": Cbrt,
	"abs":  Abs,
	"scd":  Cauchy,
}

// BinaryKind identifies a binary arithmetic operator.
type BinaryKind int

// Binary operators
const (
	Add BinaryKind = iota
	Sub
	Mul
	Div
)

var binarySymbols = [...]string{Add: "+", Sub: "-", Mul: "*", Div: "/"}

func (k BinaryKind) String() string {
	if k >= 0 && int(k) < len(binarySymbols) {
		return binarySymbols[k]
	}
	return "binary?"
}

// ColumnRef reads a named input column.
type ColumnRef struct {
	Name string
	Span token.Span // location in the source notation; zero for built trees
}

// UnaryOp applies a function or negation to its operand.
type UnaryOp struct {
	Kind    UnaryKind
	Operand Node
}

// BinaryOp combines two operands element-wise.
type BinaryOp struct {
	Kind  BinaryKind
	Left  Node
	Right Node
}

// Power raises its operand to an integer exponent.
type Power struct {
	Operand  Node
	Exponent int
}

// Literal is a numeric constant.
type Literal struct {
	Value float64
}

func (*ColumnRef) exprNode() {}
func (*UnaryOp) exprNode()   {}
func (*BinaryOp) exprNode()  {}
func (*Power) exprNode()     {}
func (*Literal) exprNode()   {}

// Walk calls fn for n and every node below it, depth-first, left to right.
// Returning false from fn skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch v := n.(type) {
	case *UnaryOp:
		Walk(v.Operand, fn)
	case *BinaryOp:
		Walk(v.Left, fn)
		Walk(v.Right, fn)
	case *Power:
		Walk(v.Operand, fn)
	}
}

// Columns returns the distinct column names referenced by n in first-seen order.
func Columns(n Node) []string {
	var names []string
	seen := make(map[string]struct{})
	Walk(n, func(n Node) bool {
		if ref, ok := n.(*ColumnRef); ok {
			if _, dup := seen[ref.Name]; !dup {
				seen[ref.Name] = struct{}{}
				names = append(names, ref.Name)
			}
		}
		return true
	})
	return names
}
