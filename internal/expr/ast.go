package expr

import (
	"slices"

	"github.com/roach88/statefuzz/internal/ir"
)

// Node is an expression AST node.
//
// This is a sealed interface - only types in this package implement it,
// so interpreters can switch over it exhaustively:
//
//	switch n := node.(type) {
//	case *Literal:
//	case *Identifier:
//	case *BinaryOp:
//	case *Compare:
//	case *BoolOp:
//	}
type Node interface {
	exprNode() // Marker method - seals interface to this package
}

// Literal is a constant number, string, boolean or None.
type Literal struct {
	Value ir.IRValue
}

func (*Literal) exprNode() {}

// Identifier names a variable resolved against the evaluation scope.
type Identifier struct {
	Name string
}

func (*Identifier) exprNode() {}

// ArithOp is a binary arithmetic operator.
type ArithOp string

const (
	OpAdd ArithOp = "+"
	OpSub ArithOp = "-"
)

// BinaryOp is Left <Op> Right arithmetic.
type BinaryOp struct {
	Op    ArithOp
	Left  Node
	Right Node
}

func (*BinaryOp) exprNode() {}

// CmpOp is a comparison operator.
type CmpOp string

const (
	CmpGT CmpOp = ">"
	CmpLT CmpOp = "<"
	CmpGE CmpOp = ">="
	CmpLE CmpOp = "<="
	CmpEQ CmpOp = "=="
	CmpNE CmpOp = "!="
)

// Compare is a possibly chained comparison:
//
//	Left Ops[0] Comparators[0] Ops[1] Comparators[1] ...
//
// len(Ops) == len(Comparators) >= 1.
type Compare struct {
	Left        Node
	Ops         []CmpOp
	Comparators []Node
}

func (*Compare) exprNode() {}

// LogicOp is a boolean connective.
type LogicOp string

const (
	LogicAnd LogicOp = "and"
	LogicOr  LogicOp = "or"
)

// BoolOp joins two or more operands with the same connective.
type BoolOp struct {
	Op     LogicOp
	Values []Node
}

func (*BoolOp) exprNode() {}

// Identifiers returns the distinct variable names referenced by n, sorted.
func Identifiers(n Node) []string {
	seen := map[string]bool{}
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case *Identifier:
			seen[n.Name] = true
		case *BinaryOp:
			walk(n.Left)
			walk(n.Right)
		case *Compare:
			walk(n.Left)
			for _, c := range n.Comparators {
				walk(c)
			}
		case *BoolOp:
			for _, v := range n.Values {
				walk(v)
			}
		}
	}
	walk(n)

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
