package expr

import (
	"fmt"
	"math"

	"github.com/roach88/statefuzz/internal/ir"
)

// Expr is a parsed expression together with its source text.
type Expr struct {
	Source string
	Root   Node
}

// Compile parses src once for repeated evaluation.
func Compile(src string) (*Expr, error) {
	root, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return &Expr{Source: src, Root: root}, nil
}

// MustCompile is like Compile but panics on error.
// Use only in tests or for expressions known to be valid.
func MustCompile(src string) *Expr {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

// Eval evaluates the expression against scope.
func (e *Expr) Eval(scope ir.IRObject) (ir.IRValue, error) {
	v, err := Eval(e.Root, scope)
	if err != nil {
		return nil, withSource(err, e.Source)
	}
	return v, nil
}

// Truth evaluates the expression and reduces the result to a boolean.
func (e *Expr) Truth(scope ir.IRObject) (bool, error) {
	v, err := e.Eval(scope)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// Identifiers returns the variables the expression reads.
func (e *Expr) Identifiers() []string {
	return Identifiers(e.Root)
}

// Evaluate parses and evaluates src in one step.
func Evaluate(src string, scope ir.IRObject) (ir.IRValue, error) {
	e, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return e.Eval(scope)
}

// Eval walks node against scope. Errors carry no source text; Expr.Eval
// fills it in.
func Eval(node Node, scope ir.IRObject) (ir.IRValue, error) {
	switch n := node.(type) {
	case *Literal:
		return n.Value, nil

	case *Identifier:
		if v, ok := scope[n.Name]; ok && v != nil {
			return v, nil
		}
		return ir.IRNull{}, nil

	case *BinaryOp:
		left, err := Eval(n.Left, scope)
		if err != nil {
			return nil, err
		}
		right, err := Eval(n.Right, scope)
		if err != nil {
			return nil, err
		}
		return Arith(n.Op, left, right)

	case *Compare:
		return evalCompare(n, scope)

	case *BoolOp:
		result := n.Op == LogicAnd
		for _, operand := range n.Values {
			v, err := Eval(operand, scope)
			if err != nil {
				return nil, err
			}
			if n.Op == LogicAnd {
				result = result && Truthy(v)
			} else {
				result = result || Truthy(v)
			}
		}
		return ir.IRBool(result), nil

	default:
		return nil, &UnsupportedExpressionError{Pos: -1, Kind: KindSyntax, Reason: fmt.Sprintf("unknown node %T", node)}
	}
}

func evalCompare(n *Compare, scope ir.IRObject) (ir.IRValue, error) {
	operands := make([]ir.IRValue, 0, len(n.Comparators)+1)
	left, err := Eval(n.Left, scope)
	if err != nil {
		return nil, err
	}
	operands = append(operands, left)
	for _, c := range n.Comparators {
		v, err := Eval(c, scope)
		if err != nil {
			return nil, err
		}
		operands = append(operands, v)
	}

	result := true
	for i, op := range n.Ops {
		if !compare(op, operands[i], operands[i+1]) {
			result = false
		}
	}
	return ir.IRBool(result), nil
}

// Truthy reduces a value to a boolean: absent, false, zero, "" and empty
// collections are false.
func Truthy(v ir.IRValue) bool {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return false
	case ir.IRBool:
		return bool(val)
	case ir.IRInt:
		return val != 0
	case ir.IRFloat:
		return val != 0
	case ir.IRString:
		return val != ""
	case ir.IRArray:
		return len(val) > 0
	case ir.IRObject:
		return len(val) > 0
	default:
		return false
	}
}

// number is a numeric view of a value. Bool counts as 0/1, absent as 0.
type number struct {
	i       int64
	f       float64
	isFloat bool
}

func (n number) float() float64 {
	if n.isFloat {
		return n.f
	}
	return float64(n.i)
}

func asNumber(v ir.IRValue) (number, bool) {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return number{}, true
	case ir.IRInt:
		return number{i: int64(val)}, true
	case ir.IRFloat:
		return number{f: float64(val), isFloat: true}, true
	case ir.IRBool:
		if val {
			return number{i: 1}, true
		}
		return number{}, true
	default:
		return number{}, false
	}
}

// Arith applies + or - using expression semantics: ints stay ints, any
// float operand yields a float, bools count as 0/1, absent as 0, and two
// strings concatenate under +. Update directives share these rules.
func Arith(op ArithOp, left, right ir.IRValue) (ir.IRValue, error) {
	if ls, ok := left.(ir.IRString); ok {
		if rs, ok := right.(ir.IRString); ok && op == OpAdd {
			return ls + rs, nil
		}
	}

	ln, lok := asNumber(left)
	rn, rok := asNumber(right)
	if !lok || !rok {
		return nil, &UnsupportedExpressionError{
			Pos:    -1,
			Kind:   KindType,
			Reason: fmt.Sprintf("operator %q not supported between %s and %s", op, ir.TypeName(left), ir.TypeName(right)),
		}
	}

	if ln.isFloat || rn.isFloat {
		if op == OpAdd {
			return ir.IRFloat(ln.float() + rn.float()), nil
		}
		return ir.IRFloat(ln.float() - rn.float()), nil
	}

	var (
		sum      int64
		overflow bool
	)
	if op == OpAdd {
		sum = ln.i + rn.i
		overflow = (rn.i > 0 && sum < ln.i) || (rn.i < 0 && sum > ln.i)
	} else {
		sum = ln.i - rn.i
		overflow = (rn.i > 0 && sum > ln.i) || (rn.i < 0 && sum < ln.i)
	}
	if overflow {
		return nil, &UnsupportedExpressionError{Pos: -1, Kind: KindRange, Reason: "integer overflow"}
	}
	return ir.IRInt(sum), nil
}

// compare applies a single comparison. Numbers (with bools and absent
// values) compare numerically, strings lexically. Equality across other
// kind pairs falls back to structural equality; ordering them is false.
func compare(op CmpOp, left, right ir.IRValue) bool {
	c, ok := order(left, right)
	switch op {
	case CmpEQ:
		if ok {
			return c == 0
		}
		return ir.Equal(left, right)
	case CmpNE:
		if ok {
			return c != 0
		}
		return !ir.Equal(left, right)
	}
	if !ok {
		return false
	}
	switch op {
	case CmpLT:
		return c < 0
	case CmpLE:
		return c <= 0
	case CmpGT:
		return c > 0
	case CmpGE:
		return c >= 0
	}
	return false
}

// order returns -1, 0 or 1 when left and right are mutually ordered.
func order(left, right ir.IRValue) (int, bool) {
	if ls, ok := left.(ir.IRString); ok {
		rs, ok := right.(ir.IRString)
		if !ok {
			return 0, false
		}
		switch {
		case ls < rs:
			return -1, true
		case ls > rs:
			return 1, true
		}
		return 0, true
	}

	ln, lok := asNumber(left)
	rn, rok := asNumber(right)
	if !lok || !rok {
		return 0, false
	}
	if !ln.isFloat && !rn.isFloat {
		switch {
		case ln.i < rn.i:
			return -1, true
		case ln.i > rn.i:
			return 1, true
		}
		return 0, true
	}
	lf, rf := ln.float(), rn.float()
	if math.IsNaN(lf) || math.IsNaN(rf) {
		return 0, false
	}
	switch {
	case lf < rf:
		return -1, true
	case lf > rf:
		return 1, true
	}
	return 0, true
}

func withSource(err error, src string) error {
	if e, ok := err.(*UnsupportedExpressionError); ok && e.Expr == "" {
		cp := *e
		cp.Expr = src
		return &cp
	}
	return err
}
