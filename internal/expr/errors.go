package expr

import (
	"errors"
	"fmt"
)

// ErrUnsupportedExpression matches every *UnsupportedExpressionError via
// errors.Is.
var ErrUnsupportedExpression = errors.New("unsupported expression")

// Error kinds.
const (
	KindSyntax = "syntax" // construct outside the grammar
	KindType   = "type"   // operator applied to operands it does not support
	KindRange  = "range"  // integer overflow or malformed number
)

// UnsupportedExpressionError reports an expression that cannot be parsed or
// evaluated. It is fatal for an exploration run.
type UnsupportedExpressionError struct {
	Expr   string // source text
	Pos    int    // byte offset into Expr, -1 when not tied to a position
	Kind   string
	Reason string
}

func (e *UnsupportedExpressionError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("unsupported expression %q: %s at offset %d", e.Expr, e.Reason, e.Pos)
	}
	return fmt.Sprintf("unsupported expression %q: %s", e.Expr, e.Reason)
}

// Is lets errors.Is(err, ErrUnsupportedExpression) match.
func (e *UnsupportedExpressionError) Is(target error) bool {
	return target == ErrUnsupportedExpression
}

// IsUnsupportedExpression reports whether err is (or wraps) an
// UnsupportedExpressionError.
func IsUnsupportedExpression(err error) bool {
	var e *UnsupportedExpressionError
	return errors.As(err, &e)
}

func syntaxError(src string, pos int, format string, args ...any) *UnsupportedExpressionError {
	return &UnsupportedExpressionError{
		Expr:   src,
		Pos:    pos,
		Kind:   KindSyntax,
		Reason: fmt.Sprintf(format, args...),
	}
}
