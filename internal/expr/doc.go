// Package expr implements the restricted expression language used by model
// preconditions, update guards and invariants.
//
// Expressions are parsed by a hand-written recursive-descent parser into a
// sealed AST (Literal, Identifier, BinaryOp, Compare, BoolOp) and
// interpreted by walking the tree. Nothing is ever handed to a host
// evaluator.
//
// Grammar, lowest precedence first:
//
//	expr     := or
//	or       := and ( "or" and )*
//	and      := compare ( "and" compare )*
//	compare  := additive ( cmpop additive )*
//	additive := primary ( ("+" | "-") primary )*
//	primary  := NUMBER | "-" NUMBER | STRING | BOOL | NONE | IDENT | "(" expr ")"
//	cmpop    := ">" | "<" | ">=" | "<=" | "==" | "!="
//
// Comparisons chain: "0 <= x <= 100" means "0 <= x and x <= 100", with x
// evaluated once. "and" and "or" evaluate every operand and always yield a
// boolean.
//
// Identifiers missing from scope evaluate to ir.IRNull. IRNull counts as
// zero in arithmetic and numeric comparisons and as false in boolean
// context, so an uninitialised counter behaves like 0.
//
// Anything outside the grammar fails with an *UnsupportedExpressionError.
// Callers treat that error as fatal: a malformed model must not be
// explored.
package expr
