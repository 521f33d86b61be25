package expr

import (
	"strconv"
	"strings"

	"github.com/roach88/statefuzz/internal/ir"
)

// keywords that belong to richer expression languages. They are rejected
// with a clearer message than "unexpected identifier".
var reservedWords = map[string]bool{
	"not": true, "in": true, "is": true, "if": true, "else": true,
	"lambda": true, "for": true, "import": true,
}

// Parse parses src into an AST.
func Parse(src string) (Node, error) {
	p := &parser{lex: lexer{src: src}, src: src}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.typ == tokEOF {
		return nil, syntaxError(src, 0, "empty expression")
	}

	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.typ != tokEOF {
		return nil, syntaxError(src, p.cur.pos, "unexpected %s", p.cur.describe())
	}
	return node, nil
}

type parser struct {
	lex lexer
	src string
	cur token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *parser) isKeyword(word string) bool {
	return p.cur.typ == tokIdent && p.cur.text == word
}

func (p *parser) parseOr() (Node, error) {
	return p.parseBoolOp(LogicOr, p.parseAnd)
}

func (p *parser) parseAnd() (Node, error) {
	return p.parseBoolOp(LogicAnd, p.parseCompare)
}

// parseBoolOp flattens "a op b op c" into a single BoolOp with three values.
func (p *parser) parseBoolOp(op LogicOp, operand func() (Node, error)) (Node, error) {
	first, err := operand()
	if err != nil {
		return nil, err
	}
	if !p.isKeyword(string(op)) {
		return first, nil
	}

	values := []Node{first}
	for p.isKeyword(string(op)) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		next, err := operand()
		if err != nil {
			return nil, err
		}
		values = append(values, next)
	}
	return &BoolOp{Op: op, Values: values}, nil
}

func (p *parser) parseCompare() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.cur.typ != tokCmp {
		return left, nil
	}

	cmp := &Compare{Left: left}
	for p.cur.typ == tokCmp {
		cmp.Ops = append(cmp.Ops, CmpOp(p.cur.text))
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		cmp.Comparators = append(cmp.Comparators, right)
	}
	return cmp, nil
}

func (p *parser) parseAdditive() (Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur.typ == tokPlus || p.cur.typ == tokMinus {
		op := ArithOp(p.cur.text)
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.cur
	switch tok.typ {
	case tokNumber:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.numberLiteral(tok.text, tok.pos)

	case tokMinus:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.typ != tokNumber {
			return nil, syntaxError(p.src, tok.pos, "unary minus is only supported on number literals")
		}
		num := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.numberLiteral("-"+num.text, tok.pos)

	case tokString:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: ir.IRString(tok.text)}, nil

	case tokIdent:
		return p.parseName(tok)

	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.typ != tokRParen {
			return nil, syntaxError(p.src, p.cur.pos, "expected \")\", found %s", p.cur.describe())
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil

	default:
		return nil, syntaxError(p.src, tok.pos, "unexpected %s", tok.describe())
	}
}

func (p *parser) parseName(tok token) (Node, error) {
	switch tok.text {
	case "and", "or":
		return nil, syntaxError(p.src, tok.pos, "missing operand before %q", tok.text)
	}
	if reservedWords[tok.text] {
		return nil, syntaxError(p.src, tok.pos, "%q is not supported", tok.text)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch tok.text {
	case "True", "true":
		return &Literal{Value: ir.IRBool(true)}, nil
	case "False", "false":
		return &Literal{Value: ir.IRBool(false)}, nil
	case "None", "null":
		return &Literal{Value: ir.IRNull{}}, nil
	}
	if p.cur.typ == tokLParen {
		return nil, syntaxError(p.src, p.cur.pos, "function calls are not supported")
	}
	return &Identifier{Name: tok.text}, nil
}

func (p *parser) numberLiteral(text string, pos int) (Node, error) {
	if !strings.ContainsAny(text, ".eE") {
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, &UnsupportedExpressionError{Expr: p.src, Pos: pos, Kind: KindRange, Reason: "integer literal out of range"}
		}
		return &Literal{Value: ir.IRInt(n)}, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, &UnsupportedExpressionError{Expr: p.src, Pos: pos, Kind: KindRange, Reason: "float literal out of range"}
	}
	return &Literal{Value: ir.IRFloat(f)}, nil
}
