package expr

import (
	"strings"
	"unicode/utf8"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokNumber
	tokString
	tokIdent
	tokLParen
	tokRParen
	tokPlus
	tokMinus
	tokCmp
)

type token struct {
	typ  tokenType
	text string // identifier, operator or raw number text; decoded string contents
	pos  int
}

func (t token) describe() string {
	switch t.typ {
	case tokEOF:
		return "end of expression"
	case tokString:
		return "string literal"
	default:
		return "\"" + t.text + "\""
	}
}

// lexer splits an expression into tokens. It works on bytes; identifiers
// and operators are ASCII, and string literals pass other bytes through.
type lexer struct {
	src string
	pos int
}

func (l *lexer) peekByte(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.src) {
		return token{typ: tokEOF, pos: start}, nil
	}

	c := l.src[l.pos]
	switch {
	case c == '(':
		l.pos++
		return token{typ: tokLParen, text: "(", pos: start}, nil
	case c == ')':
		l.pos++
		return token{typ: tokRParen, text: ")", pos: start}, nil
	case c == '+':
		l.pos++
		return token{typ: tokPlus, text: "+", pos: start}, nil
	case c == '-':
		l.pos++
		return token{typ: tokMinus, text: "-", pos: start}, nil
	case c == '<' || c == '>':
		l.pos++
		if l.peekByte(0) == '=' {
			l.pos++
		}
		return token{typ: tokCmp, text: l.src[start:l.pos], pos: start}, nil
	case c == '=' || c == '!':
		if l.peekByte(1) != '=' {
			return token{}, syntaxError(l.src, start, "unexpected %q", string(c))
		}
		l.pos += 2
		return token{typ: tokCmp, text: l.src[start:l.pos], pos: start}, nil
	case c == '"' || c == '\'':
		return l.lexString(c)
	case isDigit(c) || (c == '.' && isDigit(l.peekByte(1))):
		return l.lexNumber()
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		return token{typ: tokIdent, text: l.src[start:l.pos], pos: start}, nil
	default:
		r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
		return token{}, syntaxError(l.src, start, "unexpected %q", string(r))
	}
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	for isDigit(l.peekByte(0)) {
		l.pos++
	}
	if l.peekByte(0) == '.' {
		l.pos++
		for isDigit(l.peekByte(0)) {
			l.pos++
		}
	}
	if c := l.peekByte(0); c == 'e' || c == 'E' {
		l.pos++
		if c := l.peekByte(0); c == '+' || c == '-' {
			l.pos++
		}
		if !isDigit(l.peekByte(0)) {
			return token{}, syntaxError(l.src, start, "malformed number %q", l.src[start:l.pos])
		}
		for isDigit(l.peekByte(0)) {
			l.pos++
		}
	}
	if isIdentPart(l.peekByte(0)) {
		return token{}, syntaxError(l.src, l.pos, "unexpected %q after number", string(l.src[l.pos]))
	}
	return token{typ: tokNumber, text: l.src[start:l.pos], pos: start}, nil
}

func (l *lexer) lexString(quote byte) (token, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case quote:
			l.pos++
			return token{typ: tokString, text: sb.String(), pos: start}, nil
		case '\\':
			l.pos++
			switch l.peekByte(0) {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\', '"', '\'':
				sb.WriteByte(l.src[l.pos])
			default:
				return token{}, syntaxError(l.src, l.pos-1, "unknown escape sequence")
			}
			l.pos++
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return token{}, syntaxError(l.src, start, "unterminated string literal")
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
