package filter

import (
	"strconv"
	"strings"

	"github.com/kbukum/pmdakit/errors"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// Parse reads the text syntax produced by Render back into an expression.
//
//	expr       = unary { ("AND" | "OR") unary }
//	unary      = "NOT" unary | "(" expr ")" | comparison
//	comparison = path OPERATOR operand [ "IGNORE_CASE" ]
//	operand    = literal | "[" literal { "," literal } "]"
//
// AND and OR cannot be mixed at one level without parentheses.
func Parse(text string) (Expression, error) {
	tokens, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, errors.InvalidFilterSyntax(tok.pos, "unexpected "+describe(tok))
	}
	return expr, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	tok := p.next()
	if tok.kind != kind {
		return tok, errors.InvalidFilterSyntax(tok.pos, "expected "+what+", got "+describe(tok))
	}
	return tok, nil
}

func (p *parser) parseExpr() (Expression, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	if !isKeyword(tok, "AND") && !isKeyword(tok, "OR") {
		return first, nil
	}

	combinator := tok.text
	operands := []Expression{first}
	for {
		tok = p.peek()
		if !isKeyword(tok, "AND") && !isKeyword(tok, "OR") {
			break
		}
		if tok.text != combinator {
			return nil, errors.InvalidFilterSyntax(tok.pos, "cannot mix AND and OR without parentheses")
		}
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		operands = append(operands, operand)
	}
	if combinator == "AND" {
		return And(operands...)
	}
	return Or(operands...)
}

func (p *parser) parseUnary() (Expression, error) {
	tok := p.peek()
	switch {
	case isKeyword(tok, "NOT"):
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not(operand)
	case tok.kind == tokLParen:
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return p.parseComparison()
	}
}

func (p *parser) parseComparison() (Expression, error) {
	pathTok, err := p.expect(tokIdent, "attribute path")
	if err != nil {
		return nil, err
	}
	opTok, err := p.expect(tokIdent, "operator")
	if err != nil {
		return nil, err
	}
	op, err := ParseOperator(opTok.text)
	if err != nil {
		return nil, err
	}

	var value any
	if p.peek().kind == tokLBracket {
		value, err = p.parseList()
	} else {
		value, err = p.parseLiteral()
	}
	if err != nil {
		return nil, err
	}

	var opts []CompareOption
	if isKeyword(p.peek(), ignoreCaseKeyword) {
		p.next()
		opts = append(opts, IgnoreCase())
	}
	return Compare(pathTok.text, op, value, opts...)
}

func (p *parser) parseList() ([]Literal, error) {
	p.next()
	var items []Literal
	if p.peek().kind == tokRBracket {
		p.next()
		return items, nil
	}
	for {
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		items = append(items, lit)
		tok := p.next()
		switch tok.kind {
		case tokComma:
			continue
		case tokRBracket:
			return items, nil
		default:
			return nil, errors.InvalidFilterSyntax(tok.pos, "expected ',' or ']', got "+describe(tok))
		}
	}
}

func (p *parser) parseLiteral() (Literal, error) {
	tok := p.next()
	switch tok.kind {
	case tokString:
		s, err := strconv.Unquote(tok.text)
		if err != nil {
			return Literal{}, errors.InvalidFilterSyntax(tok.pos, "bad string literal")
		}
		return StringLiteral(s), nil
	case tokNumber:
		if strings.ContainsAny(tok.text, ".eE") {
			f, err := strconv.ParseFloat(tok.text, 64)
			if err != nil {
				return Literal{}, errors.InvalidFilterSyntax(tok.pos, "bad number "+tok.text)
			}
			return FloatLiteral(f), nil
		}
		i, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return Literal{}, errors.InvalidFilterSyntax(tok.pos, "bad integer "+tok.text)
		}
		return IntLiteral(i), nil
	case tokIdent:
		switch tok.text {
		case "true":
			return BoolLiteral(true), nil
		case "false":
			return BoolLiteral(false), nil
		}
	}
	return Literal{}, errors.InvalidFilterSyntax(tok.pos, "expected literal, got "+describe(tok))
}

func isKeyword(tok token, kw string) bool {
	return tok.kind == tokIdent && tok.text == kw
}

func describe(tok token) string {
	switch tok.kind {
	case tokEOF:
		return "end of input"
	case tokString:
		return "string " + tok.text
	default:
		return "'" + tok.text + "'"
	}
}

func lex(text string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			tokens = append(tokens, token{tokLParen, "(", i})
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")", i})
			i++
		case c == '[':
			tokens = append(tokens, token{tokLBracket, "[", i})
			i++
		case c == ']':
			tokens = append(tokens, token{tokRBracket, "]", i})
			i++
		case c == ',':
			tokens = append(tokens, token{tokComma, ",", i})
			i++
		case c == '"':
			end, err := scanString(text, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{tokString, text[i:end], i})
			i = end
		case c == '-' || c == '+' || (c >= '0' && c <= '9'):
			end := scanNumber(text, i)
			tokens = append(tokens, token{tokNumber, text[i:end], i})
			i = end
		case isIdentRune(rune(c), true):
			start := i
			for i < len(text) && (isIdentRune(rune(text[i]), false) || text[i] == '.') {
				i++
			}
			tokens = append(tokens, token{tokIdent, text[start:i], start})
		default:
			return nil, errors.InvalidFilterSyntax(i, "unexpected character "+strconv.QuoteRune(rune(c)))
		}
	}
	return append(tokens, token{tokEOF, "", len(text)}), nil
}

// scanString returns the offset just past the closing quote of the string
// starting at start.
func scanString(text string, start int) (int, error) {
	for i := start + 1; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '"':
			return i + 1, nil
		}
	}
	return 0, errors.InvalidFilterSyntax(start, "unterminated string")
}

func scanNumber(text string, start int) int {
	i := start + 1
	for i < len(text) {
		c := text[i]
		switch {
		case c >= '0' && c <= '9', c == '.':
			i++
		case c == 'e' || c == 'E':
			i++
			if i < len(text) && (text[i] == '+' || text[i] == '-') {
				i++
			}
		default:
			return i
		}
	}
	return i
}
