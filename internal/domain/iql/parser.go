package iql

import (
	"fmt"
	"strings"
	"unicode"
)

// Parse parses the textual query form into an expression tree.
//
// Grammar (case-insensitive keywords, left-associative binary operators):
//
//	expr    := orExpr
//	orExpr  := andExpr { "OR" andExpr }
//	andExpr := unary { "AND" unary }
//	unary   := "NOT" unary | "(" expr ")" | predicate
//
// Predicates are bare identifiers (letters, digits, underscores); multi-word
// predicates use underscores.
func Parse(query string) (Expr, error) {
	toks, err := tokenize(query)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, fmt.Errorf("unexpected token %q", p.peek())
	}
	return expr, nil
}

type parser struct {
	toks []string
	pos  int
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() string {
	if p.done() {
		return ""
	}
	return p.toks[p.pos]
}

func (p *parser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for strings.EqualFold(p.peek(), "OR") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or{L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for strings.EqualFold(p.peek(), "AND") {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = And{L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	switch {
	case p.done():
		return nil, fmt.Errorf("unexpected end of query")
	case strings.EqualFold(p.peek(), "NOT"):
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not{X: inner}, nil
	case p.peek() == "(":
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek() != ")" {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.next()
		return inner, nil
	case p.peek() == ")":
		return nil, fmt.Errorf("unexpected closing parenthesis")
	default:
		tok := p.next()
		if strings.EqualFold(tok, "AND") || strings.EqualFold(tok, "OR") {
			return nil, fmt.Errorf("unexpected operator %q", tok)
		}
		return Pred(Normalize(tok)), nil
	}
}

func tokenize(query string) ([]string, error) {
	var toks []string
	runes := []rune(query)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(' || r == ')':
			toks = append(toks, string(r))
			i++
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			toks = append(toks, string(runes[i:j]))
			i = j
		default:
			return nil, fmt.Errorf("invalid character %q at position %d", r, i)
		}
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty query")
	}
	return toks, nil
}
