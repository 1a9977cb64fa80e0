package expr

import (
	"strconv"
	"strings"
)

// parser is a recursive-descent parser over the token stream.
// Precedence, lowest first: || , && , == != , < <= > >= , + - , * / % , unary ! -.
type parser struct {
	src  string
	toks []token
	i    int
}

func parse(src string) (node, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	if p.peek().kind == tokEOF {
		return nil, p.fail(0, "empty expression")
	}
	n, err := p.or()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.fail(t.pos, "unexpected token "+strconv.Quote(t.text))
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) advance() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) fail(pos int, msg string) error {
	return &ParseError{Expr: p.src, Offset: pos, Msg: msg}
}

func (p *parser) matchOp(ops ...string) (token, bool) {
	t := p.peek()
	if t.kind != tokOp {
		return t, false
	}
	for _, op := range ops {
		if t.text == op {
			p.advance()
			return t, true
		}
	}
	return t, false
}

// binaryLevel parses a left-associative chain of operators at one precedence level.
func (p *parser) binaryLevel(next func() (node, error), ops ...string) (node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.matchOp(ops...)
		if !ok {
			return left, nil
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{at: t.pos, op: t.text, left: left, right: right}
	}
}

func (p *parser) or() (node, error)  { return p.binaryLevel(p.and, "||") }
func (p *parser) and() (node, error) { return p.binaryLevel(p.equality, "&&") }
func (p *parser) equality() (node, error) {
	return p.binaryLevel(p.compare, "==", "!=")
}
func (p *parser) compare() (node, error) {
	return p.binaryLevel(p.additive, "<", "<=", ">", ">=")
}
func (p *parser) additive() (node, error) { return p.binaryLevel(p.mult, "+", "-") }
func (p *parser) mult() (node, error)     { return p.binaryLevel(p.unary, "*", "/", "%") }

func (p *parser) unary() (node, error) {
	if t, ok := p.matchOp("!", "-"); ok {
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{at: t.pos, op: t.text, operand: operand}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	t := p.advance()
	switch t.kind {
	case tokNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.fail(t.pos, "invalid number "+t.text)
		}
		return &literalNode{at: t.pos, value: f}, nil

	case tokString:
		return &literalNode{at: t.pos, value: t.text}, nil

	case tokVar:
		return &varNode{at: t.pos, path: t.text}, nil

	case tokIdent:
		switch strings.ToLower(t.text) {
		case "true":
			return &literalNode{at: t.pos, value: true}, nil
		case "false":
			return &literalNode{at: t.pos, value: false}, nil
		case "null", "nil":
			return &literalNode{at: t.pos, value: nil}, nil
		}
		if p.peek().kind == tokLParen {
			return p.call(t)
		}
		return &varNode{at: t.pos, path: t.text}, nil

	case tokLParen:
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if closing := p.advance(); closing.kind != tokRParen {
			return nil, p.fail(closing.pos, "expected )")
		}
		return inner, nil

	case tokEOF:
		return nil, p.fail(t.pos, "unexpected end of expression")
	}
	return nil, p.fail(t.pos, "unexpected token "+strconv.Quote(t.text))
}

func (p *parser) call(name token) (node, error) {
	if strings.Contains(name.text, ".") {
		return nil, p.fail(name.pos, "invalid function name "+name.text)
	}
	p.advance() // (
	c := &callNode{at: name.pos, name: strings.ToUpper(name.text)}
	if p.peek().kind == tokRParen {
		p.advance()
		return c, nil
	}
	for {
		arg, err := p.or()
		if err != nil {
			return nil, err
		}
		c.args = append(c.args, arg)
		switch t := p.advance(); t.kind {
		case tokComma:
			continue
		case tokRParen:
			return c, nil
		default:
			return nil, p.fail(t.pos, "expected , or ) in call to "+c.name)
		}
	}
}
