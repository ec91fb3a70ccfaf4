package formula

import (
	"io"
	"slices"
	"strings"
)

// Formula grammar, lowest precedence first:
//
//	expr    = cmp
//	cmp     = sum { ("<" | "<=" | ">" | ">=" | "==" | "!=") sum }
//	sum     = product { ("+" | "-") product }
//	product = unary { ("*" | "/") unary }
//	unary   = ("+" | "-") unary | power
//	power   = primary [ "^" unary ]
//	primary = number | name | name "(" [ expr { "," expr } ] ")" | "(" expr ")"
//
// A name followed by an argument list must be a known function, and a known
// function must be followed by its argument list. Two terms in a row are an
// error rather than a product.

// Expr is a parsed formula.
type Expr struct {
	root *node
	// names are the variables the formula refers to, sorted.
	names []string
}

// Vars returns the sorted names of the variables the expression uses, or nil
// if it uses none.
func (e *Expr) Vars() []string {
	return slices.Clone(e.names)
}

// String formats the expression with every operation parenthesized. The
// result parses to the same expression.
func (e *Expr) String() string {
	return e.root.String()
}

// ParseOption is an option for parsing.
type ParseOption interface {
	apply(*parser)
}

type (
	funcopt struct {
		name string
		fn   Func
	}
	funcsopt map[string]Func
	nlopt    struct{}
)

func (o funcopt) apply(p *parser) {
	p.funcs[o.name] = o.fn
}

func (o funcsopt) apply(p *parser) {
	for k, v := range o {
		p.funcs[k] = v
	}
}

func (nlopt) apply(p *parser) {
	p.nl = true
}

// ParseFunc adds a function, or replaces the one with the same name. If fn is
// nil, name parses as a variable instead.
func ParseFunc(name string, fn Func) ParseOption {
	return funcopt{name, fn}
}

// ParseFuncs adds or replaces any number of functions. Nil entries make their
// names parse as variables.
func ParseFuncs(fns map[string]Func) ParseOption {
	return funcsopt(fns)
}

// DisableDefaultFuncs makes the names of all default functions parse as
// variables. Later options can add functions back.
func DisableDefaultFuncs() ParseOption {
	m := make(funcsopt, len(globalfuncs))
	for k := range globalfuncs {
		m[k] = nil
	}
	return m
}

// StopOnNewline ends the expression at a newline where an operator or the end
// of input could appear. A newline after an operator, open paren, or comma
// does not end the expression, so a long formula may still be broken after
// an operator.
func StopOnNewline() ParseOption {
	return nlopt{}
}

// parser holds the state of one parse.
type parser struct {
	scan  *lexer
	funcs map[string]Func
	names map[string]bool
	nl    bool
}

// Parse parses a formula from src. Options apply in order. Parsing reads
// exactly through the end of the expression, so with StopOnNewline, src can
// be parsed again to read the next formula.
func Parse(src io.RuneScanner, opts ...ParseOption) (*Expr, error) {
	p := parser{
		scan:  lex(src),
		funcs: DefaultFuncs(),
		names: make(map[string]bool),
	}
	for _, opt := range opts {
		opt.apply(&p)
	}
	root, err := p.expr(whole)
	if err != nil {
		return nil, err
	}
	if tok := p.scan.pushed(); tok.kind != lexEOF {
		return nil, unexpectedEnd(tok, false)
	}
	e := Expr{root: root}
	if len(p.names) > 0 {
		e.names = make([]string, 0, len(p.names))
		for k := range p.names {
			e.names = append(e.names, k)
		}
		slices.Sort(e.names)
	}
	return &e, nil
}

// ParseString parses a formula from a string.
func ParseString(src string, opts ...ParseOption) (*Expr, error) {
	return Parse(strings.NewReader(src), opts...)
}

// expr parses operators that bind more tightly than outer, starting from a
// primary or unary operator. On success, the token that ended the
// expression, including lexEOF, is pushed back. An empty expression gives
// nil with no error; the caller decides whether that is allowed.
func (p *parser) expr(outer operator) (*node, error) {
	lhs, err := p.primary(outer)
	if err != nil || lhs == nil {
		return nil, err
	}
	for {
		tok, err := p.scan.next(p.nl)
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case lexNumber, lexName, lexLParen:
			return nil, &OperatorError{Position: Position{tok.pos}, Operator: tok.text, Missing: true}
		case lexRParen, lexComma, lexEOF:
			p.scan.unread(tok)
			return lhs, nil
		case lexOp:
		default:
			panic("formula: unexpected token " + tok.String())
		}
		op, ok := binaryOps[tok.text]
		if !ok {
			return nil, &OperatorError{Position: Position{tok.pos}, Operator: tok.text}
		}
		if !op.binds(outer) {
			p.scan.unread(tok)
			return lhs, nil
		}
		rhs, err := p.operand(op)
		if err != nil {
			return nil, err
		}
		lhs = &node{kind: op.kind, args: []*node{lhs, rhs}}
	}
}

// operand parses the operand of an operator, which may not be empty.
func (p *parser) operand(op operator) (*node, error) {
	n, err := p.expr(op)
	if err != nil {
		return nil, err
	}
	if n == nil {
		end := p.scan.pushed()
		return nil, &EmptyExpressionError{Position: Position{end.pos}, End: end.text}
	}
	return n, nil
}

// primary parses a literal, name, call, parenthesized expression, or unary
// operation. Newlines never end the input here.
func (p *parser) primary(outer operator) (*node, error) {
	tok, err := p.scan.next(false)
	if err != nil {
		return nil, err
	}
	switch tok.kind {
	case lexNumber:
		return &node{kind: nodeNum, text: tok.text}, nil
	case lexName:
		if fn := p.funcs[tok.text]; fn != nil {
			return p.call(tok.text, fn)
		}
		p.names[tok.text] = true
		return &node{kind: nodeName, text: tok.text}, nil
	case lexOp:
		op, ok := unaryOps[tok.text]
		if !ok {
			return nil, &OperatorError{Position: Position{tok.pos}, Operator: tok.text, Unary: true}
		}
		if !op.binds(outer) {
			// In x^-y, the negation takes the exponent's binding power.
			op.prec, op.right = outer.prec, outer.right
		}
		x, err := p.operand(op)
		if err != nil {
			return nil, err
		}
		return &node{kind: op.kind, args: []*node{x}}, nil
	case lexLParen:
		x, err := p.expr(whole)
		if err != nil {
			return nil, err
		}
		end := p.scan.pushed()
		if end.kind != lexRParen {
			return nil, unexpectedEnd(end, true)
		}
		if x == nil {
			return nil, &EmptyExpressionError{Position: Position{end.pos}, End: end.text}
		}
		return x, nil
	case lexRParen:
		// Possibly the end of an empty argument list.
		p.scan.unread(tok)
		return nil, nil
	case lexComma:
		return nil, &SeparatorError{Position: Position{tok.pos}, Sep: tok.text}
	case lexEOF:
		return nil, &EmptyExpressionError{Position: Position{tok.pos}}
	default:
		panic("formula: unexpected token " + tok.String())
	}
}

// call parses the argument list of a call to fn.
func (p *parser) call(name string, fn Func) (*node, error) {
	open, err := p.scan.next(false)
	if err != nil {
		return nil, err
	}
	if open.kind != lexLParen {
		return nil, &CallError{Position: Position{open.pos}, Func: name, Len: -1}
	}
	var args []*node
	for {
		x, err := p.expr(whole)
		if err != nil {
			if ee, ok := err.(*EmptyExpressionError); ok && ee.End == "" {
				// The input ended inside the call.
				err = &BracketError{Position: ee.Position, Left: "("}
			}
			return nil, err
		}
		end := p.scan.pushed()
		switch end.kind {
		case lexRParen:
			if x == nil && len(args) > 0 {
				// f() is a call with no arguments, but f(a,) is an error.
				return nil, &EmptyExpressionError{Position: Position{end.pos}, End: end.text}
			}
			if x != nil {
				args = append(args, x)
			}
			if !fn.CanCall(len(args)) {
				return nil, &CallError{Position: Position{open.pos}, Func: name, Len: len(args)}
			}
			return &node{kind: nodeCall, text: name, fn: fn, args: args}, nil
		case lexComma:
			if x == nil {
				return nil, &SeparatorError{Position: Position{end.pos}, Sep: end.text}
			}
			args = append(args, x)
		case lexEOF:
			return nil, &BracketError{Position: Position{end.pos}, Left: "("}
		default:
			panic("formula: argument ended on " + end.String())
		}
	}
}

// unexpectedEnd gives the error for a token that ends an expression where it
// cannot. open is whether the expression began with an open paren.
func unexpectedEnd(tok lexToken, open bool) error {
	left := ""
	if open {
		left = "("
	}
	switch tok.kind {
	case lexEOF:
		return &BracketError{Position: Position{tok.pos}, Left: left}
	case lexRParen:
		return &BracketError{Position: Position{tok.pos}, Left: left, Right: tok.text}
	case lexComma:
		return &SeparatorError{Position: Position{tok.pos}, Sep: tok.text}
	default:
		panic("formula: expression ended on " + tok.String())
	}
}
