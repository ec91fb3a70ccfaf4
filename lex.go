package formula

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// lexToken is one token of formula text.
type lexToken struct {
	kind lexKind
	text string
	// pos is the 1-based rune position of the token's first rune.
	pos int
}

func (t lexToken) String() string {
	return t.kind.String() + " " + strconv.Quote(t.text) + " at " + strconv.Itoa(t.pos)
}

type lexKind int8

const (
	lexNone lexKind = iota
	lexEOF
	lexNumber
	lexName
	lexOp
	lexLParen
	lexRParen
	lexComma
)

var lexKindNames = [...]string{
	lexNone:   "none",
	lexEOF:    "end",
	lexNumber: "number",
	lexName:   "name",
	lexOp:     "operator",
	lexLParen: "lparen",
	lexRParen: "rparen",
	lexComma:  "comma",
}

func (k lexKind) String() string {
	if k < 0 || int(k) >= len(lexKindNames) {
		return "lexKind(" + strconv.Itoa(int(k)) + ")"
	}
	return lexKindNames[k]
}

// Operators contains the runes which begin operators. '<', '>', '=', and '!'
// combine with a following '=' into comparisons.
const Operators = "+-*/^<>=!"

// delims are the runes other than operators and spaces that end a number.
const delims = "(),"

// lexer splits formula text into tokens. It holds at most one token of
// lookahead, pushed back by the parser.
type lexer struct {
	src io.RuneScanner
	// n is the number of runes read from src.
	n    int
	text strings.Builder
	back lexToken
	done bool
}

func lex(src io.RuneScanner) *lexer {
	return &lexer{src: src}
}

// unread pushes a token back so that next returns it again. Panics if a
// token is already pushed back.
func (l *lexer) unread(tok lexToken) {
	if l.back.kind != lexNone {
		panic("formula: token already pushed back")
	}
	l.back = tok
}

// pushed takes the token that was pushed back. Panics if there is none.
func (l *lexer) pushed() lexToken {
	tok := l.back
	if tok.kind == lexNone {
		panic("formula: no token pushed back")
	}
	l.back = lexToken{}
	return tok
}

func (l *lexer) read() (rune, error) {
	r, sz, err := l.src.ReadRune()
	if sz > 0 {
		l.n++
	}
	return r, err
}

// putback returns the last rune read to the source.
func (l *lexer) putback() {
	if err := l.src.UnreadRune(); err != nil {
		panic(err)
	}
	l.n--
}

// next scans a token. The first time the input runs out, the result is a
// lexEOF token; after that it is io.EOF. If nl is true, a newline counts as
// the end of the input. A token that fails to scan is returned with only its
// position, together with a *LexError; scanning can continue after it.
func (l *lexer) next(nl bool) (lexToken, error) {
	if l.back.kind != lexNone {
		return l.pushed(), nil
	}
	if l.done {
		return lexToken{}, io.EOF
	}
	l.text.Reset()
	for {
		start := l.n + 1
		r, err := l.read()
		if errors.Is(err, io.EOF) || (err == nil && r == '\n' && nl) {
			l.done = true
			return lexToken{kind: lexEOF, pos: start}, nil
		}
		if err != nil {
			return lexToken{pos: start}, err
		}
		var kind lexKind
		switch {
		case unicode.IsSpace(r):
			continue
		case r == '.', '0' <= r && r <= '9':
			kind, err = lexNumber, l.number(r)
		case r == '_', unicode.IsLetter(r):
			kind, err = lexName, l.name(r)
		case strings.ContainsRune(Operators, r):
			kind, err = lexOp, l.op(r)
		case r == '(':
			kind = lexLParen
			l.text.WriteRune(r)
		case r == ')':
			kind = lexRParen
			l.text.WriteRune(r)
		case r == ',':
			kind = lexComma
			l.text.WriteRune(r)
		default:
			l.text.WriteRune(r)
			err = l.fail("")
		}
		if err != nil {
			return lexToken{pos: start}, err
		}
		return lexToken{kind: kind, text: l.text.String(), pos: start}, nil
	}
}

// numState is a state of the number literal scanner.
type numState int8

const (
	numInt      numState = iota // digits before any point
	numDot                      // a leading point with no digits yet
	numFrac                     // after the point
	numExp                      // just after the exponent marker
	numExpSign                  // after the exponent sign
	numExpDigit                 // in the exponent digits
)

// number scans a number literal that begins with first: digits with at most
// one decimal point, optionally followed by an exponent. Other runes before
// a space, operator, paren, or comma make the literal invalid.
func (l *lexer) number(first rune) error {
	l.text.WriteRune(first)
	st := numInt
	if first == '.' {
		st = numDot
	}
	for {
		r, err := l.read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if (r == '+' || r == '-') && st == numExp {
			l.text.WriteRune(r)
			st = numExpSign
			continue
		}
		if unicode.IsSpace(r) || strings.ContainsRune(Operators, r) || strings.ContainsRune(delims, r) {
			l.putback()
			break
		}
		l.text.WriteRune(r)
		digit := '0' <= r && r <= '9'
		switch {
		case digit && st == numDot:
			st = numFrac
		case digit && (st == numExp || st == numExpSign):
			st = numExpDigit
		case digit:
			// Stay in the current state.
		case r == '.' && st == numInt:
			st = numFrac
		case (r == 'e' || r == 'E') && (st == numInt || st == numFrac):
			st = numExp
		default:
			return l.fail("number")
		}
	}
	switch st {
	case numInt, numFrac, numExpDigit:
		return nil
	}
	return l.fail("number")
}

// name scans an identifier that begins with first. Identifiers may contain
// letters, digits, underscores, and dots.
func (l *lexer) name(first rune) error {
	l.text.WriteRune(first)
	for {
		r, err := l.read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if r != '_' && r != '.' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			l.putback()
			return nil
		}
		l.text.WriteRune(r)
	}
}

// op scans an operator that begins with first.
func (l *lexer) op(first rune) error {
	l.text.WriteRune(first)
	if !strings.ContainsRune("<>=!", first) {
		return nil
	}
	r, err := l.read()
	switch {
	case err == nil && r == '=':
		l.text.WriteRune(r)
		return nil
	case err == nil:
		l.putback()
	case !errors.Is(err, io.EOF):
		return err
	}
	if first == '=' || first == '!' {
		// Only == and != exist.
		return l.fail("operator")
	}
	return nil
}

func (l *lexer) fail(kind string) error {
	return &LexError{Position: Position{Col: l.n}, Text: l.text.String(), Kind: kind}
}

// LexError indicates text that is not a token. It implements InputError.
type LexError struct {
	Position
	// Text is the text scanned for the token up to and including the rune
	// that made it invalid.
	Text string
	// Kind is the kind of token that was being scanned, "number" or
	// "operator", or empty if the first rune begins no token.
	Kind string
}

func (err *LexError) Error() string {
	if err.Kind == "" {
		return err.at("unexpected character " + strconv.Quote(err.Text))
	}
	return err.at("invalid " + err.Kind + " " + strconv.Quote(err.Text))
}
