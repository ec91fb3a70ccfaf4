package formula

import (
	"strconv"
	"strings"
)

// Kind is the type of a formula token.
type Kind int8

const (
	// KindNone is the kind of no token at all, i.e. the last token of an
	// empty sequence.
	KindNone Kind = iota
	// KindName is a parameter name.
	KindName
	// KindNumber is a number literal.
	KindNumber
	// KindOp is one of the operators + - * /.
	KindOp
	// KindLParen is an open parenthesis.
	KindLParen
	// KindRParen is a close parenthesis.
	KindRParen
	// KindComma separates function arguments.
	KindComma
	// KindFunc is a function name. It is always followed by KindLParen when
	// inserted through a Sequence.
	KindFunc
)

var kindNames = [...]string{
	KindNone:   "none",
	KindName:   "name",
	KindNumber: "number",
	KindOp:     "op",
	KindLParen: "lparen",
	KindRParen: "rparen",
	KindComma:  "comma",
	KindFunc:   "func",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// closable reports whether a token of kind k can end a complete expression.
func (k Kind) closable() bool {
	return k == KindName || k == KindNumber || k == KindRParen
}

// Token is one lexical unit of a formula built by insertion.
type Token struct {
	Kind Kind
	Text string
}

func (t Token) String() string {
	return t.Kind.String() + ":" + strconv.Quote(t.Text)
}

// TokenOps is the set of operators that can be inserted as tokens.
const TokenOps = "+-*/"

// canAppend decides whether a token of kind next may follow a token of kind
// last in a sequence whose parenthesis balance is balance.
func canAppend(last Kind, balance int, next Kind) bool {
	switch next {
	case KindName, KindFunc:
		return last == KindNone || last == KindOp || last == KindLParen || last == KindComma
	case KindNumber:
		return last == KindNone || last == KindOp || last == KindLParen || last == KindComma || last == KindNumber
	case KindLParen:
		return last == KindNone || last == KindOp || last == KindLParen || last == KindComma || last == KindFunc
	case KindRParen, KindComma:
		return balance > 0 && last.closable()
	case KindOp:
		return last.closable()
	default:
		return false
	}
}

// Sequence is an immutable sequence of formula tokens. The zero value is an
// empty sequence. Methods which edit a sequence return a new one and leave
// the receiver unchanged; edits which would break the formula's grammar are
// rejected and return the receiver with false.
type Sequence struct {
	toks []Token
}

// NewSequence builds a sequence by appending each token in order. Tokens that
// cannot be appended are skipped. Since appending a function also appends its
// open paren, an open paren directly following a function in toks is taken as
// that paren, so that NewSequence(s.Tokens()...) reproduces s.
func NewSequence(toks ...Token) Sequence {
	var s Sequence
	prev := KindNone
	for _, t := range toks {
		if t.Kind == KindLParen && prev == KindFunc {
			prev = t.Kind
			continue
		}
		s, _ = s.Append(t)
		prev = t.Kind
	}
	return s
}

// Len returns the number of tokens in the sequence.
func (s Sequence) Len() int {
	return len(s.toks)
}

// Tokens returns a copy of the tokens in the sequence.
func (s Sequence) Tokens() []Token {
	return append([]Token(nil), s.toks...)
}

// Last returns the last token in the sequence. If the sequence is empty, the
// result has kind KindNone.
func (s Sequence) Last() Token {
	if len(s.toks) == 0 {
		return Token{}
	}
	return s.toks[len(s.toks)-1]
}

// Balance returns the number of open parentheses minus the number of close
// parentheses.
func (s Sequence) Balance() int {
	n := 0
	for _, t := range s.toks {
		switch t.Kind {
		case KindLParen:
			n++
		case KindRParen:
			n--
		}
	}
	return n
}

// CanAppend reports whether a token of kind k may be appended.
func (s Sequence) CanAppend(k Kind) bool {
	return canAppend(s.Last().Kind, s.Balance(), k)
}

// with returns a new sequence with toks appended. The result never shares
// storage with s that either could write to.
func (s Sequence) with(toks ...Token) Sequence {
	n := make([]Token, 0, len(s.toks)+len(toks))
	n = append(n, s.toks...)
	return Sequence{toks: append(n, toks...)}
}

// replaceLast returns a new sequence with the last token replaced by t.
func (s Sequence) replaceLast(t Token) Sequence {
	n := append([]Token(nil), s.toks...)
	n[len(n)-1] = t
	return Sequence{toks: n}
}

// Append appends a token according to its kind. A KindFunc token is followed
// by an open parenthesis.
func (s Sequence) Append(t Token) (Sequence, bool) {
	switch t.Kind {
	case KindName:
		return s.AppendName(t.Text)
	case KindNumber:
		return s.AppendNumber(t.Text)
	case KindOp:
		return s.AppendOp(t.Text)
	case KindLParen:
		return s.AppendLParen()
	case KindRParen:
		return s.AppendRParen()
	case KindComma:
		return s.AppendComma()
	case KindFunc:
		return s.AppendFunc(t.Text)
	default:
		return s, false
	}
}

// AppendName appends a parameter name.
func (s Sequence) AppendName(name string) (Sequence, bool) {
	if name == "" || !s.CanAppend(KindName) {
		return s, false
	}
	return s.with(Token{Kind: KindName, Text: name}), true
}

// AppendNumber appends digits or a decimal point to the number literal at the
// end of the sequence, or starts a new literal if the sequence does not end
// in one. The literal may contain at most one decimal point.
func (s Sequence) AppendNumber(text string) (Sequence, bool) {
	if !s.CanAppend(KindNumber) {
		return s, false
	}
	last := s.Last()
	if last.Kind == KindNumber {
		text = last.Text + text
		if !numberText(text) {
			return s, false
		}
		return s.replaceLast(Token{Kind: KindNumber, Text: text}), true
	}
	if !numberText(text) {
		return s, false
	}
	return s.with(Token{Kind: KindNumber, Text: text}), true
}

// numberText reports whether text is a non-empty run of digits with at most
// one decimal point.
func numberText(text string) bool {
	if text == "" {
		return false
	}
	dot := false
	for _, r := range text {
		switch {
		case r == '.':
			if dot {
				return false
			}
			dot = true
		case '0' <= r && r <= '9':
		default:
			return false
		}
	}
	return true
}

// AppendOp appends an operator, one of the runes in TokenOps.
func (s Sequence) AppendOp(op string) (Sequence, bool) {
	if len(op) != 1 || !strings.Contains(TokenOps, op) || !s.CanAppend(KindOp) {
		return s, false
	}
	return s.with(Token{Kind: KindOp, Text: op}), true
}

// AppendFunc appends a function name together with its open parenthesis.
func (s Sequence) AppendFunc(name string) (Sequence, bool) {
	if name == "" || !s.CanAppend(KindFunc) {
		return s, false
	}
	return s.with(Token{Kind: KindFunc, Text: name}, Token{Kind: KindLParen, Text: "("}), true
}

// AppendLParen appends an open parenthesis.
func (s Sequence) AppendLParen() (Sequence, bool) {
	if !s.CanAppend(KindLParen) {
		return s, false
	}
	return s.with(Token{Kind: KindLParen, Text: "("}), true
}

// AppendRParen appends a close parenthesis.
func (s Sequence) AppendRParen() (Sequence, bool) {
	if !s.CanAppend(KindRParen) {
		return s, false
	}
	return s.with(Token{Kind: KindRParen, Text: ")"}), true
}

// AppendComma appends an argument separator.
func (s Sequence) AppendComma() (Sequence, bool) {
	if !s.CanAppend(KindComma) {
		return s, false
	}
	return s.with(Token{Kind: KindComma, Text: ","}), true
}

// Backspace removes the last character of a trailing number literal that is
// longer than one character, or otherwise the last token. An empty sequence
// is returned unchanged.
func (s Sequence) Backspace() Sequence {
	if len(s.toks) == 0 {
		return s
	}
	last := s.Last()
	if last.Kind == KindNumber && len(last.Text) > 1 {
		return s.replaceLast(Token{Kind: KindNumber, Text: last.Text[:len(last.Text)-1]})
	}
	return Sequence{toks: append([]Token(nil), s.toks[:len(s.toks)-1]...)}
}

// Clear returns an empty sequence.
func (s Sequence) Clear() Sequence {
	return Sequence{}
}

// Ready reports whether the sequence is a candidate for evaluation: it is not
// empty, it ends in a name, number, or close paren, and it is not a function
// opened with no arguments. Ready sequences may still fail to evaluate.
func (s Sequence) Ready() bool {
	if len(s.toks) == 0 {
		return false
	}
	if !s.Last().Kind.closable() {
		return false
	}
	if len(s.toks) == 2 && s.toks[0].Kind == KindFunc && s.toks[1].Kind == KindLParen {
		// A function opened with no arguments, e.g. SUM(, is incomplete.
		return false
	}
	return true
}

// Pending returns the number of close parens that Closed would append.
func (s Sequence) Pending() int {
	n := s.Balance()
	if n <= 0 || !s.Last().Kind.closable() {
		return 0
	}
	return n
}

// Closed returns the sequence with close parens appended to balance any open
// ones, if the sequence ends in a name, number, or close paren. Otherwise the
// result is s unchanged.
func (s Sequence) Closed() Sequence {
	n := s.Pending()
	if n == 0 {
		return s
	}
	add := make([]Token, n)
	for i := range add {
		add[i] = Token{Kind: KindRParen, Text: ")"}
	}
	return s.with(add...)
}

// String returns the concatenated text of the tokens, without closing parens.
func (s Sequence) String() string {
	var b strings.Builder
	for _, t := range s.toks {
		b.WriteString(t.Text)
	}
	return b.String()
}

// Expression returns the text of the sequence with open parens closed, ready
// for evaluation.
func (s Sequence) Expression() string {
	return s.Closed().String()
}
