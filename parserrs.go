package formula

import "strconv"

// InputError is an error caused by invalid formula text. Every parse error
// implements InputError.
type InputError interface {
	error
	// Pos returns the 1-based rune position in the input where the error
	// was found.
	Pos() int
}

// Position is the location of invalid input, counted in runes from 1.
type Position struct {
	Col int
}

// Pos returns the column.
func (p Position) Pos() int {
	return p.Col
}

// at prefixes a message with the column.
func (p Position) at(msg string) string {
	return "col " + strconv.Itoa(p.Col) + ": " + msg
}

// OperatorError is an operator that cannot be used where it appears, or a
// term that follows another term with no operator between them.
type OperatorError struct {
	Position
	// Operator is the operator, or the second term if Missing is true.
	Operator string
	// Unary is whether an operand was expected, so the operator had to be
	// unary.
	Unary bool
	// Missing is whether an operator was expected but a term was found.
	// Formulas never multiply implicitly.
	Missing bool
}

func (err *OperatorError) Error() string {
	switch {
	case err.Missing:
		return err.at("missing operator before " + strconv.Quote(err.Operator))
	case err.Unary:
		return err.at(strconv.Quote(err.Operator) + " is not a unary operator")
	default:
		return err.at(strconv.Quote(err.Operator) + " is not a binary operator")
	}
}

// BracketError is an unbalanced paren.
type BracketError struct {
	Position
	// Left is "(" if an open paren was not closed.
	Left string
	// Right is ")" if a close paren had no open paren. If both Left and
	// Right are empty, the input ended where a paren was expected.
	Right string
}

func (err *BracketError) Error() string {
	if err.Left == "" && err.Right != "" {
		return err.at("close paren " + strconv.Quote(err.Right) + " has no open paren")
	}
	return err.at("open paren \"(\" is never closed")
}

// SeparatorError is a comma outside a function call, or one with no argument
// before it.
type SeparatorError struct {
	Position
	// Sep is the separator text.
	Sep string
}

func (err *SeparatorError) Error() string {
	return err.at("unexpected separator " + strconv.Quote(err.Sep))
}

// CallError is a function call with a number of arguments the function does
// not accept, or a function name with no argument list.
type CallError struct {
	Position
	// Func is the function name.
	Func string
	// Len is the number of arguments, or -1 if the name was not followed by
	// an open paren.
	Len int
}

func (err *CallError) Error() string {
	if err.Len < 0 {
		return err.at("missing argument list for " + err.Func)
	}
	return err.at("cannot call " + err.Func + " with " + strconv.Itoa(err.Len) + " arguments")
}

// EmptyExpressionError is a subexpression with nothing in it, like "()" or
// the operand missing from "x*".
type EmptyExpressionError struct {
	Position
	// End is the token that ended the subexpression, or empty at the end of
	// the input.
	End string
}

func (err *EmptyExpressionError) Error() string {
	switch {
	case err.End != "":
		return err.at("no expression before " + strconv.Quote(err.End))
	case err.Col <= 1:
		return err.at("no expression")
	default:
		return err.at("no expression at end of input")
	}
}

var (
	_ InputError = (*OperatorError)(nil)
	_ InputError = (*BracketError)(nil)
	_ InputError = (*SeparatorError)(nil)
	_ InputError = (*CallError)(nil)
	_ InputError = (*EmptyExpressionError)(nil)
	_ InputError = (*LexError)(nil)
)
