package formula

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Param is a named value that formulas can refer to.
type Param struct {
	Key   string  `yaml:"key"`
	Value float64 `yaml:"value"`
	Label string  `yaml:"label,omitempty"`
}

// Params builds the variable scope for a list of parameters. If keys repeat,
// the last one wins.
func Params(list []Param) map[string]float64 {
	m := make(map[string]float64, len(list))
	for _, p := range list {
		m[p.Key] = p.Value
	}
	return m
}

// Engine evaluates expression text against a set of variables.
type Engine interface {
	// Evaluate returns the value of expr with the given variables. The
	// result must be finite; otherwise Evaluate returns an error.
	Evaluate(expr string, vars map[string]float64) (float64, error)
}

// Native is an Engine that evaluates expressions with this package's parser
// using arbitrary-precision arithmetic.
type Native struct {
	// Prec is the precision of calculations in bits. If it is zero, 64 is
	// used.
	Prec uint
	// Funcs adds functions to or removes them from the defaults. A nil entry
	// disables the function with that name.
	Funcs map[string]Func
}

// Evaluate implements Engine.
func (e *Native) Evaluate(expr string, vars map[string]float64) (float64, error) {
	var opts []ParseOption
	if e.Funcs != nil {
		opts = append(opts, ParseFuncs(e.Funcs))
	}
	x, err := ParseString(expr, opts...)
	if err != nil {
		return 0, err
	}
	used := make(map[string]float64, len(x.names))
	for _, name := range x.names {
		v, ok := vars[name]
		if !ok {
			// Let evaluation report the missing name.
			continue
		}
		if math.IsNaN(v) {
			return 0, fmt.Errorf("parameter %q is not a number", name)
		}
		used[name] = v
	}
	prec := e.Prec
	if prec == 0 {
		prec = 64
	}
	ctx := NewContext(Prec(prec), SetValues(used))
	r := ctx.Eval(x)
	if r == nil {
		return 0, ctx.Err()
	}
	f, _ := r.Float64()
	if math.IsInf(f, 0) {
		return 0, &NotFiniteError{Value: f}
	}
	return f, nil
}

// NotFiniteError is an error indicating an expression whose value is
// infinite, usually from a division by zero.
type NotFiniteError struct {
	Value float64
}

func (err *NotFiniteError) Error() string {
	return "result is not a finite number: " + strconv.FormatFloat(err.Value, 'g', -1, 64)
}

// EvalError is an error from evaluating the expression of a sequence.
type EvalError struct {
	// Expression is the expression text that was evaluated.
	Expression string
	// Err is the error from the engine.
	Err error
}

func (err *EvalError) Error() string {
	return "formula " + strconv.Quote(err.Expression) + ": " + err.Err.Error()
}

func (err *EvalError) Unwrap() error {
	return err.Err
}

// ErrIncomplete is the error evaluating a sequence that is not ready.
var ErrIncomplete = errors.New("incomplete formula")

// Result is the outcome of evaluating a sequence.
type Result struct {
	// Expression is the evaluated text, with parens closed.
	Expression string
	// Value is the unrounded value of the expression.
	Value float64
	// Text is Value formatted to three decimal places.
	Text string
	// Unit is the unit of the value, if known.
	Unit string
}

// Display returns the result in the form "expression = value unit".
func (r Result) Display() string {
	s := r.Expression + " = " + r.Text
	if r.Unit != "" {
		s += " " + r.Unit
	}
	return s
}

// Preview returns the formatted value followed by the unit, if any.
func (r Result) Preview() string {
	if r.Unit != "" {
		return r.Text + " " + r.Unit
	}
	return r.Text
}

// FormatValue formats v to three decimal places. Values that round to zero
// never format with a minus sign.
func FormatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	if s == "-0.000" {
		return "0.000"
	}
	return s
}

// Evaluate evaluates a sequence with an engine. If the sequence is not ready,
// the error is ErrIncomplete. Errors from the engine are wrapped in
// *EvalError.
func Evaluate(e Engine, s Sequence, vars map[string]float64) (Result, error) {
	if !s.Ready() {
		return Result{}, ErrIncomplete
	}
	closed := s.Closed()
	if closed.Balance() != 0 {
		panic("formula: ready sequence " + strconv.Quote(s.String()) + " did not close")
	}
	expr := closed.String()
	v, err := e.Evaluate(expr, vars)
	if err != nil {
		return Result{Expression: expr}, &EvalError{Expression: expr, Err: err}
	}
	return Result{Expression: expr, Value: v, Text: FormatValue(v)}, nil
}
