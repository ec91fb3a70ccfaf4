// Package exprlang evaluates formulas with the expr-lang/expr virtual machine
// instead of the arbitrary-precision evaluator in package formula.
//
// Engine accepts the same operators and spreadsheet functions as the native
// engine, computed in float64. It is mostly useful to cross-check results.
package exprlang

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/zephyrtronium/formula"
)

// Engine is a formula.Engine backed by expr-lang/expr.
type Engine struct {
	// Options are additional compile options, e.g. more functions.
	Options []expr.Option
}

var _ formula.Engine = (*Engine)(nil)

// functions are the spreadsheet functions formulas may call.
var functions = []expr.Option{
	expr.Function("SUM", variadic("SUM", 1, -1, sum)),
	expr.Function("MAX", variadic("MAX", 1, -1, extreme(1))),
	expr.Function("MIN", variadic("MIN", 1, -1, extreme(-1))),
	expr.Function("AVERAGE", variadic("AVERAGE", 1, -1, average)),
	expr.Function("ROUND", variadic("ROUND", 1, 2, round)),
	expr.Function("IF", variadic("IF", 3, 3, cond)),
	expr.Function("ABS", variadic("ABS", 1, 1, monadic(math.Abs))),
	expr.Function("SQRT", variadic("SQRT", 1, 1, monadic(math.Sqrt))),
	expr.Function("EXP", variadic("EXP", 1, 1, monadic(math.Exp))),
	expr.Function("LN", variadic("LN", 1, 1, monadic(math.Log))),
	expr.Function("LOG", variadic("LOG", 1, 2, logb)),
	expr.Function("POW", variadic("POW", 2, 2, func(x []float64) (float64, error) { return math.Pow(x[0], x[1]), nil })),
	expr.Function("PI", variadic("PI", 0, 0, func([]float64) (float64, error) { return math.Pi, nil })),
}

// Evaluate implements formula.Engine.
func (e *Engine) Evaluate(src string, vars map[string]float64) (float64, error) {
	env := make(map[string]any, len(vars))
	for k, v := range vars {
		env[k] = v
	}
	opts := make([]expr.Option, 0, 2+len(functions)+len(e.Options))
	opts = append(opts, expr.Env(env), expr.DisableAllBuiltins())
	opts = append(opts, functions...)
	opts = append(opts, e.Options...)
	prog, err := expr.Compile(floatLiterals(src), opts...)
	if err != nil {
		return 0, fmt.Errorf("couldn't compile: %w", err)
	}
	out, err := expr.Run(prog, env)
	if err != nil {
		return 0, fmt.Errorf("couldn't run: %w", err)
	}
	v, err := number(out)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, &formula.NotFiniteError{Value: v}
	}
	return v, nil
}

// floatLiterals rewrites every number literal in src in a form expr reads as
// float64: "12" becomes "12.0", ".5" becomes "0.5", and "5." becomes "5.0".
// expr compiles digit-only literals as int, which wraps on overflow.
func floatLiterals(src string) string {
	var b strings.Builder
	b.Grow(len(src) + 8)
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case ident(c) && !digit(c) && c != '.':
			j := i
			for j < len(src) && ident(src[j]) {
				j++
			}
			b.WriteString(src[i:j])
			i = j
		case digit(c) || c == '.' && i+1 < len(src) && digit(src[i+1]):
			j := literal(src, i)
			b.WriteString(realLiteral(src[i:j]))
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// literal returns the end of the number literal that starts at src[i].
func literal(src string, i int) int {
	digits := func(j int) int {
		for j < len(src) && digit(src[j]) {
			j++
		}
		return j
	}
	j := digits(i)
	if j < len(src) && src[j] == '.' {
		j = digits(j + 1)
	}
	if j < len(src) && (src[j] == 'e' || src[j] == 'E') {
		k := j + 1
		if k < len(src) && (src[k] == '+' || src[k] == '-') {
			k++
		}
		if k < len(src) && digit(src[k]) {
			j = digits(k)
		}
	}
	return j
}

// realLiteral spells a number literal with digits on both sides of a point.
func realLiteral(lit string) string {
	mant, exp := lit, ""
	if k := strings.IndexAny(lit, "eE"); k >= 0 {
		mant, exp = lit[:k], lit[k:]
	}
	whole, frac, ok := strings.Cut(mant, ".")
	if whole == "" {
		whole = "0"
	}
	if !ok || frac == "" {
		frac = "0"
	}
	return whole + "." + frac + exp
}

func digit(c byte) bool {
	return '0' <= c && c <= '9'
}

// ident reports whether c can appear in a name. Bytes of multibyte runes
// count, so names are never split.
func ident(c byte) bool {
	return digit(c) || c == '_' || c == '.' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c >= 0x80
}

// ErrNotNumber is the error for an expression or argument whose value is not
// a number.
var ErrNotNumber = errors.New("result not numeric")

// number converts a value produced by the expr VM to float64. Booleans from
// comparisons convert to 1 or 0.
func number(v any) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrNotNumber, v)
	}
}

// ArgError is an error calling a function with the wrong number of arguments
// or with an argument out of its domain.
type ArgError struct {
	Func string
	// Arg is the 1-based index of the argument, or 0 if the count is wrong.
	Arg int
	Msg string
}

func (err *ArgError) Error() string {
	if err.Arg == 0 {
		return err.Func + ": " + err.Msg
	}
	return err.Func + ": argument " + strconv.Itoa(err.Arg) + " " + err.Msg
}

// variadic adapts a function of between min and max float64 arguments,
// inclusive, to an expr function. If max is negative, there is no upper
// bound.
func variadic(name string, min, max int, f func([]float64) (float64, error)) func(...any) (any, error) {
	return func(params ...any) (any, error) {
		n := len(params)
		if n < min || (max >= 0 && n > max) {
			return nil, &ArgError{Func: name, Msg: "cannot call with " + strconv.Itoa(n) + " arguments"}
		}
		x := make([]float64, n)
		for i, p := range params {
			v, err := number(p)
			if err != nil {
				return nil, &ArgError{Func: name, Arg: i + 1, Msg: err.Error()}
			}
			x[i] = v
		}
		r, err := f(x)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}

func monadic(f func(float64) float64) func([]float64) (float64, error) {
	return func(x []float64) (float64, error) {
		return f(x[0]), nil
	}
}

func sum(x []float64) (float64, error) {
	var r float64
	for _, v := range x {
		r += v
	}
	return r, nil
}

func extreme(sgn int) func([]float64) (float64, error) {
	return func(x []float64) (float64, error) {
		m := x[0]
		for _, v := range x[1:] {
			if (sgn > 0 && v > m) || (sgn < 0 && v < m) {
				m = v
			}
		}
		return m, nil
	}
}

func average(x []float64) (float64, error) {
	r, _ := sum(x)
	return r / float64(len(x)), nil
}

func round(x []float64) (float64, error) {
	digits := 0.0
	if len(x) > 1 {
		digits = x[1]
		if digits != math.Trunc(digits) || digits < 0 || digits > 15 {
			return 0, &ArgError{Func: "ROUND", Arg: 2, Msg: "must be an integer from 0 to 15"}
		}
	}
	scale := math.Pow(10, digits)
	return math.Round(x[0]*scale) / scale, nil
}

func cond(x []float64) (float64, error) {
	if x[0] != 0 {
		return x[1], nil
	}
	return x[2], nil
}

func logb(x []float64) (float64, error) {
	if len(x) == 1 {
		return math.Log10(x[0]), nil
	}
	return math.Log(x[0]) / math.Log(x[1]), nil
}
