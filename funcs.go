package formula

import (
	"errors"
	"math/big"
	"strconv"

	"github.com/zephyrtronium/bigfloat"
)

// Func is a function from reals to reals. Functions may but generally should
// not look up variables. The function should set r to its result and should
// not use the value of r otherwise.
type Func interface {
	// Call evaluates the function. The function arguments are passed in invoc,
	// which has a length for which CanCall returned true. The function must
	// set r to its result and should not use the value of r otherwise. Call
	// may modify the elements of invoc.
	Call(ctx *Context, invoc []*big.Float, r *big.Float) error

	// CanCall returns whether the function can be called with n arguments.
	// The parser rejects calls with argument counts for which CanCall is
	// false.
	CanCall(n int) bool
}

var globalfuncs = map[string]Func{
	"SUM":     Variadic(1, -1, sum),
	"MAX":     Variadic(1, -1, extreme(1)),
	"MIN":     Variadic(1, -1, extreme(-1)),
	"AVERAGE": Variadic(1, -1, average),
	"ROUND":   Variadic(1, 2, round),
	"IF":      Variadic(3, 3, cond),

	"ABS":  Monadic((*big.Float).Abs),
	"SQRT": Monadic((*big.Float).Sqrt),
	"EXP":  Monadic(bigfloat.Exp),
	"LN":   Variadic(1, 1, ln),
	"LOG":  Variadic(1, 2, logb),
	"POW":  Variadic(2, 2, powf),
	"PI":   Niladic(bigfloat.Pi),
}

// DefaultFuncs returns a copy of the functions that are available in every
// expression unless disabled.
func DefaultFuncs() map[string]Func {
	m := make(map[string]Func, len(globalfuncs))
	for k, v := range globalfuncs {
		m[k] = v
	}
	return m
}

type monadic struct {
	f func(out, in *big.Float) *big.Float
}

func (m monadic) Call(ctx *Context, invoc []*big.Float, r *big.Float) (err error) {
	in := invoc[0]
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err = r.(error) // panic if not error
		if errors.As(err, new(*DomainError)) || errors.As(err, new(big.ErrNaN)) {
			return
		}
		panic(err)
	}()
	r.SetPrec(ctx.Prec())
	m.f(r, in)
	return nil
}

func (m monadic) CanCall(n int) bool {
	return n == 1
}

// Monadic wraps a function of one variable into a Func. f must set out to its
// result, to the precision of out; its return value is always ignored. If f is
// called on an argument outside f's domain, it should panic with an error of
// type big.ErrNaN, or that unwraps to it.
func Monadic(f func(out, in *big.Float) *big.Float) Func {
	return monadic{f}
}

type niladic struct {
	f func(out *big.Float) *big.Float
}

func (n niladic) Call(ctx *Context, invoc []*big.Float, r *big.Float) error {
	r.SetPrec(ctx.Prec())
	n.f(r)
	return nil
}

func (n niladic) CanCall(k int) bool {
	return k == 0
}

// Niladic wraps a function of zero variables, generally a function which
// computes a constant, into a Func. f must set out to its result; its return
// value is always ignored. Unlike Monadic, the wrapped function is expected
// never to panic.
func Niladic(f func(out *big.Float) *big.Float) Func {
	return niladic{f}
}

type variadic struct {
	min, max int
	f        func(out *big.Float, in []*big.Float) error
}

func (v variadic) Call(ctx *Context, invoc []*big.Float, r *big.Float) error {
	r.SetPrec(ctx.Prec())
	return v.f(r, invoc)
}

func (v variadic) CanCall(n int) bool {
	return n >= v.min && (v.max < 0 || n <= v.max)
}

// Variadic wraps a function of between min and max arguments, inclusive, into
// a Func. If max is negative, there is no upper bound. f must set out to its
// result at the precision out already has and return an error, preferably a
// *DomainError, for arguments outside its domain.
func Variadic(min, max int, f func(out *big.Float, in []*big.Float) error) Func {
	return variadic{min: min, max: max, f: f}
}

func sum(out *big.Float, in []*big.Float) error {
	out.SetInt64(0)
	for _, x := range in {
		out.Add(out, x)
	}
	return nil
}

// extreme returns a function selecting the argument x for which x.Cmp(y) is
// sgn against all others.
func extreme(sgn int) func(out *big.Float, in []*big.Float) error {
	return func(out *big.Float, in []*big.Float) error {
		m := in[0]
		for _, x := range in[1:] {
			if x.Cmp(m) == sgn {
				m = x
			}
		}
		out.Set(m)
		return nil
	}
}

func average(out *big.Float, in []*big.Float) error {
	sum(out, in)
	var n big.Float
	n.SetInt64(int64(len(in)))
	out.Quo(out, &n)
	return nil
}

// maxRoundDigits is the largest number of decimal digits ROUND accepts.
const maxRoundDigits = 15

// round rounds half away from zero to in[1] decimal digits, or to an integer
// if there is no second argument.
func round(out *big.Float, in []*big.Float) error {
	x := in[0]
	digits := 0
	if len(in) > 1 {
		d := in[1]
		if !d.IsInt() || d.Sign() < 0 || d.Cmp(big.NewFloat(maxRoundDigits)) > 0 {
			return &DomainError{X: d, Arg: 2, Func: "ROUND"}
		}
		k, _ := d.Int64()
		digits = int(k)
	}
	if x.IsInf() {
		out.Set(x)
		return nil
	}
	var scale, y, half big.Float
	scale.SetPrec(out.Prec()).SetInt64(1)
	ten := big.NewFloat(10)
	for i := 0; i < digits; i++ {
		scale.Mul(&scale, ten)
	}
	y.SetPrec(out.Prec()).Mul(x, &scale)
	half.SetFloat64(0.5)
	if y.Signbit() {
		y.Sub(&y, &half)
	} else {
		y.Add(&y, &half)
	}
	i, _ := y.Int(nil)
	out.SetInt(i)
	out.Quo(out, &scale)
	return nil
}

func cond(out *big.Float, in []*big.Float) error {
	if in[0].Sign() != 0 {
		out.Set(in[1])
	} else {
		out.Set(in[2])
	}
	return nil
}

func ln(out *big.Float, in []*big.Float) error {
	if in[0].Sign() <= 0 {
		return &DomainError{X: in[0], Arg: 1, Func: "LN"}
	}
	bigfloat.Log(out, in[0])
	return nil
}

// logb computes the base 10 logarithm of in[0], or the logarithm in base
// in[1] if it is given.
func logb(out *big.Float, in []*big.Float) error {
	x := in[0]
	if x.Sign() <= 0 || x.IsInf() {
		return &DomainError{X: x, Arg: 1, Func: "LOG"}
	}
	base := new(big.Float).SetPrec(out.Prec()).SetInt64(10)
	if len(in) > 1 {
		b := in[1]
		if b.Sign() <= 0 || b.IsInf() || b.Cmp(big.NewFloat(1)) == 0 {
			return &DomainError{X: b, Arg: 2, Func: "LOG"}
		}
		base.Set(b)
	}
	bigfloat.Log(out, x)
	bigfloat.Log(base, base)
	out.Quo(out, base)
	return nil
}

func powf(out *big.Float, in []*big.Float) error {
	return pow(out, in[0], in[1], "POW")
}

// pow sets out to x^y. A negative base is allowed only with an integer
// exponent. fn names the operation for errors.
func pow(out, x, y *big.Float, fn string) error {
	switch {
	case x.Sign() == 0:
		switch y.Sign() {
		case 0:
			out.SetInt64(1)
		case 1:
			out.SetInt64(0)
		default:
			out.SetInf(false)
		}
		return nil
	case y.Sign() == 0:
		out.SetInt64(1)
		return nil
	case x.IsInf() || y.IsInf():
		return &DomainError{X: y, Arg: 2, Func: fn}
	case x.Sign() > 0:
		out.Set(power(out.Prec(), x, y))
		return nil
	}
	if !y.IsInt() {
		return &DomainError{X: x, Arg: 1, Func: fn}
	}
	var abs big.Float
	abs.SetPrec(out.Prec()).Abs(x)
	out.Set(power(out.Prec(), &abs, y))
	if k, _ := y.Int(nil); k.Bit(0) == 1 {
		out.Neg(out)
	}
	return nil
}

// power computes x^y at prec for positive finite x. The result is
// bigfloat.Pow's return value, which is not always its first argument.
func power(prec uint, x, y *big.Float) *big.Float {
	r := bigfloat.Pow(new(big.Float).SetPrec(prec), x, y)
	return r.SetPrec(prec)
}

// DomainError is an error returned when a function or operator is applied to
// arguments outside its domain. DomainError unwraps to big.ErrNaN.
type DomainError struct {
	// X is the out-of-domain argument.
	X *big.Float
	// Arg is the 1-based index of the argument.
	Arg int
	// Func is a name identifying the function.
	Func string
}

func (err *DomainError) Error() string {
	r := err.X.String() + " outside domain"
	if err.Func != "" {
		r += " of " + err.Func
	}
	if err.Arg > 0 {
		r += " (argument " + strconv.Itoa(err.Arg) + ")"
	}
	return r
}

func (err *DomainError) Unwrap() error {
	return big.ErrNaN{}
}
