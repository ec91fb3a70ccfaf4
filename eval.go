package formula

import (
	"io"
	"math/big"
	"strconv"
	"strings"
)

// Context holds variables and a precision for evaluating expressions. It is
// not safe to use a Context concurrently.
type Context struct {
	vars map[string]*big.Float
	// lits caches parsed number literals at prec.
	lits map[string]*big.Float
	prec uint

	evaluated bool
	result    *big.Float
	err       error
}

// ContextOption is an option used when creating a context.
type ContextOption interface {
	ctxOption()
}

type (
	varopt struct {
		name string
		val  *big.Float
	}
	varsopt   map[string]*big.Float
	valuesopt map[string]float64
	precopt   uint
)

func (varopt) ctxOption()    {}
func (varsopt) ctxOption()   {}
func (valuesopt) ctxOption() {}
func (precopt) ctxOption()   {}

// SetVar sets the value of a variable.
func SetVar(name string, val *big.Float) ContextOption {
	return varopt{name, val}
}

// SetVars sets the values of any number of variables.
func SetVars(vars map[string]*big.Float) ContextOption {
	return varsopt(vars)
}

// SetValues sets the values of any number of variables from float64 values,
// none of which may be NaN.
func SetValues(vals map[string]float64) ContextOption {
	return valuesopt(vals)
}

// Prec sets the precision of calculations in bits.
func Prec(prec uint) ContextOption {
	return precopt(prec)
}

// NewContext creates an evaluation context. The default precision is 64.
func NewContext(opts ...ContextOption) *Context {
	ctx := Context{prec: 64}
	return ctx.Clone(opts...)
}

// Eval evaluates an expression. If evaluation fails, e.g. because a variable
// is undefined or a function argument is out of its domain, the result is nil
// and Err returns the error.
func (ctx *Context) Eval(e *Expr) *big.Float {
	ctx.evaluated = true
	ctx.result, ctx.err = ctx.value(e.root)
	return ctx.Result()
}

// Result returns the result of the last evaluation, or nil if it failed.
// Panics if ctx has not evaluated an expression.
func (ctx *Context) Result() *big.Float {
	if !ctx.evaluated {
		panic("formula: Context.Result called before evaluating any expression")
	}
	if ctx.err != nil {
		return nil
	}
	return ctx.result
}

// Err returns the error from the last evaluation, if any.
func (ctx *Context) Err() error {
	return ctx.err
}

// Set sets the value of a variable, rounded to the context's precision.
// Returns ctx for chaining.
func (ctx *Context) Set(name string, value *big.Float) *Context {
	ctx.vars[name] = ctx.float().Set(value)
	return ctx
}

// Lookup returns a copy of the value of a variable, or nil if it is not set.
func (ctx *Context) Lookup(name string) *big.Float {
	v := ctx.vars[name]
	if v == nil {
		return nil
	}
	return new(big.Float).Copy(v)
}

// Prec returns the precision of calculations in the context.
func (ctx *Context) Prec() uint {
	return ctx.prec
}

// Clone copies the context's variables into a new context and applies opts
// to it. The new context has no result. A Prec option applies before any
// variables are set, whatever its position.
func (ctx *Context) Clone(opts ...ContextOption) *Context {
	n := Context{prec: ctx.prec}
	for _, opt := range opts {
		if p, ok := opt.(precopt); ok {
			n.prec = uint(p)
		}
	}
	n.vars = make(map[string]*big.Float, len(ctx.vars))
	for k, v := range ctx.vars {
		if n.prec == ctx.prec {
			// Values are never modified in place.
			n.vars[k] = v
		} else {
			n.vars[k] = n.float().Set(v)
		}
	}
	n.lits = make(map[string]*big.Float, len(ctx.lits))
	if n.prec == ctx.prec {
		for k, v := range ctx.lits {
			n.lits[k] = v
		}
	}
	for _, opt := range opts {
		switch opt := opt.(type) {
		case nil, precopt:
		case varopt:
			n.vars[opt.name] = n.float().Set(opt.val)
		case varsopt:
			for k, v := range opt {
				n.vars[k] = n.float().Set(v)
			}
		case valuesopt:
			for k, v := range opt {
				n.vars[k] = n.float().SetFloat64(v)
			}
		default:
			panic("formula: unknown option type")
		}
	}
	return &n
}

// float allocates a value at the context's precision.
func (ctx *Context) float() *big.Float {
	return new(big.Float).SetPrec(ctx.prec)
}

// literal returns the value of a number literal. Literals too large for
// big.Float are infinite.
func (ctx *Context) literal(s string) *big.Float {
	if v := ctx.lits[s]; v != nil {
		return v
	}
	v, _, err := big.ParseFloat(s, 10, ctx.prec, big.ToNearestEven)
	if err != nil {
		// big.Float reports exponent overflow only through the message.
		msg := err.Error()
		if msg != "exponent overflow" && !strings.HasSuffix(msg, "value out of range") {
			panic("formula: invalid number literal " + strconv.Quote(s) + ": " + msg)
		}
		v = ctx.float().SetInf(false)
	}
	ctx.lits[s] = v
	return v
}

// value evaluates a node to a new value.
func (ctx *Context) value(n *node) (*big.Float, error) {
	switch n.kind {
	case nodeNum:
		return ctx.float().Set(ctx.literal(n.text)), nil
	case nodeName:
		v := ctx.vars[n.text]
		if v == nil {
			return nil, &NameError{Name: n.text}
		}
		return ctx.float().Set(v), nil
	case nodeCall:
		args := make([]*big.Float, len(n.args))
		for i, arg := range n.args {
			v, err := ctx.value(arg)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		r := ctx.float()
		if err := n.fn.Call(ctx, args, r); err != nil {
			return nil, err
		}
		return r, nil
	case nodeNeg, nodePlus:
		x, err := ctx.value(n.args[0])
		if err != nil {
			return nil, err
		}
		if n.kind == nodeNeg {
			x.Neg(x)
		}
		return x, nil
	case nodeAdd, nodeSub, nodeMul, nodeDiv, nodePow, nodeLt, nodeLe, nodeGt, nodeGe, nodeEq, nodeNe:
		l, err := ctx.value(n.args[0])
		if err != nil {
			return nil, err
		}
		r, err := ctx.value(n.args[1])
		if err != nil {
			return nil, err
		}
		if err := binary(n.kind, l, r); err != nil {
			return nil, err
		}
		return l, nil
	default:
		panic("formula: cannot evaluate node kind " + n.kind.String())
	}
}

// binary sets l to the result of the binary operation k on l and r.
// Operations that have no value, like 0/0 or inf-inf, are DomainErrors;
// other divisions by zero are infinite.
func binary(k nodeKind, l, r *big.Float) error {
	bothInf := l.IsInf() && r.IsInf()
	switch k {
	case nodeAdd:
		if bothInf && l.Signbit() != r.Signbit() {
			return &DomainError{X: r, Arg: 2, Func: "+"}
		}
		l.Add(l, r)
	case nodeSub:
		if bothInf && l.Signbit() == r.Signbit() {
			return &DomainError{X: r, Arg: 2, Func: "-"}
		}
		l.Sub(l, r)
	case nodeMul:
		if l.IsInf() && r.Sign() == 0 || l.Sign() == 0 && r.IsInf() {
			return &DomainError{X: r, Arg: 2, Func: "*"}
		}
		l.Mul(l, r)
	case nodeDiv:
		if l.Sign() == 0 && r.Sign() == 0 || bothInf {
			return &DomainError{X: r, Arg: 2, Func: "/"}
		}
		l.Quo(l, r)
	case nodePow:
		return pow(l, l, r, "^")
	default:
		c := l.Cmp(r)
		var t bool
		switch k {
		case nodeLt:
			t = c < 0
		case nodeLe:
			t = c <= 0
		case nodeGt:
			t = c > 0
		case nodeGe:
			t = c >= 0
		case nodeEq:
			t = c == 0
		case nodeNe:
			t = c != 0
		default:
			panic("formula: not a binary operator: " + k.String())
		}
		if t {
			l.SetInt64(1)
		} else {
			l.SetInt64(0)
		}
	}
	return nil
}

// Eval parses an expression from src and evaluates it in a new context
// created with opts, using the default functions.
func Eval(src io.RuneScanner, opts ...ContextOption) (*big.Float, error) {
	e, err := Parse(src)
	if err != nil {
		return nil, err
	}
	ctx := NewContext(opts...)
	if r := ctx.Eval(e); r != nil {
		return r, nil
	}
	return nil, ctx.Err()
}

// EvalString parses and evaluates a string expression.
func EvalString(src string, opts ...ContextOption) (*big.Float, error) {
	return Eval(strings.NewReader(src), opts...)
}

// NameError is an error from a formula that refers to a variable that is not
// defined.
type NameError struct {
	// Name is the undefined variable.
	Name string
}

func (err *NameError) Error() string {
	return "undefined variable: " + strconv.Quote(err.Name)
}
