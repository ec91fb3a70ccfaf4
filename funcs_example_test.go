package formula_test

import (
	"fmt"
	"math/big"

	"github.com/zephyrtronium/formula"
)

type count struct{}

func (count) CanCall(n int) bool {
	return true
}

func (count) Call(ctx *formula.Context, invoc []*big.Float, r *big.Float) error {
	r.SetInt64(int64(len(invoc)))
	return nil
}

func ExampleFunc() {
	fns := formula.ParseFunc("COUNT", count{})
	ctx := formula.NewContext(formula.Prec(32))

	a, _ := formula.ParseString("COUNT()", fns)
	b, _ := formula.ParseString("COUNT(100)", fns)
	c, _ := formula.ParseString("COUNT(3, 2, 1)", fns)
	fmt.Println(ctx.Clone().Eval(a), a)
	fmt.Println(ctx.Clone().Eval(b), b)
	fmt.Println(ctx.Clone().Eval(c), c)

	// Output:
	// 0 COUNT()
	// 1 COUNT(100)
	// 3 COUNT(3, 2, 1)
}

func ExampleVariadic() {
	// HYPOT(a, b, ...) is the Euclidean norm of its arguments.
	hypot := formula.Variadic(1, -1, func(out *big.Float, in []*big.Float) error {
		var sq big.Float
		out.SetInt64(0)
		for _, x := range in {
			sq.SetPrec(out.Prec()).Mul(x, x)
			out.Add(out, &sq)
		}
		out.Sqrt(out)
		return nil
	})
	e := &formula.Native{Funcs: map[string]formula.Func{"HYPOT": hypot}}
	v, err := e.Evaluate("HYPOT(3, 4) + HYPOT(A1)", map[string]float64{"A1": -2})
	fmt.Println(v, err)

	// Output:
	// 7 <nil>
}
