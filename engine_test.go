package formula_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyrtronium/formula"
)

func seq(t *testing.T, toks ...formula.Token) formula.Sequence {
	t.Helper()
	s := formula.NewSequence(toks...)
	require.Len(t, s.Tokens(), len(toks), "some tokens were rejected")
	return s
}

var (
	lparen = formula.Token{Kind: formula.KindLParen, Text: "("}
	rparen = formula.Token{Kind: formula.KindRParen, Text: ")"}
	comma  = formula.Token{Kind: formula.KindComma, Text: ","}
)

func num(s string) formula.Token  { return formula.Token{Kind: formula.KindNumber, Text: s} }
func name(s string) formula.Token { return formula.Token{Kind: formula.KindName, Text: s} }
func op(s string) formula.Token   { return formula.Token{Kind: formula.KindOp, Text: s} }
func fn(s string) formula.Token   { return formula.Token{Kind: formula.KindFunc, Text: s} }

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name    string
		toks    []formula.Token
		params  []formula.Param
		value   float64
		display string
	}{
		{
			name:    "constant",
			toks:    []formula.Token{num("2"), op("+"), num("3")},
			value:   5,
			display: "2+3 = 5.000",
		},
		{
			name:    "param",
			toks:    []formula.Token{name("A1"), op("+"), num("1")},
			params:  []formula.Param{{Key: "A1", Value: 456.25}},
			value:   457.25,
			display: "A1+1 = 457.250",
		},
		{
			name:    "call",
			toks:    []formula.Token{fn("SUM"), lparen, name("A"), comma, name("B"), rparen},
			params:  []formula.Param{{Key: "A", Value: 2}, {Key: "B", Value: 3}},
			value:   5,
			display: "SUM(A,B) = 5.000",
		},
		{
			name:    "autoclose",
			toks:    []formula.Token{fn("SUM"), lparen, name("A")},
			params:  []formula.Param{{Key: "A", Value: 10}},
			value:   10,
			display: "SUM(A) = 10.000",
		},
		{
			name:    "autoclose-nested",
			toks:    []formula.Token{lparen, fn("MAX"), lparen, name("A"), comma, num("4")},
			params:  []formula.Param{{Key: "A", Value: 1}},
			value:   4,
			display: "(MAX(A,4)) = 4.000",
		},
		{
			name:    "precedence",
			toks:    []formula.Token{lparen, num("1"), op("+"), num("2"), rparen, op("*"), num("3")},
			value:   9,
			display: "(1+2)*3 = 9.000",
		},
		{
			name:    "rounded",
			toks:    []formula.Token{num("2"), op("/"), num("3")},
			value:   2.0 / 3.0,
			display: "2/3 = 0.667",
		},
		{
			name:    "negative",
			toks:    []formula.Token{num("1"), op("-"), num("3.5")},
			value:   -2.5,
			display: "1-3.5 = -2.500",
		},
		{
			name:    "average",
			toks:    []formula.Token{fn("AVERAGE"), lparen, name("A"), comma, name("B"), comma, num("6")},
			params:  []formula.Param{{Key: "A", Value: 1}, {Key: "B", Value: 2}},
			value:   3,
			display: "AVERAGE(A,B,6) = 3.000",
		},
		{
			name:    "lastwins",
			toks:    []formula.Token{name("A"), op("*"), num("2")},
			params:  []formula.Param{{Key: "A", Value: 1}, {Key: "A", Value: 5}},
			value:   10,
			display: "A*2 = 10.000",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := seq(t, c.toks...)
			r, err := formula.Evaluate(&formula.Native{}, s, formula.Params(c.params))
			require.NoError(t, err)
			assert.InDelta(t, c.value, r.Value, 1e-12)
			assert.Equal(t, c.display, r.Display())
			assert.Equal(t, s.Expression(), r.Expression)
		})
	}
}

func TestEvaluateIncomplete(t *testing.T) {
	cases := []struct {
		name string
		toks []formula.Token
	}{
		{"empty", nil},
		{"funconly", []formula.Token{fn("SUM"), lparen}},
		{"op", []formula.Token{num("2"), op("+")}},
		{"comma", []formula.Token{fn("SUM"), lparen, num("2"), comma}},
		{"open", []formula.Token{lparen}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := seq(t, c.toks...)
			_, err := formula.Evaluate(&formula.Native{}, s, nil)
			require.ErrorIs(t, err, formula.ErrIncomplete)
			assert.Equal(t, "incomplete formula", err.Error())
		})
	}
}

func TestEvaluateFailures(t *testing.T) {
	cases := []struct {
		name   string
		toks   []formula.Token
		params []formula.Param
		check  func(t *testing.T, err error)
	}{
		{
			name: "divzero",
			toks: []formula.Token{num("1"), op("/"), num("0")},
			check: func(t *testing.T, err error) {
				var nf *formula.NotFiniteError
				require.ErrorAs(t, err, &nf)
				assert.True(t, math.IsInf(nf.Value, 1))
			},
		},
		{
			name: "zerozero",
			toks: []formula.Token{num("0"), op("/"), num("0")},
			check: func(t *testing.T, err error) {
				var de *formula.DomainError
				require.ErrorAs(t, err, &de)
			},
		},
		{
			name:   "undefined",
			toks:   []formula.Token{name("B2"), op("+"), num("1")},
			params: []formula.Param{{Key: "A1", Value: 1}},
			check: func(t *testing.T, err error) {
				var ne *formula.NameError
				require.ErrorAs(t, err, &ne)
				assert.Equal(t, "B2", ne.Name)
			},
		},
		{
			name:   "nan",
			toks:   []formula.Token{name("A1")},
			params: []formula.Param{{Key: "A1", Value: math.NaN()}},
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "not a number")
			},
		},
		{
			name: "unknownfunc",
			toks: []formula.Token{fn("MEDIAN"), lparen, num("1")},
			check: func(t *testing.T, err error) {
				var oe *formula.OperatorError
				require.ErrorAs(t, err, &oe)
				assert.True(t, oe.Missing)
			},
		},
		{
			name: "arity",
			toks: []formula.Token{fn("IF"), lparen, num("1")},
			check: func(t *testing.T, err error) {
				var ce *formula.CallError
				require.ErrorAs(t, err, &ce)
				assert.Equal(t, 1, ce.Len)
			},
		},
		{
			name: "powoverflow",
			toks: []formula.Token{fn("POW"), lparen, num("2"), comma, num("2000")},
			check: func(t *testing.T, err error) {
				var nf *formula.NotFiniteError
				require.ErrorAs(t, err, &nf)
				assert.True(t, math.IsInf(nf.Value, 1))
			},
		},
		{
			name: "decimalpoint",
			toks: []formula.Token{num(".")},
			check: func(t *testing.T, err error) {
				var le *formula.LexError
				require.ErrorAs(t, err, &le)
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := seq(t, c.toks...)
			r, err := formula.Evaluate(&formula.Native{}, s, formula.Params(c.params))
			require.Error(t, err)
			var ee *formula.EvalError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, s.Expression(), ee.Expression)
			assert.Equal(t, s.Expression(), r.Expression)
			assert.Zero(t, r.Value)
			c.check(t, err)
		})
	}
}

func TestNativeFuncs(t *testing.T) {
	e := &formula.Native{Funcs: map[string]formula.Func{"SUM": nil}}
	_, err := e.Evaluate("SUM(1)", nil)
	assert.Error(t, err)
	v, err := e.Evaluate("SUM * 2", map[string]float64{"SUM": 4})
	require.NoError(t, err)
	assert.Equal(t, 8.0, v)
}

func TestNativePow(t *testing.T) {
	e := &formula.Native{}
	vars := map[string]float64{"A1": 7}
	cases := []struct {
		src  string
		want float64
	}{
		{"POW(5, 1)", 5},
		{"POW(A1, 1)", 7},
		{"(-2)^1", -2},
		{"POW(-3, 1)", -3},
		{"(-2)^3", -8},
		{"2^10", 1024},
		{"POW(A1, 2) - 49", 0},
	}
	for _, c := range cases {
		v, err := e.Evaluate(c.src, vars)
		if assert.NoError(t, err, c.src) {
			assert.InDelta(t, c.want, v, 1e-12, c.src)
		}
	}
	for _, src := range []string{"2^2000", "POW(2, 2000)", "A1^1e12"} {
		_, err := e.Evaluate(src, vars)
		var nf *formula.NotFiniteError
		if assert.ErrorAs(t, err, &nf, src) {
			assert.True(t, math.IsInf(nf.Value, 1), src)
		}
	}
}

func TestNativePrec(t *testing.T) {
	low := &formula.Native{Prec: 8}
	v, err := low.Evaluate("1 + 1/1000", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v, "8 bits should not represent 1.001")
	high := &formula.Native{Prec: 128}
	v, err = high.Evaluate("1 + 1/1000", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.001, v)
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		v    float64
		want string
	}{
		{0, "0.000"},
		{math.Copysign(0, -1), "0.000"},
		{-0.0001, "0.000"},
		{-0.0006, "-0.001"},
		{5, "5.000"},
		{457.25, "457.250"},
		{2.0 / 3.0, "0.667"},
		{1e6, "1000000.000"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, formula.FormatValue(c.v), "formatting %g", c.v)
	}
}

func TestResultDisplay(t *testing.T) {
	r := formula.Result{Expression: "A1+1", Value: 457.25, Text: "457.250"}
	assert.Equal(t, "A1+1 = 457.250", r.Display())
	assert.Equal(t, "457.250", r.Preview())
	r.Unit = "kg"
	assert.Equal(t, "A1+1 = 457.250 kg", r.Display())
	assert.Equal(t, "457.250 kg", r.Preview())
}

func TestEvalErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &formula.EvalError{Expression: "1+", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, `formula "1+": boom`, err.Error())
}
