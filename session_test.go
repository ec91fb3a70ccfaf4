package formula_test

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/zephyrtronium/formula"
)

func TestSessionLifecycle(t *testing.T) {
	var got []formula.Payload
	s := formula.NewSession(
		[]formula.Param{{Key: "A1", Value: 456.25, Label: "Unit cost"}},
		formula.OnApply(func(p formula.Payload) { got = append(got, p) }),
	)
	assert.Equal(t, formula.StateEmpty, s.State())
	assert.Equal(t, "-", s.Preview())

	require.True(t, s.InsertName("A1"))
	assert.Equal(t, formula.StateReady, s.State())
	require.True(t, s.InsertOp("+"))
	assert.Equal(t, formula.StateBuilding, s.State())
	require.True(t, s.InsertNumber("1"))
	assert.Equal(t, formula.StateReady, s.State())

	r, err := s.Compute()
	require.NoError(t, err)
	assert.Equal(t, formula.StateEvaluated, s.State())
	assert.Equal(t, 457.25, r.Value)
	assert.Equal(t, "457.250", s.Preview())

	// Editing after a computation returns to building.
	require.True(t, s.InsertNumber("0"))
	assert.Equal(t, formula.StateReady, s.State())
	_, ok := s.Result()
	assert.False(t, ok)
	assert.Equal(t, "-", s.Preview())
	require.True(t, s.Backspace())
	assert.Equal(t, "A1+1", s.Sequence().String())

	p, err := s.Apply()
	require.NoError(t, err)
	want := formula.Payload{Expression: "A1+1", Value: 457.25, DisplayText: "A1+1 = 457.250"}
	assert.Equal(t, want, p)
	require.Len(t, got, 1)
	assert.Equal(t, want, got[0])
	assert.Equal(t, formula.StateApplied, s.State())
	r, ok = s.Result()
	assert.True(t, ok)
	assert.Equal(t, "A1+1 = 457.250", r.Display())

	// Terminal.
	assert.False(t, s.InsertOp("+"))
	assert.False(t, s.Discard())
	_, err = s.Apply()
	assert.ErrorIs(t, err, formula.ErrClosed)
	_, err = s.Compute()
	assert.ErrorIs(t, err, formula.ErrClosed)
	assert.Len(t, got, 1, "payload delivered more than once")
	assert.Equal(t, formula.StateApplied, s.State())
}

func TestSessionFailure(t *testing.T) {
	s := formula.NewSession(nil)
	require.True(t, s.InsertNumber("1"))
	require.True(t, s.InsertOp("/"))
	require.True(t, s.InsertNumber("0"))

	_, err := s.Compute()
	require.Error(t, err)
	var nf *formula.NotFiniteError
	assert.ErrorAs(t, err, &nf)
	assert.Equal(t, formula.StateFailed, s.State())
	assert.Equal(t, err, s.Err())
	assert.Equal(t, "-", s.Preview())

	// The session stays editable.
	require.True(t, s.Backspace())
	require.True(t, s.InsertNumber("4"))
	assert.Equal(t, formula.StateReady, s.State())
	assert.NoError(t, s.Err())
	r, err := s.Compute()
	require.NoError(t, err)
	assert.Equal(t, "1/4 = 0.250", r.Display())
}

func TestSessionApplyFailure(t *testing.T) {
	called := false
	s := formula.NewSession(nil, formula.OnApply(func(formula.Payload) { called = true }))
	require.True(t, s.InsertName("missing"))
	_, err := s.Apply()
	var ne *formula.NameError
	require.ErrorAs(t, err, &ne)
	assert.False(t, called)
	assert.Equal(t, formula.StateFailed, s.State())
	assert.True(t, s.Clear())
	assert.Equal(t, formula.StateEmpty, s.State())
}

func TestSessionIncomplete(t *testing.T) {
	s := formula.NewSession([]formula.Param{{Key: "A", Value: 10}})
	require.True(t, s.InsertFunc("SUM"))
	assert.Equal(t, "SUM(", s.Sequence().String())
	assert.Equal(t, formula.StateBuilding, s.State())
	assert.Equal(t, 0, s.Hint())

	_, err := s.Compute()
	require.ErrorIs(t, err, formula.ErrIncomplete)
	assert.Equal(t, formula.StateFailed, s.State())
	_, err = s.Apply()
	require.ErrorIs(t, err, formula.ErrIncomplete)

	require.True(t, s.InsertName("A"))
	assert.Equal(t, 1, s.Hint())
	p, err := s.Apply()
	require.NoError(t, err)
	assert.Equal(t, "SUM(A)", p.Expression)
	assert.Equal(t, 10.0, p.Value)
	assert.Equal(t, "SUM(A) = 10.000", p.DisplayText)
}

func TestSessionRejects(t *testing.T) {
	s := formula.NewSession(nil)
	assert.False(t, s.InsertOp("+"))
	assert.False(t, s.InsertRParen())
	assert.False(t, s.InsertComma())
	assert.False(t, s.Backspace())
	assert.Equal(t, formula.StateEmpty, s.State())
	require.True(t, s.InsertLParen())
	assert.False(t, s.InsertRParen())
	require.True(t, s.InsertNumber("2"))
	assert.False(t, s.InsertName("A"))
	assert.False(t, s.InsertFunc("SUM"))
	require.True(t, s.InsertRParen())
	assert.Equal(t, "(2)", s.Sequence().String())
}

func TestSessionDiscard(t *testing.T) {
	called := false
	s := formula.NewSession(nil, formula.OnApply(func(formula.Payload) { called = true }))
	require.True(t, s.InsertNumber("2"))
	require.True(t, s.Discard())
	assert.Equal(t, formula.StateDiscarded, s.State())
	assert.False(t, s.InsertNumber("3"))
	_, err := s.Apply()
	assert.ErrorIs(t, err, formula.ErrClosed)
	assert.False(t, called)
}

func TestSessionParams(t *testing.T) {
	params := []formula.Param{{Key: "A", Value: 1}, {Key: "B", Value: 2}}
	s := formula.NewSession(params)
	params[0].Value = 100
	got := s.Params()
	assert.Equal(t, 1.0, got[0].Value)
	got[1].Value = 200
	assert.Equal(t, 2.0, s.Params()[1].Value)

	require.True(t, s.InsertName("A"))
	r, err := s.Compute()
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Value)
}

func TestSessionsIndependent(t *testing.T) {
	a := formula.NewSession(nil)
	b := formula.NewSession(nil)
	assert.NotEqual(t, a.ID(), b.ID())
	require.True(t, a.InsertNumber("1"))
	assert.Equal(t, formula.StateEmpty, b.State())
}

func TestSessionUnit(t *testing.T) {
	var seen formula.Sequence
	unit := func(s formula.Sequence) string {
		seen = s
		return "kg"
	}
	s := formula.NewSession([]formula.Param{{Key: "W", Value: 2}}, formula.WithUnit(unit))
	require.True(t, s.InsertFunc("MAX"))
	require.True(t, s.InsertName("W"))
	p, err := s.Apply()
	require.NoError(t, err)
	assert.Equal(t, "kg", p.Unit)
	assert.Equal(t, "MAX(W) = 2.000 kg", p.DisplayText)
	assert.Equal(t, "MAX(W)", seen.String())
}

func TestSessionsConcurrent(t *testing.T) {
	defer goleak.VerifyNone(t)
	params := []formula.Param{{Key: "A", Value: 1.5}}
	var g errgroup.Group
	got := make([]string, 16)
	for i := range got {
		g.Go(func() error {
			s := formula.NewSession(params)
			if !s.InsertName("A") || !s.InsertOp("*") || !s.InsertNumber(strconv.Itoa(i)) {
				return errors.New("insertion rejected")
			}
			p, err := s.Apply()
			if err != nil {
				return err
			}
			got[i] = p.DisplayText
			return nil
		})
	}
	require.NoError(t, g.Wait())
	for i, d := range got {
		want := "A*" + strconv.Itoa(i) + " = " + formula.FormatValue(1.5*float64(i))
		assert.Equal(t, want, d)
	}
}

type stubEngine struct {
	v   float64
	err error
}

func (e stubEngine) Evaluate(expr string, vars map[string]float64) (float64, error) {
	return e.v, e.err
}

func TestSessionEngine(t *testing.T) {
	s := formula.NewSession(nil, formula.WithEngine(stubEngine{v: 42}))
	require.True(t, s.InsertNumber("1"))
	r, err := s.Compute()
	require.NoError(t, err)
	assert.Equal(t, 42.0, r.Value)

	boom := errors.New("boom")
	s = formula.NewSession(nil, formula.WithEngine(stubEngine{err: boom}))
	require.True(t, s.InsertNumber("1"))
	_, err = s.Compute()
	assert.ErrorIs(t, err, boom)
}

func TestSessionLogs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s := formula.NewSession(nil, formula.WithLogger(zap.New(core)))
	assert.False(t, s.InsertOp("*"))
	require.True(t, s.InsertNumber("0"))
	require.True(t, s.InsertOp("/"))
	require.True(t, s.InsertNumber("0"))
	_, err := s.Compute()
	require.Error(t, err)

	rejected := logs.FilterMessage("rejected insertion").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, "op", rejected[0].ContextMap()["op"])
	assert.Equal(t, s.ID().String(), rejected[0].ContextMap()["session"])
	assert.Equal(t, 1, logs.FilterMessage("evaluation failed").Len())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "ready", formula.StateReady.String())
	assert.Equal(t, "discarded", formula.StateDiscarded.String())
	assert.Equal(t, "State(99)", formula.State(99).String())
	assert.True(t, formula.StateApplied.Terminal())
	assert.False(t, formula.StateFailed.Terminal())
}
