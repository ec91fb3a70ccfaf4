package formula

import (
	"errors"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the state of an editing session.
type State int8

const (
	// StateEmpty means the session has no tokens.
	StateEmpty State = iota
	// StateBuilding means the session has tokens which are not ready for
	// evaluation.
	StateBuilding
	// StateReady means the session's tokens are ready for evaluation.
	StateReady
	// StateEvaluated means the last computation succeeded and nothing has
	// been edited since.
	StateEvaluated
	// StateFailed means the last computation or apply failed and nothing has
	// been edited since.
	StateFailed
	// StateApplied is terminal: the formula was delivered.
	StateApplied
	// StateDiscarded is terminal: the editor was closed without applying.
	StateDiscarded
)

var stateNames = [...]string{
	StateEmpty:     "empty",
	StateBuilding:  "building",
	StateReady:     "ready",
	StateEvaluated: "evaluated",
	StateFailed:    "failed",
	StateApplied:   "applied",
	StateDiscarded: "discarded",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
	return stateNames[s]
}

// Terminal reports whether no further edits are possible in the state.
func (s State) Terminal() bool {
	return s == StateApplied || s == StateDiscarded
}

// Payload is what a session delivers when it is applied.
type Payload struct {
	Expression  string  `yaml:"expression"`
	Value       float64 `yaml:"value"`
	DisplayText string  `yaml:"displayText"`
	Unit        string  `yaml:"unit,omitempty"`
}

// ErrClosed is the error using a session that was applied or discarded.
var ErrClosed = errors.New("formula session is closed")

// SessionOption is an option used when creating a session.
type SessionOption interface {
	sessionOption()
}

type (
	engineopt struct{ e Engine }
	loggeropt struct{ l *zap.Logger }
	applyopt  func(Payload)
	unitopt   func(Sequence) string
)

func (engineopt) sessionOption() {}
func (loggeropt) sessionOption() {}
func (applyopt) sessionOption()  {}
func (unitopt) sessionOption()   {}

// WithEngine sets the engine used to evaluate the session's formula. The
// default is a Native engine with 64 bits of precision.
func WithEngine(e Engine) SessionOption {
	return engineopt{e}
}

// WithLogger sets the logger for the session. The default discards logs.
func WithLogger(l *zap.Logger) SessionOption {
	return loggeropt{l}
}

// OnApply sets a function to receive the payload when the session is applied.
func OnApply(f func(Payload)) SessionOption {
	return applyopt(f)
}

// WithUnit sets a function to infer the unit of a formula from its closed
// token sequence.
func WithUnit(f func(Sequence) string) SessionOption {
	return unitopt(f)
}

// Session is one run of the formula editor: a token sequence built by
// insertions, evaluated against a fixed set of parameters, and finally
// applied or discarded. A Session is not safe for concurrent use, but
// separate sessions share nothing.
type Session struct {
	id     uuid.UUID
	params []Param
	vars   map[string]float64
	engine Engine
	log    *zap.Logger
	apply  func(Payload)
	unit   func(Sequence) string

	seq Sequence
	// outcome is StateEmpty while editing, or the state the last compute,
	// apply, or discard left the session in.
	outcome State
	result  Result
	err     error
}

// NewSession starts an editing session with a list of parameters, which is
// copied. If parameter keys repeat, the last one wins.
func NewSession(params []Param, opts ...SessionOption) *Session {
	s := Session{
		id:     uuid.New(),
		params: append([]Param(nil), params...),
		vars:   Params(params),
		engine: &Native{},
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		switch opt := opt.(type) {
		case engineopt:
			s.engine = opt.e
		case loggeropt:
			s.log = opt.l
		case applyopt:
			s.apply = opt
		case unitopt:
			s.unit = opt
		default:
			panic("formula: unknown option type")
		}
	}
	s.log = s.log.With(zap.Stringer("session", s.id))
	return &s
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Params returns a copy of the session's parameters.
func (s *Session) Params() []Param {
	return append([]Param(nil), s.params...)
}

// Sequence returns the session's current tokens.
func (s *Session) Sequence() Sequence {
	return s.seq
}

// State returns the session's current state.
func (s *Session) State() State {
	if s.outcome != StateEmpty {
		return s.outcome
	}
	switch {
	case s.seq.Len() == 0:
		return StateEmpty
	case s.seq.Ready():
		return StateReady
	default:
		return StateBuilding
	}
}

// Result returns the result of the last successful computation, if the
// session is in StateEvaluated or StateApplied.
func (s *Session) Result() (Result, bool) {
	switch s.outcome {
	case StateEvaluated, StateApplied:
		return s.result, true
	}
	return Result{}, false
}

// Err returns the error from the last failed computation or apply, if the
// session is in StateFailed.
func (s *Session) Err() error {
	if s.outcome != StateFailed {
		return nil
	}
	return s.err
}

// Preview returns the formatted result of the last computation, or "-" if
// there is none.
func (s *Session) Preview() string {
	if r, ok := s.Result(); ok {
		return r.Preview()
	}
	return "-"
}

// Hint returns the number of close parens that evaluation will add.
func (s *Session) Hint() int {
	return s.seq.Pending()
}

// edit applies an edit to the session's sequence. op names the edit in logs.
func (s *Session) edit(op string, f func(Sequence) (Sequence, bool)) bool {
	if s.outcome.Terminal() {
		s.log.Debug("edit on closed session", zap.String("op", op), zap.Stringer("state", s.outcome))
		return false
	}
	n, ok := f(s.seq)
	if !ok {
		s.log.Debug("rejected insertion",
			zap.String("op", op),
			zap.Stringer("last", s.seq.Last().Kind),
			zap.Int("balance", s.seq.Balance()),
		)
		return false
	}
	s.seq = n
	s.outcome = StateEmpty
	s.result = Result{}
	s.err = nil
	return true
}

// InsertName inserts a parameter name. It reports whether the insertion was
// accepted.
func (s *Session) InsertName(key string) bool {
	return s.edit("name", func(q Sequence) (Sequence, bool) { return q.AppendName(key) })
}

// InsertNumber inserts digits or a decimal point. It reports whether the
// insertion was accepted.
func (s *Session) InsertNumber(text string) bool {
	return s.edit("number", func(q Sequence) (Sequence, bool) { return q.AppendNumber(text) })
}

// InsertFunc inserts a function name and its open paren. It reports whether
// the insertion was accepted.
func (s *Session) InsertFunc(name string) bool {
	return s.edit("func", func(q Sequence) (Sequence, bool) { return q.AppendFunc(name) })
}

// InsertOp inserts an operator. It reports whether the insertion was
// accepted.
func (s *Session) InsertOp(op string) bool {
	return s.edit("op", func(q Sequence) (Sequence, bool) { return q.AppendOp(op) })
}

// InsertLParen inserts an open paren. It reports whether the insertion was
// accepted.
func (s *Session) InsertLParen() bool {
	return s.edit("lparen", Sequence.AppendLParen)
}

// InsertRParen inserts a close paren. It reports whether the insertion was
// accepted.
func (s *Session) InsertRParen() bool {
	return s.edit("rparen", Sequence.AppendRParen)
}

// InsertComma inserts an argument separator. It reports whether the
// insertion was accepted.
func (s *Session) InsertComma() bool {
	return s.edit("comma", Sequence.AppendComma)
}

// Backspace removes the last character or token. It reports false if there
// was nothing to remove.
func (s *Session) Backspace() bool {
	return s.edit("backspace", func(q Sequence) (Sequence, bool) {
		if q.Len() == 0 {
			return q, false
		}
		return q.Backspace(), true
	})
}

// Clear removes all tokens.
func (s *Session) Clear() bool {
	return s.edit("clear", func(q Sequence) (Sequence, bool) { return q.Clear(), true })
}

// evaluate evaluates the session's sequence.
func (s *Session) evaluate() (Result, error) {
	r, err := Evaluate(s.engine, s.seq, s.vars)
	if err != nil {
		return Result{}, err
	}
	if s.unit != nil {
		r.Unit = s.unit(s.seq.Closed())
	}
	return r, nil
}

// fail records a failed computation.
func (s *Session) fail(op string, err error) {
	s.log.Debug("evaluation failed",
		zap.String("op", op),
		zap.String("formula", s.seq.String()),
		zap.Error(err),
	)
	s.outcome = StateFailed
	s.result = Result{}
	s.err = err
}

// Compute evaluates the formula for preview. If the formula is not ready, the
// error is ErrIncomplete. Errors leave the session editable.
func (s *Session) Compute() (Result, error) {
	if s.outcome.Terminal() {
		return Result{}, ErrClosed
	}
	r, err := s.evaluate()
	if err != nil {
		s.fail("compute", err)
		return Result{}, err
	}
	s.outcome = StateEvaluated
	s.result = r
	s.err = nil
	return r, nil
}

// Apply evaluates the formula and, on success, delivers the payload to the
// OnApply function and closes the session. If the formula is not ready, the
// error is ErrIncomplete. Errors leave the session editable.
func (s *Session) Apply() (Payload, error) {
	if s.outcome.Terminal() {
		return Payload{}, ErrClosed
	}
	r, err := s.evaluate()
	if err != nil {
		s.fail("apply", err)
		return Payload{}, err
	}
	p := Payload{
		Expression:  r.Expression,
		Value:       r.Value,
		DisplayText: r.Display(),
		Unit:        r.Unit,
	}
	s.outcome = StateApplied
	s.result = r
	s.err = nil
	s.log.Debug("applied", zap.String("display", p.DisplayText))
	if s.apply != nil {
		s.apply(p)
	}
	return p, nil
}

// Discard closes the session without applying it. It reports false if the
// session was already closed.
func (s *Session) Discard() bool {
	if s.outcome.Terminal() {
		return false
	}
	s.outcome = StateDiscarded
	s.log.Debug("discarded", zap.Int("tokens", s.seq.Len()))
	return true
}
