package main

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/zephyrtronium/formula"
	"github.com/zephyrtronium/formula/exprlang"
)

// config is the contents of a parameters file.
type config struct {
	Unit   string          `yaml:"unit"`
	Params []formula.Param `yaml:"params"`
}

// loadConfig reads a parameters file. An empty path gives an empty config.
func loadConfig(path string) (config, error) {
	var c config
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("couldn't read params: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("couldn't parse params in %s: %w", path, err)
	}
	for i, p := range c.Params {
		if p.Key == "" {
			return c, fmt.Errorf("param %d in %s has no key", i+1, path)
		}
	}
	return c, nil
}

// parseGiven parses a name=value definition. The value may be any constant
// expression.
func parseGiven(s string, prec uint) (formula.Param, error) {
	d := strings.SplitN(s, "=", 2)
	if len(d) != 2 {
		return formula.Param{}, fmt.Errorf(`variable definitions must be "name=value", not %q`, s)
	}
	name := strings.TrimSpace(d[0])
	x, err := formula.ParseString(name, formula.DisableDefaultFuncs())
	if err != nil || len(x.Vars()) != 1 || x.Vars()[0] != name {
		return formula.Param{}, fmt.Errorf("%q is not a valid parameter name", name)
	}
	r, err := formula.EvalString(strings.TrimSpace(d[1]), formula.Prec(prec))
	if err != nil {
		return formula.Param{}, fmt.Errorf("setting %s: %w", name, err)
	}
	v, _ := r.Float64()
	return formula.Param{Key: name, Value: v}, nil
}

// newEngine selects an evaluation engine by name.
func newEngine(name string, prec uint) (formula.Engine, error) {
	switch name {
	case "native", "":
		return &formula.Native{Prec: prec}, nil
	case "expr":
		return &exprlang.Engine{}, nil
	default:
		return nil, fmt.Errorf("unknown engine %q (want native or expr)", name)
	}
}

// env is everything the commands need from the global flags.
type env struct {
	params []formula.Param
	engine formula.Engine
	unit   string
}

// setup resolves the global flags.
func setup() (*env, error) {
	if prec == 0 {
		return nil, fmt.Errorf("precision must be positive")
	}
	c, err := loadConfig(paramsPath)
	if err != nil {
		return nil, err
	}
	e := env{params: c.Params, unit: c.Unit}
	for _, g := range givens {
		p, err := parseGiven(g, prec)
		if err != nil {
			return nil, err
		}
		e.params = append(e.params, p)
	}
	if unitName != "" {
		e.unit = unitName
	}
	e.engine, err = newEngine(engineName, prec)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Debug("configured",
			zap.Int("params", len(e.params)),
			zap.String("engine", engineName),
			zap.Uint("prec", prec),
			zap.String("unit", e.unit),
		)
	}
	return &e, nil
}

// vars returns the variable scope for the parameters.
func (e *env) vars() map[string]float64 {
	return formula.Params(e.params)
}

// session starts an editing session over the parameters.
func (e *env) session(opts ...formula.SessionOption) *formula.Session {
	opts = append(opts, formula.WithEngine(e.engine))
	if logger != nil {
		opts = append(opts, formula.WithLogger(logger))
	}
	if e.unit != "" {
		unit := e.unit
		opts = append(opts, formula.WithUnit(func(formula.Sequence) string { return unit }))
	}
	return formula.NewSession(e.params, opts...)
}
