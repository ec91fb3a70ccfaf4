package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zephyrtronium/formula"
)

var (
	inName  string
	perLine bool
	echo    bool
)

var evalCmd = &cobra.Command{
	Use:   "eval [formula...]",
	Short: "Evaluate typed formulas",
	Long: `Evaluate formulas given as arguments, or read from --in or standard input
if there are no arguments. With -n, each line is a separate formula.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		in, closer, err := infile(inName, len(args) == 0, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if closer != nil {
			defer closer.Close()
		}
		srcs, err := sources(in, args, perLine)
		if err != nil {
			return err
		}
		return evalAll(cmd.OutOrStdout(), e, srcs)
	},
}

// infile opens the input named by the --in flag. "-" or an empty name with
// std set means stdin. The result is nil if there is no input file.
func infile(name string, std bool, stdin io.Reader) (io.Reader, io.Closer, error) {
	switch {
	case name != "" && name != "-":
		f, err := os.Open(name)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	case name == "-", std:
		return stdin, nil, nil
	}
	return nil, nil, nil
}

// sources collects formula texts from an input and arguments. Blank formulas
// are skipped. With lines set, each input is parsed one formula per line,
// and a formula continues onto the next line after an operator, open paren,
// or comma.
func sources(in io.Reader, args []string, lines bool) ([]string, error) {
	var r []string
	collect := func(src io.Reader) error {
		if lines {
			xs, err := formulas(bufio.NewReader(src))
			r = append(r, xs...)
			return err
		}
		b, err := io.ReadAll(src)
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(b)) != "" {
			r = append(r, string(b))
		}
		return nil
	}
	if in != nil {
		if err := collect(in); err != nil {
			return nil, err
		}
	}
	for _, arg := range args {
		if err := collect(strings.NewReader(arg)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// formulas parses formulas from src until it runs out, one per line. Each
// formula is returned in its canonical form.
func formulas(src io.RuneScanner) ([]string, error) {
	var r []string
	for n := 1; ; n++ {
		for {
			c, _, err := src.ReadRune()
			if err == io.EOF {
				return r, nil
			}
			if err != nil {
				return r, err
			}
			if !unicode.IsSpace(c) {
				src.UnreadRune()
				break
			}
		}
		x, err := formula.Parse(src, formula.StopOnNewline())
		if err != nil {
			return r, fmt.Errorf("formula %d: %w", n, err)
		}
		r = append(r, x.String())
	}
}

// evalAll evaluates each formula and prints its value, or its error in place
// of the value. The error is non-nil if any formula failed.
func evalAll(w io.Writer, e *env, srcs []string) error {
	vars := e.vars()
	failed := 0
	for _, src := range srcs {
		if echo {
			x, err := formula.ParseString(src)
			if err == nil {
				fmt.Fprintf(w, "%v : ", x)
			}
		}
		v, err := e.engine.Evaluate(src, vars)
		if err != nil {
			failed++
			if logger != nil {
				logger.Debug("evaluation failed", zap.String("formula", src), zap.Error(err))
			}
			fmt.Fprintln(w, err)
			continue
		}
		s := formula.FormatValue(v)
		if e.unit != "" {
			s += " " + e.unit
		}
		fmt.Fprintln(w, s)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d formulas failed", failed, len(srcs))
	}
	return nil
}
