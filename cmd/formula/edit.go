package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/zephyrtronium/formula"
)

const historyFile = ".formula_history"

var historyPath string

func defaultHistory() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, historyFile)
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Build a formula interactively",
	Long: `Build a formula one key at a time. Each line holds keys separated by
spaces, the same keys that build accepts. Lines starting with ":" are
commands; type :help for a list.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}

		ln := liner.NewLiner()
		defer ln.Close()
		ln.SetCtrlCAborts(true)
		ln.SetCompleter(completeKey(e.params))
		if historyPath != "" {
			if f, err := os.Open(historyPath); err == nil {
				_, _ = ln.ReadHistory(f)
				_ = f.Close()
			}
			defer func() {
				if f, err := os.Create(historyPath); err == nil {
					_, _ = ln.WriteHistory(f)
					_ = f.Close()
				}
			}()
		}

		ed := &editor{s: e.session(), params: e.params, w: cmd.OutOrStdout()}
		return ed.run(ln.Prompt, ln.AppendHistory)
	},
}

// editor runs an interactive session on a line-oriented terminal.
type editor struct {
	s      *formula.Session
	params []formula.Param
	w      io.Writer
}

const editHelp = `keys: digits . + - * / ( ) , back clear FUNC name
:compute  evaluate the formula
:apply    evaluate, print the payload, and exit
:params   list parameters
:clear    remove all keys
:quit     exit without applying`

// run reads lines until the session is applied or discarded or the input
// ends.
func (ed *editor) run(prompt func(string) (string, error), remember func(string)) error {
	for {
		line, err := prompt("formula> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(ed.w)
			ed.s.Discard()
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		remember(line)

		if strings.HasPrefix(line, ":") {
			done, err := ed.command(strings.ToLower(line))
			if err != nil {
				return err
			}
			if done {
				return nil
			}
			continue
		}
		for _, key := range strings.Fields(line) {
			if !applyKey(ed.s, key) {
				fmt.Fprintf(ed.w, "rejected %q\n", key)
			}
		}
		ed.status()
	}
}

// command runs a colon command. It reports whether the editor is done.
func (ed *editor) command(cmd string) (bool, error) {
	switch cmd {
	case ":compute":
		r, err := ed.s.Compute()
		if err != nil {
			fmt.Fprintln(ed.w, "error:", err)
			return false, nil
		}
		fmt.Fprintln(ed.w, r.Display())
	case ":apply":
		p, err := ed.s.Apply()
		if err != nil {
			fmt.Fprintln(ed.w, "error:", err)
			return false, nil
		}
		return true, writePayload(ed.w, p)
	case ":params":
		if len(ed.params) == 0 {
			fmt.Fprintln(ed.w, "no parameters")
		}
		for _, p := range ed.params {
			fmt.Fprintf(ed.w, "%s = %s", p.Key, formula.FormatValue(p.Value))
			if p.Label != "" {
				fmt.Fprintf(ed.w, "  (%s)", p.Label)
			}
			fmt.Fprintln(ed.w)
		}
	case ":clear":
		ed.s.Clear()
		ed.status()
	case ":quit":
		ed.s.Discard()
		return true, nil
	case ":help":
		fmt.Fprintln(ed.w, editHelp)
	default:
		fmt.Fprintln(ed.w, "unknown command. Type :help for a list.")
	}
	return false, nil
}

// status prints the tokens, the auto-close hint, and the state.
func (ed *editor) status() {
	q := ed.s.Sequence()
	fmt.Fprintf(ed.w, "%s  [%s]", q, ed.s.State())
	if n := ed.s.Hint(); n > 0 {
		fmt.Fprintf(ed.w, "  will auto-add %d )", n)
	}
	fmt.Fprintln(ed.w)
}
