package main

import (
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/zephyrtronium/formula"
)

var buildCmd = &cobra.Command{
	Use:   "build KEY...",
	Short: "Replay keypad presses into a formula and apply it",
	Long: `Replay keypad presses into an editing session and apply the result,
printing the payload as YAML.

Keys are digits and ".", the operators + - * /, "(", ")", ",", function names
such as SUM, "back", "clear", and parameter names. Rejected keys are skipped
as the keypad would.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		s := e.session()
		for _, key := range args {
			if !applyKey(s, key) && logger != nil {
				logger.Warn("key rejected",
					zap.String("key", key),
					zap.String("formula", s.Sequence().String()),
				)
			}
		}
		p, err := s.Apply()
		if err != nil {
			return err
		}
		return writePayload(cmd.OutOrStdout(), p)
	},
}

// writePayload writes an applied payload as YAML.
func writePayload(w io.Writer, p formula.Payload) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}
