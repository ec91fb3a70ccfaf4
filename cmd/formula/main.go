// Command formula builds and evaluates spreadsheet-style formulas over a set
// of named parameters.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	paramsPath string
	givens     []string
	engineName string
	prec       uint
	unitName   string

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "formula",
	Short: "Build and evaluate formulas over named parameters",
	Long: `formula evaluates arithmetic formulas with spreadsheet functions such as
SUM, MAX, and ROUND against a set of named parameters.

Parameters come from a YAML file given with --params and from any number of
--given name=value flags. Formulas can be typed directly (eval), replayed
from keypad presses (build), or built interactively (edit).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&paramsPath, "params", "", "YAML file of parameters")
	rootCmd.PersistentFlags().StringArrayVar(&givens, "given", nil, "name=value parameter definition (any number of times)")
	rootCmd.PersistentFlags().StringVar(&engineName, "engine", "native", "evaluation engine, native or expr")
	rootCmd.PersistentFlags().UintVarP(&prec, "prec", "p", 64, "precision of native calculations in bits")
	rootCmd.PersistentFlags().StringVar(&unitName, "unit", "", "unit of results (overrides the params file)")

	// Eval flags
	evalCmd.Flags().StringVar(&inName, "in", "", "input file (default stdin if no args given)")
	evalCmd.Flags().BoolVarP(&perLine, "lines", "n", false, "evaluate separate input lines as separate formulas")
	evalCmd.Flags().BoolVar(&echo, "echo", false, "print parse trees")

	// Edit flags
	editCmd.Flags().StringVar(&historyPath, "history", defaultHistory(), "line history file")

	// Add commands to root
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(editCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
