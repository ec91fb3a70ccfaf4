package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// resetFlags restores the global flags and logger after a test.
func resetFlags(t *testing.T) {
	t.Helper()
	old := struct {
		paramsPath, engineName, unitName string
		givens                           []string
		prec                             uint
		echo                             bool
		logger                           *zap.Logger
	}{paramsPath, engineName, unitName, givens, prec, echo, logger}
	paramsPath, engineName, unitName, givens, prec, echo = "", "native", "", nil, 64, false
	logger = zap.NewNop()
	t.Cleanup(func() {
		paramsPath, engineName, unitName = old.paramsPath, old.engineName, old.unitName
		givens, prec, echo, logger = old.givens, old.prec, old.echo, old.logger
	})
}

// writeParams writes a parameters file into a temporary directory.
func writeParams(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))
	return path
}

const sampleParams = `unit: kg
params:
  - key: A1
    value: 456.25
    label: Line 1 output
  - key: B
    value: 3
`
