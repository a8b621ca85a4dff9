package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := cmd.Execute()
	return out.String(), err
}

func TestPriceCmd(t *testing.T) {
	out, err := execute(t, "price", "--spot", "24200", "--strike", "24200", "--days", "30", "--vol", "0.15")
	require.NoError(t, err)
	assert.Contains(t, out, "476.3655")
	assert.Contains(t, out, "call")
}

func TestPriceCmd_RequiresVol(t *testing.T) {
	_, err := execute(t, "price", "--spot", "24200", "--strike", "24200", "--days", "30")
	assert.Error(t, err)
}

func TestIVCmd(t *testing.T) {
	out, err := execute(t, "iv", "--spot", "24200", "--strike", "24200", "--days", "30", "--premium", "476.3655")
	require.NoError(t, err)
	assert.Contains(t, out, "converged=true")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "optchain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// 只含利率与求解器的配置：price/iv 不要求 spot/expiry
const pricingYAML = `
market:
  riskFreeRate: 0.10
solver:
  maxIterations: 3
`

func TestIVCmd_UsesConfigSolverAndRate(t *testing.T) {
	cfgPath := writeConfig(t, pricingYAML)
	out, err := execute(t, "--config", cfgPath, "iv", "--spot", "24200", "--strike", "24200", "--days", "30", "--premium", "476.3655")
	require.NoError(t, err)
	assert.Contains(t, out, "iterations=3 ")
	assert.Contains(t, out, "converged=false")

	// 命令行显式给出的参数优先于配置
	out, err = execute(t, "--config", cfgPath, "iv", "--spot", "24200", "--strike", "24200", "--days", "30",
		"--premium", "476.3655", "--max-iter", "100", "--rate", "0.06")
	require.NoError(t, err)
	assert.Contains(t, out, "converged=true")
}

func TestPriceCmd_RateFromConfig(t *testing.T) {
	cfgPath := writeConfig(t, pricingYAML)
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"配置利率", nil, "520.0155"},
		{"命令行覆盖", []string{"--rate", "0.06"}, "476.3655"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"--config", cfgPath, "price", "--spot", "24200", "--strike", "24200", "--days", "30", "--vol", "0.15"}, tc.args...)
			out, err := execute(t, args...)
			require.NoError(t, err)
			assert.Contains(t, out, tc.want)
		})
	}
}

func TestIVCmd_InvalidSolverConfig(t *testing.T) {
	cfgPath := writeConfig(t, "solver:\n  tolerance: -1\n")
	_, err := execute(t, "--config", cfgPath, "iv", "--spot", "24200", "--strike", "24200", "--days", "30", "--premium", "476.3655")
	assert.Error(t, err)
}

func TestAnalyzeCmd(t *testing.T) {
	expiry := time.Now().AddDate(0, 1, 0).Format(time.DateOnly)
	jsonPath := filepath.Join(t.TempDir(), "snapshot.json")

	out, err := execute(t, "analyze",
		"--csv", filepath.Join("..", "..", "chain", "testdata", "nifty_chain.csv"),
		"--spot", "24200",
		"--expiry", expiry,
		"--json", jsonPath,
		"--log-level", "error",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Summary for NIFTY")
	assert.Contains(t, out, "JSON written to")

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"runId"`)
}

func TestAnalyzeCmd_Plot(t *testing.T) {
	expiry := time.Now().AddDate(0, 1, 0).Format(time.DateOnly)
	chart := filepath.Join(t.TempDir(), "smile.svg")

	out, err := execute(t, "analyze",
		"--csv", filepath.Join("..", "..", "chain", "testdata", "nifty_chain.csv"),
		"--spot", "24200",
		"--expiry", expiry,
		"--plot", chart,
		"--log-level", "error",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "IV smile chart written to")

	data, err := os.ReadFile(chart)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
}

func TestAnalyzeCmd_RequiresChainFile(t *testing.T) {
	_, err := execute(t, "analyze", "--spot", "24200", "--expiry", "2030-01-30")
	assert.Error(t, err)
}
