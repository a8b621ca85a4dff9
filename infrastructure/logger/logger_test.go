package logger

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestNew_FileOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Level:      "debug",
		Outputs:    []string{"file"},
		OutputFile: filepath.Join(dir, "app.log"),
		ErrorFile:  filepath.Join(dir, "error.log"),
		Format:     "json",
	}
	l, err := New(cfg)
	require.NoError(t, err)

	l.LogRun("run-1", map[string]interface{}{"records": 12})
	l.LogFailure(3, errors.New("bad strike"), nil)
	l.LogError(errors.New("boom"), map[string]interface{}{"stage": "load"})
	require.NoError(t, l.Close())

	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)

	var run map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &run))
	assert.Equal(t, "analysis_run", run["msg"])
	assert.Equal(t, "run-1", run["run_id"])
	assert.Equal(t, 12.0, run["records"])

	var failure map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &failure))
	assert.Equal(t, "warn", failure["level"])
	assert.Equal(t, "bad strike", failure["error"])

	// 错误文件只收 error 级别
	errData, err := os.ReadFile(cfg.ErrorFile)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(string(errData)), "\n")+1)
	assert.Contains(t, string(errData), "boom")
}

func TestWithFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	l, err := New(Config{Level: "info", Outputs: []string{"file"}, OutputFile: path, Format: "json"})
	require.NoError(t, err)

	l.WithFields(map[string]interface{}{"symbol": "NIFTY"}).Info("loaded")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"symbol":"NIFTY"`)
}

func TestNop(t *testing.T) {
	l := Nop()
	l.LogRun("x", nil)
	l.LogFailure(0, errors.New("e"), nil)
	assert.NoError(t, l.Close())
}
