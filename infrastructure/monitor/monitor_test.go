package monitor

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_ObserveSolve(t *testing.T) {
	m := New(DefaultConfig())

	m.ObserveSolve("call", 30, true)
	m.ObserveSolve("call", 100, false)
	m.ObserveSolve("put", 25, true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.quotesAnalyzed.WithLabelValues("call")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.quotesAnalyzed.WithLabelValues("put")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.solverNonConv))
	assert.Equal(t, 1, testutil.CollectAndCount(m.solverIterations))
}

func TestMonitor_ObserveRun(t *testing.T) {
	m := New(DefaultConfig())

	m.ObserveFailure("invalid_parameters")
	m.ObserveFailure("invalid_parameters")
	m.ObserveRun(40, 2, 15*time.Millisecond)
	m.ObserveRun(38, 0, 12*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.quoteFailures.WithLabelValues("invalid_parameters")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.runsTotal))
	assert.Equal(t, 38.0, testutil.ToFloat64(m.lastRunRecords))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.lastRunFailed))
}

func TestMonitor_GaugesAndBand(t *testing.T) {
	m := New(DefaultConfig())

	m.RecordOutOfBand(0)
	m.RecordOutOfBand(3)
	m.UpdateWSClients(4)
	m.UpdateWSClients(2)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ivOutOfBand))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.wsClients))
}

func TestMonitor_Handler(t *testing.T) {
	m := New(Config{Namespace: "test", Subsystem: "chain"})
	m.ObserveSolve("put", 20, true)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, `test_chain_quotes_analyzed_total{kind="put"} 1`))
	assert.Contains(t, text, "test_chain_solver_iterations_bucket")
}
