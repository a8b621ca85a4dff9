package report_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"option-analytics-go/analysis"
	"option-analytics-go/chain"
	"option-analytics-go/pricing"
	"option-analytics-go/report"
	"option-analytics-go/smile"
)

func sampleRecords() []analysis.Record {
	expiry := time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC)
	mk := func(strike float64, kind pricing.OptionKind, iv float64, converged bool) analysis.Record {
		q := chain.Quote{Symbol: "NIFTY", Spot: 24200, Strike: strike, Expiry: expiry, Kind: kind, LTP: 476.37, RiskFreeRate: 0.06, TimeToMaturity: 30.0 / 365}
		g, _ := pricing.ComputeGreeks(q.Params(iv), kind)
		return analysis.Record{Quote: q, IV: iv, Greeks: g, Iterations: 31, Converged: converged}
	}
	return []analysis.Record{
		mk(24200, pricing.Call, 0.15, true),
		mk(24200, pricing.Put, 0.16, true),
		mk(24500, pricing.Call, 0.14, false),
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	report.WriteTable(&buf, sampleRecords(), 2)
	out := buf.String()

	assert.Contains(t, out, "Strike")
	assert.Contains(t, out, "24,200.00")
	assert.Contains(t, out, "15.00")
	assert.NotContains(t, out, "24,500.00")
	assert.Contains(t, out, "... 1 more rows")

	buf.Reset()
	report.WriteTable(&buf, sampleRecords(), 0)
	assert.Contains(t, buf.String(), "24,500.00")
	// 未收敛的求解带星号
	assert.Contains(t, buf.String(), "31*")
}

func TestWriteSmileAndSummary(t *testing.T) {
	recs := sampleRecords()
	var buf bytes.Buffer
	report.WriteSmileTable(&buf, pricing.Call, smile.Curve(recs, pricing.Call))
	assert.Contains(t, buf.String(), "IV smile (call)")
	assert.Contains(t, buf.String(), "24,500.00")

	sums, err := smile.SummarizeAll(recs)
	require.NoError(t, err)
	buf.Reset()
	report.WriteSummary(&buf, sums)
	assert.Contains(t, buf.String(), "call")
	assert.Contains(t, buf.String(), "put")
	assert.Contains(t, buf.String(), "14.50")
}

func TestWriteFailures(t *testing.T) {
	var buf bytes.Buffer
	report.WriteFailures(&buf, nil)
	assert.Empty(t, buf.String())

	f := analysis.Failure{Index: 4, Quote: chain.Quote{Strike: 23000, Kind: pricing.Put, LTP: 12}, Err: errors.New("x"), Message: "invalid parameters: maturity"}
	report.WriteFailures(&buf, []analysis.Failure{f})
	assert.Contains(t, buf.String(), "1 quote(s) failed")
	assert.Contains(t, buf.String(), "invalid parameters: maturity")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf, sampleRecords()))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "symbol", rows[0][0])
	assert.Equal(t, "converged", rows[0][len(rows[0])-1])
	assert.Equal(t, []string{"NIFTY", "2025-01-30", "call"}, rows[1][:3])
	assert.Equal(t, "false", rows[3][len(rows[3])-1])
}

func TestSnapshotJSON(t *testing.T) {
	recs := sampleRecords()
	snap, err := report.NewSnapshot("NIFTY", 24200, recs, nil, 2)
	require.NoError(t, err)

	_, err = uuid.Parse(snap.RunID)
	require.NoError(t, err)
	require.NotNil(t, snap.ATMStrike)
	assert.Equal(t, 24200.0, *snap.ATMStrike)
	assert.Len(t, snap.Summaries, 2)

	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf, snap))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "NIFTY", decoded["symbol"])
	assert.Equal(t, 2.0, decoded["outOfBand"])
	assert.Equal(t, []interface{}{}, decoded["failures"])

	first := decoded["records"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "call", first["kind"])
	assert.Equal(t, 24200.0, first["strike"])
	assert.Contains(t, first, "greeks")
}

func TestNewSnapshot_Empty(t *testing.T) {
	snap, err := report.NewSnapshot("NIFTY", 24200, nil, nil, 0)
	require.NoError(t, err)
	assert.Nil(t, snap.ATMStrike)
	assert.Empty(t, snap.Summaries)

	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf, snap))
	assert.NotContains(t, buf.String(), "NaN")
}

func TestWriteQuote(t *testing.T) {
	p := pricing.MarketParams{Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Vol: 0.2}
	price, err := pricing.Price(p, pricing.Call)
	require.NoError(t, err)
	g, err := pricing.ComputeGreeks(p, pricing.Call)
	require.NoError(t, err)

	var buf bytes.Buffer
	report.WriteQuote(&buf, pricing.Call, price, 0.2, g)
	assert.Contains(t, buf.String(), "10.4506")
	assert.Contains(t, buf.String(), "0.636831")
	assert.Contains(t, buf.String(), "20.0000")
}
