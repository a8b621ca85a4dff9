package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"option-analytics-go/analysis"
	"option-analytics-go/config"
	"option-analytics-go/pricing"
)

var today = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

func testConfig() config.AppConfig {
	cfg := config.Default()
	cfg.Market.Spot = 24200
	cfg.Market.Expiry = "2025-01-30"
	return cfg
}

// writeChain 生成 21 列的期权链 CSV；ltp 为 0 的一侧留空
func writeChain(t *testing.T, rows [][3]float64) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("OI,CHNG IN OI,VOLUME,IV,LTP,CHNG,BID QTY,BID,ASK,ASK QTY,STRIKE,BID QTY,BID,ASK,ASK QTY,CHNG,LTP,IV,VOLUME,CHNG IN OI,OI\n")
	for _, r := range rows {
		cells := make([]string, 21)
		for i := range cells {
			cells[i] = "-"
		}
		cells[10] = fmt.Sprintf("%.2f", r[0])
		if r[1] > 0 {
			cells[4] = fmt.Sprintf("%.6f", r[1])
		}
		if r[2] > 0 {
			cells[16] = fmt.Sprintf("%.6f", r[2])
		}
		b.WriteString(strings.Join(cells, ",") + "\n")
	}
	path := filepath.Join(t.TempDir(), "chain.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func bsPrice(t *testing.T, strike float64, kind pricing.OptionKind, vol float64) float64 {
	t.Helper()
	p := pricing.MarketParams{Spot: 24200, Strike: strike, Maturity: 30.0 / 365, Rate: 0.06, Vol: vol}
	v, err := pricing.Price(p, kind)
	require.NoError(t, err)
	return v
}

type bandCounter struct{ n int }

func (b *bandCounter) RecordOutOfBand(n int) { b.n += n }

func TestPipeline_Run(t *testing.T) {
	path := writeChain(t, [][3]float64{
		{24000, bsPrice(t, 24000, pricing.Call, 0.16), bsPrice(t, 24000, pricing.Put, 0.16)},
		{24200, bsPrice(t, 24200, pricing.Call, 0.15), bsPrice(t, 24200, pricing.Put, 0.15)},
		// 深度实值 call 报价低于内在价值，IV 会压到下界并被过滤
		{20000, 1.5, 0},
	})
	a, err := analysis.New(testConfig().AnalyzerConfig())
	require.NoError(t, err)

	band := &bandCounter{}
	p := New(testConfig(), a, nil, WithClock(func() time.Time { return today }), WithBandRecorder(band))
	out, err := p.Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 5, out.Result.Len())
	assert.Equal(t, 1, out.OutOfBand)
	assert.Equal(t, 1, band.n)
	require.Len(t, out.Filtered, 4)
	assert.InDelta(t, 0.16, out.Filtered[0].IV, 1e-4)
	assert.InDelta(t, 0.15, out.Filtered[3].IV, 1e-4)

	snap := out.Snapshot
	assert.Equal(t, "NIFTY", snap.Symbol)
	require.NotNil(t, snap.ATMStrike)
	assert.Equal(t, 24200.0, *snap.ATMStrike)
	assert.Len(t, snap.Summaries, 2)
	assert.NotEmpty(t, snap.RunID)
}

func TestPipeline_NoValidOptions(t *testing.T) {
	path := writeChain(t, [][3]float64{{24000, 0, 0}})
	a, err := analysis.New(testConfig().AnalyzerConfig())
	require.NoError(t, err)

	_, err = New(testConfig(), a, nil, WithClock(func() time.Time { return today })).Run(context.Background(), path)
	assert.ErrorIs(t, err, analysis.ErrNoQuotes)
}

func TestPipeline_ExpiredChainReportsFailures(t *testing.T) {
	path := writeChain(t, [][3]float64{{24000, 300, 120}})
	a, err := analysis.New(testConfig().AnalyzerConfig())
	require.NoError(t, err)

	expired := func() time.Time { return today.AddDate(0, 2, 0) }
	out, err := New(testConfig(), a, nil, WithClock(expired)).Run(context.Background(), path)
	assert.ErrorIs(t, err, analysis.ErrNoQuotes)
	assert.Equal(t, 2, out.Result.FailureCount())
	assert.ErrorIs(t, out.Result.Failures[0].Err, pricing.ErrInvalidParameters)
}

func TestPipeline_MissingFile(t *testing.T) {
	a, err := analysis.New(testConfig().AnalyzerConfig())
	require.NoError(t, err)
	_, err = New(testConfig(), a, nil).Run(context.Background(), filepath.Join(t.TempDir(), "none.csv"))
	assert.Error(t, err)
}
