// Package chain loads NSE-style option-chain CSV exports into typed quotes.
package chain

import (
	"time"

	"option-analytics-go/pricing"
)

// Quote 是一条待分析的期权报价，由加载器产生，分析器只读。
type Quote struct {
	Symbol         string             `json:"symbol"`
	Spot           float64            `json:"spot"`
	Strike         float64            `json:"strike"`
	Expiry         time.Time          `json:"expiry"`
	Kind           pricing.OptionKind `json:"kind"`
	LTP            float64            `json:"ltp"`
	RiskFreeRate   float64            `json:"riskFreeRate"`
	TimeToMaturity float64            `json:"timeToMaturity"` // 年
}

// Params builds pricing parameters for q with the given volatility.
func (q Quote) Params(vol float64) pricing.MarketParams {
	return pricing.MarketParams{
		Spot:     q.Spot,
		Strike:   q.Strike,
		Maturity: q.TimeToMaturity,
		Rate:     q.RiskFreeRate,
		Vol:      vol,
	}
}

// TimeToMaturity returns max(expiry - today, 0) whole days / 365.
func TimeToMaturity(expiry, today time.Time) float64 {
	days := daysBetween(truncateDay(today), truncateDay(expiry))
	if days < 0 {
		days = 0
	}
	return float64(days) / 365.0
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
