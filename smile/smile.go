// Package smile filters analysed records to a plausible implied-volatility
// band and derives per-kind smile curves and summary statistics.
package smile

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"option-analytics-go/analysis"
	"option-analytics-go/pricing"
)

// ErrInvalidBand 表示 IV 区间配置不合法。
var ErrInvalidBand = errors.New("invalid iv band")

// Band 是 IV 的合理区间（开区间）。
type Band struct {
	MinIV float64 `yaml:"minIV" json:"minIv"`
	MaxIV float64 `yaml:"maxIV" json:"maxIv"`
}

// DefaultBand 返回 (0.01, 3.0)
func DefaultBand() Band {
	return Band{MinIV: 0.01, MaxIV: 3.0}
}

// Validate checks 0 <= MinIV < MaxIV.
func (b Band) Validate() error {
	if b.MinIV < 0 || !(b.MaxIV > b.MinIV) {
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidBand, b.MinIV, b.MaxIV)
	}
	return nil
}

// Contains reports whether MinIV < iv < MaxIV.
func (b Band) Contains(iv float64) bool {
	return iv > b.MinIV && iv < b.MaxIV
}

// Filter keeps records whose IV lies strictly inside band and reports how
// many were dropped. Input order is preserved.
func Filter(records []analysis.Record, band Band) ([]analysis.Record, int) {
	kept := make([]analysis.Record, 0, len(records))
	for _, r := range records {
		if band.Contains(r.IV) {
			kept = append(kept, r)
		}
	}
	return kept, len(records) - len(kept)
}

// Point 是 IV 微笑曲线上的一个点
type Point struct {
	Strike float64 `json:"strike"`
	IV     float64 `json:"iv"`
}

// Curve returns the (strike, IV) points of one kind sorted by strike.
func Curve(records []analysis.Record, kind pricing.OptionKind) []Point {
	var pts []Point
	for _, r := range records {
		if r.Kind == kind {
			pts = append(pts, Point{Strike: r.Strike, IV: r.IV})
		}
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Strike < pts[j].Strike })
	return pts
}

// ATMStrike returns the strike closest to spot; ties go to the lower strike.
// NaN when records is empty.
func ATMStrike(records []analysis.Record) float64 {
	best, dist := math.NaN(), math.Inf(1)
	for _, r := range records {
		d := math.Abs(r.Strike - r.Spot)
		if d < dist || (d == dist && r.Strike < best) {
			best, dist = r.Strike, d
		}
	}
	return best
}

// Summary 单一期权类型的 IV 统计
type Summary struct {
	Kind     pricing.OptionKind `json:"kind"`
	Count    int                `json:"count"`
	MeanIV   float64            `json:"meanIv"`
	MedianIV float64            `json:"medianIv"`
	StdDevIV float64            `json:"stdDevIv"`
	MinIV    float64            `json:"minIv"`
	MaxIV    float64            `json:"maxIv"`
	ATMIV    float64            `json:"atmIv"`
}

// Summarize computes IV statistics over records of one kind. A kind with no
// records yields a zero Summary with Count 0.
func Summarize(records []analysis.Record, kind pricing.OptionKind) (Summary, error) {
	s := Summary{Kind: kind}
	var ivs stats.Float64Data
	var ofKind []analysis.Record
	for _, r := range records {
		if r.Kind == kind {
			ivs = append(ivs, r.IV)
			ofKind = append(ofKind, r)
		}
	}
	if len(ivs) == 0 {
		return s, nil
	}
	s.Count = len(ivs)

	var err error
	if s.MeanIV, err = ivs.Mean(); err != nil {
		return s, fmt.Errorf("mean iv: %w", err)
	}
	if s.MedianIV, err = ivs.Median(); err != nil {
		return s, fmt.Errorf("median iv: %w", err)
	}
	if s.StdDevIV, err = ivs.StandardDeviation(); err != nil {
		return s, fmt.Errorf("stddev iv: %w", err)
	}
	if s.MinIV, err = ivs.Min(); err != nil {
		return s, fmt.Errorf("min iv: %w", err)
	}
	if s.MaxIV, err = ivs.Max(); err != nil {
		return s, fmt.Errorf("max iv: %w", err)
	}

	atm := ATMStrike(ofKind)
	for _, r := range ofKind {
		if r.Strike == atm {
			s.ATMIV = r.IV
			break
		}
	}
	return s, nil
}

// SummarizeAll returns call then put summaries, skipping kinds with no records.
func SummarizeAll(records []analysis.Record) ([]Summary, error) {
	var out []Summary
	for _, kind := range []pricing.OptionKind{pricing.Call, pricing.Put} {
		s, err := Summarize(records, kind)
		if err != nil {
			return nil, err
		}
		if s.Count > 0 {
			out = append(out, s)
		}
	}
	return out, nil
}
