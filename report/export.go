package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"option-analytics-go/analysis"
	"option-analytics-go/smile"
)

// csvRecord 是导出 CSV 的扁平行结构
type csvRecord struct {
	Symbol         string  `csv:"symbol"`
	Expiry         string  `csv:"expiry"`
	Kind           string  `csv:"kind"`
	Spot           float64 `csv:"spot"`
	Strike         float64 `csv:"strike"`
	LTP            float64 `csv:"ltp"`
	RiskFreeRate   float64 `csv:"risk_free_rate"`
	TimeToMaturity float64 `csv:"time_to_maturity"`
	IV             float64 `csv:"iv"`
	Delta          float64 `csv:"delta"`
	Gamma          float64 `csv:"gamma"`
	Vega           float64 `csv:"vega"`
	Theta          float64 `csv:"theta"`
	Rho            float64 `csv:"rho"`
	Iterations     int     `csv:"iterations"`
	Converged      bool    `csv:"converged"`
}

// WriteCSV exports records with a header row.
func WriteCSV(w io.Writer, records []analysis.Record) error {
	rows := make([]*csvRecord, 0, len(records))
	for _, r := range records {
		expiry := ""
		if !r.Expiry.IsZero() {
			expiry = r.Expiry.Format(time.DateOnly)
		}
		rows = append(rows, &csvRecord{
			Symbol:         r.Symbol,
			Expiry:         expiry,
			Kind:           r.Kind.String(),
			Spot:           r.Spot,
			Strike:         r.Strike,
			LTP:            r.LTP,
			RiskFreeRate:   r.RiskFreeRate,
			TimeToMaturity: r.TimeToMaturity,
			IV:             r.IV,
			Delta:          r.Greeks.Delta,
			Gamma:          r.Greeks.Gamma,
			Vega:           r.Greeks.Vega,
			Theta:          r.Greeks.Theta,
			Rho:            r.Greeks.Rho,
			Iterations:     r.Iterations,
			Converged:      r.Converged,
		})
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("write records csv: %w", err)
	}
	return nil
}

// Snapshot 是一次分析的完整结果，用于 JSON 导出和 websocket 推送。
type Snapshot struct {
	RunID       string             `json:"runId"`
	GeneratedAt time.Time          `json:"generatedAt"`
	Symbol      string             `json:"symbol"`
	Spot        float64            `json:"spot"`
	ATMStrike   *float64           `json:"atmStrike,omitempty"`
	Records     []analysis.Record  `json:"records"`
	Failures    []analysis.Failure `json:"failures"`
	Summaries   []smile.Summary    `json:"summaries"`
	OutOfBand   int                `json:"outOfBand"`
}

// NewSnapshot assembles a snapshot with a fresh run id. records are expected
// to be band-filtered already.
func NewSnapshot(symbol string, spot float64, records []analysis.Record, failures []analysis.Failure, outOfBand int) (Snapshot, error) {
	summaries, err := smile.SummarizeAll(records)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Symbol:      symbol,
		Spot:        spot,
		Records:     records,
		Failures:    failures,
		Summaries:   summaries,
		OutOfBand:   outOfBand,
	}
	if len(records) > 0 {
		atm := smile.ATMStrike(records)
		snap.ATMStrike = &atm
	}
	if snap.Records == nil {
		snap.Records = []analysis.Record{}
	}
	if snap.Failures == nil {
		snap.Failures = []analysis.Failure{}
	}
	return snap, nil
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
