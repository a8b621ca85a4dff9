// Package analysis runs implied-volatility inversion and Greeks over a chain
// of quotes, keeping input order and collecting per-quote failures.
package analysis

import (
	"errors"

	"option-analytics-go/chain"
	"option-analytics-go/pricing"
)

// ErrNoQuotes 表示没有任何可分析的报价（空输入或全部失败）。
var ErrNoQuotes = errors.New("no valid options found")

// Record 是单条报价的分析结果。
type Record struct {
	chain.Quote
	IV         float64        `json:"iv"`
	Greeks     pricing.Greeks `json:"greeks"`
	Iterations int            `json:"iterations"`
	Converged  bool           `json:"converged"`
}

// Failure 记录无法分析的报价及其在输入中的位置。
type Failure struct {
	Index   int         `json:"index"`
	Quote   chain.Quote `json:"quote"`
	Err     error       `json:"-"`
	Message string      `json:"error"` // Err 的文本形式，供 JSON 快照使用
}

func newFailure(index int, q chain.Quote, err error) Failure {
	return Failure{Index: index, Quote: q, Err: err, Message: err.Error()}
}

// Reason classifies the failure for metrics labels.
func (f Failure) Reason() string {
	switch {
	case errors.Is(f.Err, pricing.ErrInvalidParameters):
		return "invalid_parameters"
	case errors.Is(f.Err, pricing.ErrUnknownOptionKind):
		return "unknown_option_kind"
	default:
		return "other"
	}
}

// Result 按输入顺序保存成功记录与失败明细。
type Result struct {
	Records  []Record
	Failures []Failure
}

// Len returns the number of analysed records.
func (r Result) Len() int { return len(r.Records) }

// FailureCount returns the number of quotes that could not be analysed.
func (r Result) FailureCount() int { return len(r.Failures) }
