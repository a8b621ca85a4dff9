// Package pricing implements the Black-Scholes pricing model for European
// options, its closed-form Greeks and a bisection implied-volatility solver.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidParameters 表示 S、K、T 或 σ 非正（或 NaN），属于调用方契约错误。
	ErrInvalidParameters = errors.New("invalid market parameters")
	// ErrUnknownOptionKind 表示期权类型不是 Call/Put。
	ErrUnknownOptionKind = errors.New("unknown option kind")
	// ErrInvalidSolverConfig 表示求解器区间/容差/迭代次数配置非法。
	ErrInvalidSolverConfig = errors.New("invalid solver config")
)

// OptionKind selects the call or put branch of every formula.
type OptionKind int

const (
	Call OptionKind = iota
	Put
)

// ParseOptionKind accepts call/c/ce and put/p/pe in any case.
func ParseOptionKind(s string) (OptionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c", "ce":
		return Call, nil
	case "put", "p", "pe":
		return Put, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOptionKind, s)
}

func (k OptionKind) String() string {
	switch k {
	case Call:
		return "call"
	case Put:
		return "put"
	}
	return fmt.Sprintf("OptionKind(%d)", int(k))
}

// Valid reports whether k is Call or Put.
func (k OptionKind) Valid() bool {
	return k == Call || k == Put
}

// MarshalText 非法取值编码为 "OptionKind(n)"，以便失败明细仍可序列化。
func (k OptionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *OptionKind) UnmarshalText(b []byte) error {
	parsed, err := ParseOptionKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarketParams 描述一次完整的定价场景。值类型，修改任何字段都应构造新值。
type MarketParams struct {
	Spot     float64 // 标的价格 S
	Strike   float64 // 行权价 K
	Maturity float64 // 剩余期限 T（年）
	Rate     float64 // 无风险利率 r（年化，连续复利）
	Vol      float64 // 波动率 σ（年化）
}

// WithVol returns a copy of p with the volatility replaced.
func (p MarketParams) WithVol(vol float64) MarketParams {
	p.Vol = vol
	return p
}

// Validate enforces S>0, K>0, T>0, σ>0.
func (p MarketParams) Validate() error {
	switch {
	case !positive(p.Spot):
		return fmt.Errorf("%w: spot must be > 0, got %v", ErrInvalidParameters, p.Spot)
	case !positive(p.Strike):
		return fmt.Errorf("%w: strike must be > 0, got %v", ErrInvalidParameters, p.Strike)
	case !positive(p.Maturity):
		return fmt.Errorf("%w: maturity must be > 0, got %v", ErrInvalidParameters, p.Maturity)
	case !positive(p.Vol):
		return fmt.Errorf("%w: vol must be > 0, got %v", ErrInvalidParameters, p.Vol)
	case math.IsNaN(p.Rate) || math.IsInf(p.Rate, 0):
		return fmt.Errorf("%w: rate must be finite, got %v", ErrInvalidParameters, p.Rate)
	}
	return nil
}

// Greeks 为一组 (MarketParams, OptionKind) 的解析偏导数。
//   - Vega: 波动率变动 1 个百分点的价格变化
//   - Theta: 每年的时间衰减
//   - Rho: 利率变动 1 个百分点的价格变化
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Rho   float64 `json:"rho"`
}

// ThetaPerDay converts the annual theta to calendar-day decay.
func (g Greeks) ThetaPerDay() float64 {
	return g.Theta / 365
}

func positive(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}
