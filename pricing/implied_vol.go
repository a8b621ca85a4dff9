package pricing

import (
	"fmt"
	"math"
)

// SolverConfig 隐含波动率二分求解参数。
type SolverConfig struct {
	VolLower      float64 `yaml:"volLower"`      // 搜索区间下界
	VolUpper      float64 `yaml:"volUpper"`      // 搜索区间上界
	Tolerance     float64 `yaml:"tolerance"`     // |模型价 - 市场价| 收敛阈值
	MaxIterations int     `yaml:"maxIterations"` // 最大迭代次数
}

// DefaultSolverConfig returns the bracket (1e-4, 5.0), tolerance 1e-6 and 100 iterations.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		VolLower:      1e-4,
		VolUpper:      5.0,
		Tolerance:     1e-6,
		MaxIterations: 100,
	}
}

func (c SolverConfig) Validate() error {
	if !(c.VolLower > 0) {
		return fmt.Errorf("%w: volLower must be > 0, got %v", ErrInvalidSolverConfig, c.VolLower)
	}
	if !(c.VolUpper > c.VolLower) || math.IsInf(c.VolUpper, 1) {
		return fmt.Errorf("%w: volUpper must be finite and > volLower, got %v", ErrInvalidSolverConfig, c.VolUpper)
	}
	if !(c.Tolerance > 0) {
		return fmt.Errorf("%w: tolerance must be > 0, got %v", ErrInvalidSolverConfig, c.Tolerance)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: maxIterations must be > 0, got %d", ErrInvalidSolverConfig, c.MaxIterations)
	}
	return nil
}

// Solution is the outcome of a bisection run. Converged=false means the
// iteration budget ran out and Vol is the midpoint of the final bracket;
// this happens for targets outside the bracket's price range and is not an error.
type Solution struct {
	Vol        float64
	Iterations int
	Converged  bool
	Residual   float64 // model price at Vol minus market price, as of the last trial
}

// SolveImpliedVol finds σ with Price(p.WithVol(σ), kind) ≈ marketPrice by
// bisection on [cfg.VolLower, cfg.VolUpper]. p.Vol is ignored.
func SolveImpliedVol(marketPrice float64, p MarketParams, kind OptionKind, cfg SolverConfig) (Solution, error) {
	if err := cfg.Validate(); err != nil {
		return Solution{}, err
	}
	if math.IsNaN(marketPrice) {
		return Solution{}, fmt.Errorf("%w: market price is NaN", ErrInvalidParameters)
	}

	low, high := cfg.VolLower, cfg.VolUpper
	var diff float64
	for i := 1; i <= cfg.MaxIterations; i++ {
		mid := 0.5 * (low + high)
		trial, err := Price(p.WithVol(mid), kind)
		if err != nil {
			return Solution{}, err
		}
		diff = trial - marketPrice
		if math.Abs(diff) < cfg.Tolerance {
			return Solution{Vol: mid, Iterations: i, Converged: true, Residual: diff}, nil
		}
		// 价格随 σ 单调递增：模型价偏高则 σ 偏高
		if diff > 0 {
			high = mid
		} else {
			low = mid
		}
	}
	return Solution{
		Vol:        0.5 * (low + high),
		Iterations: cfg.MaxIterations,
		Converged:  false,
		Residual:   diff,
	}, nil
}

// ImpliedVolatility is SolveImpliedVol without the diagnostics.
func ImpliedVolatility(marketPrice float64, p MarketParams, kind OptionKind, cfg SolverConfig) (float64, error) {
	sol, err := SolveImpliedVol(marketPrice, p, kind, cfg)
	if err != nil {
		return 0, err
	}
	return sol.Vol, nil
}
