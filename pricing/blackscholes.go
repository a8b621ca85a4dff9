package pricing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// normCDF is Φ(x); distuv evaluates it as ½·erfc(−x/√2).
func normCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// normPDF is φ(x).
func normPDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}

// d1d2 是所有公式共享的唯一参数校验点。
func d1d2(p MarketParams) (d1, d2 float64, err error) {
	if err := p.Validate(); err != nil {
		return 0, 0, err
	}
	volSqrtT := p.Vol * math.Sqrt(p.Maturity)
	d1 = (math.Log(p.Spot/p.Strike) + (p.Rate+0.5*p.Vol*p.Vol)*p.Maturity) / volSqrtT
	d2 = d1 - volSqrtT
	return d1, d2, nil
}

// Price returns the Black-Scholes fair value of a European option
// (lognormal underlying, constant vol and rate, no dividends).
func Price(p MarketParams, kind OptionKind) (float64, error) {
	d1, d2, err := d1d2(p)
	if err != nil {
		return 0, err
	}
	discK := p.Strike * math.Exp(-p.Rate*p.Maturity)
	switch kind {
	case Call:
		return p.Spot*normCDF(d1) - discK*normCDF(d2), nil
	case Put:
		return discK*normCDF(-d2) - p.Spot*normCDF(-d1), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownOptionKind, int(kind))
}
