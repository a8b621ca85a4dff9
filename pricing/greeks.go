package pricing

import (
	"fmt"
	"math"
)

// ComputeGreeks returns the closed-form sensitivities at p.
// Vega and rho are scaled per percentage point, theta is per year.
func ComputeGreeks(p MarketParams, kind OptionKind) (Greeks, error) {
	d1, d2, err := d1d2(p)
	if err != nil {
		return Greeks{}, err
	}
	if !kind.Valid() {
		return Greeks{}, fmt.Errorf("%w: %d", ErrUnknownOptionKind, int(kind))
	}

	sqrtT := math.Sqrt(p.Maturity)
	pdfD1 := normPDF(d1)
	disc := math.Exp(-p.Rate * p.Maturity)

	g := Greeks{
		// gamma / vega 与期权方向无关
		Gamma: pdfD1 / (p.Spot * p.Vol * sqrtT),
		Vega:  p.Spot * pdfD1 * sqrtT / 100,
	}
	decay := -(p.Spot * pdfD1 * p.Vol) / (2 * sqrtT)

	switch kind {
	case Call:
		g.Delta = normCDF(d1)
		g.Theta = decay - p.Rate*p.Strike*disc*normCDF(d2)
		g.Rho = p.Strike * p.Maturity * disc * normCDF(d2) / 100
	case Put:
		g.Delta = normCDF(d1) - 1
		g.Theta = decay + p.Rate*p.Strike*disc*normCDF(-d2)
		g.Rho = -p.Strike * p.Maturity * disc * normCDF(-d2) / 100
	}
	return g, nil
}
