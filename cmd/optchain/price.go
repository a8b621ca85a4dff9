package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"option-analytics-go/config"
	"option-analytics-go/pricing"
	"option-analytics-go/report"
)

type contractFlags struct {
	spot     float64
	strike   float64
	maturity float64
	days     int
	rate     float64
	kind     string
}

func (f *contractFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.spot, "spot", 0, "标的现价")
	cmd.Flags().Float64Var(&f.strike, "strike", 0, "行权价")
	cmd.Flags().Float64Var(&f.maturity, "maturity", 0, "剩余期限（年）")
	cmd.Flags().IntVar(&f.days, "days", 0, "剩余天数，给定时覆盖 --maturity（按 365 天折算）")
	cmd.Flags().Float64Var(&f.rate, "rate", 0, "无风险利率（连续复利），默认取 market.riskFreeRate")
	cmd.Flags().StringVar(&f.kind, "kind", "call", "call|put")
	_ = cmd.MarkFlagRequired("spot")
	_ = cmd.MarkFlagRequired("strike")
}

// apply 仅覆盖命令行显式给出的利率
func (f *contractFlags) apply(cmd *cobra.Command, c *config.AppConfig) {
	if cmd.Flags().Changed("rate") {
		c.Market.RiskFreeRate = f.rate
	}
}

func (f *contractFlags) params(cfg config.AppConfig, vol float64) (pricing.MarketParams, pricing.OptionKind, error) {
	kind, err := pricing.ParseOptionKind(f.kind)
	if err != nil {
		return pricing.MarketParams{}, kind, err
	}
	maturity := f.maturity
	if f.days > 0 {
		maturity = float64(f.days) / 365
	}
	return pricing.MarketParams{
		Spot:     f.spot,
		Strike:   f.strike,
		Maturity: maturity,
		Rate:     cfg.Market.RiskFreeRate,
		Vol:      vol,
	}, kind, nil
}

func newPriceCmd(root *rootOptions) *cobra.Command {
	var (
		contract contractFlags
		vol      float64
	)
	cmd := &cobra.Command{
		Use:     "price",
		Short:   "Price a European option and compute its Greeks",
		Example: "  optchain price --spot 24200 --strike 24200 --days 30 --vol 0.15 --kind call",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.resolvePricingConfig(func(c *config.AppConfig) { contract.apply(cmd, c) })
			if err != nil {
				return err
			}
			p, kind, err := contract.params(cfg, vol)
			if err != nil {
				return err
			}
			price, err := pricing.Price(p, kind)
			if err != nil {
				return err
			}
			g, err := pricing.ComputeGreeks(p, kind)
			if err != nil {
				return err
			}
			report.WriteQuote(cmd.OutOrStdout(), kind, price, vol, g)
			return nil
		},
	}
	contract.register(cmd)
	cmd.Flags().Float64Var(&vol, "vol", 0, "年化波动率，例如 0.15")
	_ = cmd.MarkFlagRequired("vol")
	return cmd
}

// solverFlags 覆盖配置文件中的求解器参数，未给出的保持 solver.* 配置
type solverFlags struct {
	volLower  float64
	volUpper  float64
	tolerance float64
	maxIter   int
}

func (f *solverFlags) register(cmd *cobra.Command) {
	def := pricing.DefaultSolverConfig()
	cmd.Flags().Float64Var(&f.volLower, "vol-lower", def.VolLower, "二分下界，默认取 solver.volLower")
	cmd.Flags().Float64Var(&f.volUpper, "vol-upper", def.VolUpper, "二分上界，默认取 solver.volUpper")
	cmd.Flags().Float64Var(&f.tolerance, "tolerance", def.Tolerance, "价格收敛阈值，默认取 solver.tolerance")
	cmd.Flags().IntVar(&f.maxIter, "max-iter", def.MaxIterations, "最大迭代次数，默认取 solver.maxIterations")
}

func (f *solverFlags) apply(cmd *cobra.Command, c *config.AppConfig) {
	flags := cmd.Flags()
	if flags.Changed("vol-lower") {
		c.Solver.VolLower = f.volLower
	}
	if flags.Changed("vol-upper") {
		c.Solver.VolUpper = f.volUpper
	}
	if flags.Changed("tolerance") {
		c.Solver.Tolerance = f.tolerance
	}
	if flags.Changed("max-iter") {
		c.Solver.MaxIterations = f.maxIter
	}
}

func newIVCmd(root *rootOptions) *cobra.Command {
	var (
		contract contractFlags
		solver   solverFlags
		premium  float64
	)
	cmd := &cobra.Command{
		Use:     "iv",
		Short:   "Solve implied volatility from an observed premium",
		Example: "  optchain iv --spot 24200 --strike 24200 --days 30 --premium 476.37",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.resolvePricingConfig(func(c *config.AppConfig) {
				contract.apply(cmd, c)
				solver.apply(cmd, c)
			})
			if err != nil {
				return err
			}
			p, kind, err := contract.params(cfg, cfg.Analysis.PlaceholderVol)
			if err != nil {
				return err
			}
			sol, err := pricing.SolveImpliedVol(premium, p, kind, cfg.SolverConfig())
			if err != nil {
				return err
			}
			g, err := pricing.ComputeGreeks(p.WithVol(sol.Vol), kind)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			report.WriteQuote(out, kind, premium, sol.Vol, g)
			fmt.Fprintf(out, "iterations=%d converged=%t residual=%.3g\n", sol.Iterations, sol.Converged, sol.Residual)
			if !sol.Converged {
				fmt.Fprintln(out, "warning: premium is outside the attainable price range; IV is a boundary value")
			}
			return nil
		},
	}
	contract.register(cmd)
	solver.register(cmd)
	cmd.Flags().Float64Var(&premium, "premium", 0, "市场成交价（LTP）")
	_ = cmd.MarkFlagRequired("premium")
	return cmd
}
