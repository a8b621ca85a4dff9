package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"option-analytics-go/analysis"
	"option-analytics-go/config"
	"option-analytics-go/infrastructure/monitor"
	"option-analytics-go/internal/pipeline"
	"option-analytics-go/pricing"
	"option-analytics-go/report"
	"option-analytics-go/smile"
)

// marketFlags 命令行覆盖配置文件中的市场参数
type marketFlags struct {
	csv     string
	symbol  string
	spot    float64
	expiry  string
	rate    float64
	workers int
}

func (f *marketFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.csv, "csv", "", "期权链 CSV 路径（覆盖 market.chainFile）")
	cmd.Flags().StringVar(&f.symbol, "symbol", "", "标的名称")
	cmd.Flags().Float64Var(&f.spot, "spot", 0, "标的现价")
	cmd.Flags().StringVar(&f.expiry, "expiry", "", "到期日 YYYY-MM-DD")
	cmd.Flags().Float64Var(&f.rate, "rate", 0, "无风险利率")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "并行 worker 数，0 表示使用配置")
}

func (f *marketFlags) apply(cmd *cobra.Command, c *config.AppConfig) {
	if f.csv != "" {
		c.Market.ChainFile = f.csv
	}
	if f.symbol != "" {
		c.Market.Symbol = f.symbol
	}
	if cmd.Flags().Changed("spot") {
		c.Market.Spot = f.spot
	}
	if f.expiry != "" {
		c.Market.Expiry = f.expiry
	}
	if cmd.Flags().Changed("rate") {
		c.Market.RiskFreeRate = f.rate
	}
	if f.workers > 0 {
		c.Analysis.Workers = f.workers
	}
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	var (
		market  marketFlags
		limit   int
		outCSV  string
		outJSON string
		plotTo  string
	)
	cmd := &cobra.Command{
		Use:     "analyze",
		Short:   "Solve IV and Greeks for every quote in an option-chain CSV",
		Example: "  optchain analyze --csv chain.csv --spot 24200 --expiry 2025-01-30",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.resolveConfig(func(c *config.AppConfig) {
				market.apply(cmd, c)
				if cmd.Flags().Changed("limit") {
					c.Analysis.TableLimit = limit
				}
			})
			if err != nil {
				return err
			}
			if cfg.Market.ChainFile == "" {
				return errors.New("--csv or market.chainFile is required")
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Close()

			mon := monitor.New(cfg.Metrics)
			a, err := analysis.New(cfg.AnalyzerConfig(), analysis.WithLogger(log), analysis.WithRecorder(mon))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out, err := pipeline.New(cfg, a, log, pipeline.WithBandRecorder(mon)).Run(ctx, cfg.Market.ChainFile)
			w := cmd.OutOrStdout()
			if err != nil {
				report.WriteFailures(w, out.Result.Failures)
				return err
			}
			writeAnalysis(w, cfg, out)

			if outCSV != "" {
				if err := writeFile(outCSV, func(f io.Writer) error { return report.WriteCSV(f, out.Filtered) }); err != nil {
					return err
				}
				fmt.Fprintf(w, "CSV written to %s\n", outCSV)
			}
			if outJSON != "" {
				if err := writeFile(outJSON, func(f io.Writer) error { return report.WriteJSON(f, out.Snapshot) }); err != nil {
					return err
				}
				fmt.Fprintf(w, "JSON written to %s\n", outJSON)
			}
			if plotTo != "" {
				title := fmt.Sprintf("%s IV smile (expiry %s)", cfg.Market.Symbol, cfg.Market.Expiry)
				err := report.SaveSmileChart(plotTo, title, out.Filtered)
				switch {
				case errors.Is(err, report.ErrNothingToPlot):
					fmt.Fprintln(cmd.ErrOrStderr(), "no IV inside the band, chart skipped")
				case err != nil:
					return err
				default:
					fmt.Fprintf(w, "IV smile chart written to %s\n", plotTo)
				}
			}
			return nil
		},
	}
	market.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", report.DefaultTableLimit, "表格展示行数，0 表示全部")
	cmd.Flags().StringVar(&outCSV, "out-csv", "", "导出过滤后记录的 CSV 路径")
	cmd.Flags().StringVar(&outJSON, "json", "", "导出完整快照的 JSON 路径")
	cmd.Flags().StringVar(&plotTo, "plot", "", "导出 IV 微笑曲线图，扩展名决定格式（.svg/.png/.pdf）")
	return cmd
}

func writeAnalysis(w io.Writer, cfg config.AppConfig, out pipeline.Output) {
	fmt.Fprintf(w, "Summary for %s (spot %.2f, expiry %s)\n", cfg.Market.Symbol, cfg.Market.Spot, cfg.Market.Expiry)
	fmt.Fprintf(w, "%d records, %d failed, %d outside IV band (%.2f, %.2f)\n",
		out.Result.Len(), out.Result.FailureCount(), out.OutOfBand, cfg.Smile.MinIV, cfg.Smile.MaxIV)
	if out.Snapshot.ATMStrike != nil {
		fmt.Fprintf(w, "ATM strike: %.2f\n", *out.Snapshot.ATMStrike)
	}
	report.WriteTable(w, out.Filtered, cfg.Analysis.TableLimit)
	report.WriteSummary(w, out.Snapshot.Summaries)
	for _, kind := range []pricing.OptionKind{pricing.Call, pricing.Put} {
		if pts := smile.Curve(out.Filtered, kind); len(pts) > 0 {
			report.WriteSmileTable(w, kind, pts)
		}
	}
	report.WriteFailures(w, out.Result.Failures)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

