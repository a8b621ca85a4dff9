// Command optchain prices European options, solves implied volatility and
// analyses NSE option-chain exports.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"option-analytics-go/config"
	"option-analytics-go/infrastructure/logger"
)

type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "optchain",
		Short:         "Black-Scholes pricing, Greeks and implied volatility for option chains",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML 配置文件路径（可选）")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, ".env 文件路径，不存在时忽略")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "覆盖日志级别 debug/info/warn/error")

	root.AddCommand(newPriceCmd(opts), newIVCmd(opts), newAnalyzeCmd(opts), newServeCmd(opts))
	return root
}

// resolveConfig 依次叠加 默认值 -> 配置文件 -> .env/环境变量 -> 命令行
func (o *rootOptions) resolveConfig(override func(*config.AppConfig)) (config.AppConfig, error) {
	return o.resolve(override, config.Validate)
}

// resolvePricingConfig 用于 price/iv：不需要期权链，只校验利率与求解器
func (o *rootOptions) resolvePricingConfig(override func(*config.AppConfig)) (config.AppConfig, error) {
	return o.resolve(override, config.ValidatePricing)
}

func (o *rootOptions) resolve(override func(*config.AppConfig), validate func(config.AppConfig) error) (config.AppConfig, error) {
	return config.ResolveWith(o.configPath, []string{o.envFile}, func(c *config.AppConfig) {
		if o.logLevel != "" {
			c.Log.Level = o.logLevel
		}
		if override != nil {
			override(c)
		}
	}, validate)
}

func newLogger(cfg config.AppConfig) (*logger.Logger, error) {
	l, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("create logger failed: %w", err)
	}
	return l.WithFields(map[string]interface{}{"env": cfg.Env}), nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
