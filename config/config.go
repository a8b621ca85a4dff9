package config

import (
	"fmt"
	"time"

	"option-analytics-go/analysis"
	"option-analytics-go/chain"
	"option-analytics-go/infrastructure/alert"
	"option-analytics-go/infrastructure/logger"
	"option-analytics-go/infrastructure/monitor"
	"option-analytics-go/pricing"
	"option-analytics-go/smile"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env      string               `yaml:"env"`
	Market   MarketConfig         `yaml:"market"`
	Solver   pricing.SolverConfig `yaml:"solver"`
	Smile    smile.Band           `yaml:"smile"`
	Analysis AnalysisConfig       `yaml:"analysis"`
	Log      logger.Config        `yaml:"log"`
	Metrics  monitor.Config       `yaml:"metrics"`
	Server   ServerConfig         `yaml:"server"`
	Alert    alert.Config         `yaml:"alert"`
}

// MarketConfig 描述整条期权链共享的市场输入。
type MarketConfig struct {
	Symbol       string  `yaml:"symbol"`
	Spot         float64 `yaml:"spot"`
	Expiry       string  `yaml:"expiry"`       // 2006-01-02 或 NSE 的 02-Jan-2006
	RiskFreeRate float64 `yaml:"riskFreeRate"` // 连续复利年化
	ChainFile    string  `yaml:"chainFile"`
}

type AnalysisConfig struct {
	PlaceholderVol float64 `yaml:"placeholderVol"`
	Workers        int     `yaml:"workers"`
	TableLimit     int     `yaml:"tableLimit"`
	TimeoutMs      int     `yaml:"timeoutMs"` // 0 表示不限时
}

type ServerConfig struct {
	Addr             string   `yaml:"addr"`
	WatchCooldownMs  int      `yaml:"watchCooldownMs"`
	SystemdNotify    bool     `yaml:"systemdNotify"`
	ShutdownTimeoutS int      `yaml:"shutdownTimeoutSeconds"`
	AllowedOrigins   []string `yaml:"allowedOrigins"` // websocket 允许的来源，空表示仅同源
}

var expiryLayouts = []string{time.DateOnly, "02-Jan-2006", "02-01-2006"}

// Default returns a configuration usable without a file; only the market
// spot and expiry still have to be supplied.
func Default() AppConfig {
	return AppConfig{
		Env: "dev",
		Market: MarketConfig{
			Symbol:       "NIFTY",
			RiskFreeRate: 0.06,
		},
		Solver: pricing.DefaultSolverConfig(),
		Smile:  smile.DefaultBand(),
		Analysis: AnalysisConfig{
			PlaceholderVol: 0.2,
			Workers:        1,
			TableLimit:     20,
		},
		Log:     logger.DefaultConfig(),
		Metrics: monitor.DefaultConfig(),
		Server: ServerConfig{
			Addr:             ":8080",
			WatchCooldownMs:  500,
			ShutdownTimeoutS: 5,
		},
		Alert: alert.DefaultConfig(),
	}
}

// ExpiryDate parses Market.Expiry.
func (m MarketConfig) ExpiryDate() (time.Time, error) {
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, m.Expiry); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalid(fmt.Sprintf("market.expiry %q is not a date", m.Expiry))
}

// LoaderConfig builds the chain loader settings; today may be zero.
func (c AppConfig) LoaderConfig(today time.Time) (chain.LoaderConfig, error) {
	expiry, err := c.Market.ExpiryDate()
	if err != nil {
		return chain.LoaderConfig{}, err
	}
	return chain.LoaderConfig{
		Symbol:       c.Market.Symbol,
		Spot:         c.Market.Spot,
		Expiry:       expiry,
		RiskFreeRate: c.Market.RiskFreeRate,
		Today:        today,
	}, nil
}

// SolverConfig returns the solver settings.
func (c AppConfig) SolverConfig() pricing.SolverConfig {
	return c.Solver
}

// AnalyzerConfig builds the analyzer settings.
func (c AppConfig) AnalyzerConfig() analysis.Config {
	return analysis.Config{
		Solver:         c.Solver,
		PlaceholderVol: c.Analysis.PlaceholderVol,
		Workers:        c.Analysis.Workers,
	}
}

// Timeout returns the analysis deadline, zero when unlimited.
func (a AnalysisConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutMs) * time.Millisecond
}
