package config

import (
	"fmt"
	"math"
)

// ErrInvalid 用于参数验证错误。
type ErrInvalid string

func (e ErrInvalid) Error() string { return string(e) }

// ValidatePricing checks only what single-contract pricing needs: env, a
// finite rate and the solver settings. Chain inputs are not required.
func ValidatePricing(cfg AppConfig) error {
	if cfg.Env == "" {
		return ErrInvalid("env is required")
	}
	if math.IsNaN(cfg.Market.RiskFreeRate) || math.IsInf(cfg.Market.RiskFreeRate, 0) {
		return ErrInvalid("market.riskFreeRate must be finite")
	}
	if err := cfg.Solver.Validate(); err != nil {
		return fmt.Errorf("solver: %w", err)
	}
	return nil
}

// Validate ensures required fields are present and consistent.
func Validate(cfg AppConfig) error {
	if err := ValidatePricing(cfg); err != nil {
		return err
	}
	if cfg.Market.Symbol == "" {
		return ErrInvalid("market.symbol is required")
	}
	if !(cfg.Market.Spot > 0) || math.IsInf(cfg.Market.Spot, 0) {
		return ErrInvalid("market.spot must be > 0 (or OA_SPOT)")
	}
	if _, err := cfg.Market.ExpiryDate(); err != nil {
		return err
	}
	if err := cfg.Smile.Validate(); err != nil {
		return fmt.Errorf("smile: %w", err)
	}
	if !(cfg.Analysis.PlaceholderVol > 0) {
		return ErrInvalid("analysis.placeholderVol must be > 0")
	}
	if cfg.Analysis.Workers < 0 {
		return ErrInvalid("analysis.workers must be >= 0")
	}
	if cfg.Analysis.TableLimit < 0 || cfg.Analysis.TimeoutMs < 0 {
		return ErrInvalid("analysis.tableLimit/timeoutMs must be >= 0")
	}
	if cfg.Server.WatchCooldownMs < 0 || cfg.Server.ShutdownTimeoutS < 0 {
		return ErrInvalid("server.watchCooldownMs/shutdownTimeoutSeconds must be >= 0")
	}
	if cfg.Alert.FailureRatio < 0 || cfg.Alert.FailureRatio > 1 || cfg.Alert.ThrottleSeconds < 0 {
		return ErrInvalid("alert.failureRatio must be in [0,1] and throttleSeconds >= 0")
	}
	return nil
}
