package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultEnvFile 在工作目录存在时由 LoadWithEnvOverrides 自动加载。
const DefaultEnvFile = ".env"

// Load reads YAML config from path on top of Default and validates it.
func Load(path string) (AppConfig, error) {
	cfg, err := read(path)
	if err != nil {
		return cfg, err
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads optional .env files, reads path (Default when
// path is empty), then overrides market fields from OA_* env vars.
func LoadWithEnvOverrides(path string, envFiles ...string) (AppConfig, error) {
	return Resolve(path, envFiles, nil)
}

// Resolve is LoadWithEnvOverrides with a final override hook applied before
// validation, used by the CLI to layer flags on top of file and env.
func Resolve(path string, envFiles []string, override func(*AppConfig)) (AppConfig, error) {
	return ResolveWith(path, envFiles, override, Validate)
}

// ResolveWith is Resolve with a caller-chosen validation step, e.g.
// ValidatePricing for commands that never touch a chain.
func ResolveWith(path string, envFiles []string, override func(*AppConfig), validate func(AppConfig) error) (AppConfig, error) {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		// 已存在的环境变量优先，不会被 .env 覆盖
		if err := godotenv.Load(f); err != nil {
			return AppConfig{}, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = read(path); err != nil {
			return cfg, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if override != nil {
		override(&cfg)
	}
	if validate == nil {
		validate = Validate
	}
	return cfg, validate(cfg)
}

func read(path string) (AppConfig, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) error {
	if v := os.Getenv("OA_SYMBOL"); v != "" {
		cfg.Market.Symbol = v
	}
	if v := os.Getenv("OA_EXPIRY"); v != "" {
		cfg.Market.Expiry = v
	}
	if v := os.Getenv("OA_CHAIN_FILE"); v != "" {
		cfg.Market.ChainFile = v
	}
	if v := os.Getenv("OA_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("OA_SPOT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return ErrInvalid(fmt.Sprintf("OA_SPOT %q: %v", v, err))
		}
		cfg.Market.Spot = f
	}
	if v := os.Getenv("OA_RISK_FREE_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return ErrInvalid(fmt.Sprintf("OA_RISK_FREE_RATE %q: %v", v, err))
		}
		cfg.Market.RiskFreeRate = f
	}
	return nil
}
