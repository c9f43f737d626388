package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"leapsim/internal/domain"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the leapsim backtester.
type Config struct {
	Storage   Storage                `yaml:"storage"`
	ThetaData ThetaData              `yaml:"thetadata"`
	Alpaca    Alpaca                 `yaml:"alpaca"`
	Logging   Logging                `yaml:"logging"`
	Backtest  Backtest               `yaml:"backtest"`
	Splits    map[string][]SplitSpec `yaml:"splits"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// ThetaData holds the endpoint and call policy for the local ThetaData
// terminal that serves historical option quotes.
type ThetaData struct {
	BaseURL         string `yaml:"base_url"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	MaxAttempts     int    `yaml:"max_attempts"`
	RetryBaseMS     int    `yaml:"retry_base_ms"`
}

// Alpaca holds credentials for the Alpaca APIs used for the trading
// calendar and underlying daily bars.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Backtest defines the strategy parameters fed to the cycle engine and
// position sizer.
type Backtest struct {
	Symbol                string  `yaml:"symbol"`
	StartYear             int     `yaml:"start_year"`
	EndYear               int     `yaml:"end_year"`
	StartingCapital       float64 `yaml:"starting_capital"`
	Utilization           float64 `yaml:"utilization"`
	CommissionPerContract float64 `yaml:"commission_per_contract"`
	LiquidityCap          int     `yaml:"liquidity_cap"`
	TargetMonths          int     `yaml:"target_months"`
	Moneyness             float64 `yaml:"moneyness"`
	RiskFreeRate          float64 `yaml:"risk_free_rate"`
	AsOf                  string  `yaml:"as_of"` // YYYY-MM-DD, empty = today
}

// SplitSpec is the YAML form of a stock split.
type SplitSpec struct {
	Date  string `yaml:"date"` // YYYY-MM-DD
	Ratio int    `yaml:"ratio"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/leapsim.db",
		},
		ThetaData: ThetaData{
			BaseURL:         "http://127.0.0.1:25510",
			RateLimitPerMin: 120,
			MaxAttempts:     3,
			RetryBaseMS:     500,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Backtest: Backtest{
			Symbol:                "GOOG",
			StartYear:             2016,
			EndYear:               time.Now().Year(),
			StartingCapital:       100000,
			Utilization:           1.0,
			CommissionPerContract: 0.35,
			LiquidityCap:          999999,
			TargetMonths:          15,
			Moneyness:             1.0,
			RiskFreeRate:          0.02,
		},
		Splits: map[string][]SplitSpec{
			"GOOG": {{Date: "2022-07-15", Ratio: 20}},
		},
	}
}

// Load reads the YAML configuration file at path, layered over the defaults,
// and then applies environment variable overrides. An empty path loads the
// defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("THETADATA_BASE_URL"); v != "" {
		cfg.ThetaData.BaseURL = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// ---------------------------------------------------------------------------
// Validation and derived values
// ---------------------------------------------------------------------------

// Validate checks the backtest parameters. A violation here is a
// configuration error and aborts the run before any data is fetched.
func (c *Config) Validate() error {
	b := c.Backtest

	if b.Symbol == "" {
		return fmt.Errorf("backtest.symbol must be set")
	}
	if b.StartingCapital <= 0 {
		return fmt.Errorf("backtest.starting_capital must be positive, got %.2f", b.StartingCapital)
	}
	if b.Utilization <= 0 || b.Utilization > 1 {
		return fmt.Errorf("backtest.utilization must be in (0, 1], got %.4f", b.Utilization)
	}
	if b.CommissionPerContract < 0 {
		return fmt.Errorf("backtest.commission_per_contract must not be negative, got %.2f", b.CommissionPerContract)
	}
	if b.LiquidityCap <= 0 {
		return fmt.Errorf("backtest.liquidity_cap must be positive, got %d", b.LiquidityCap)
	}
	if b.TargetMonths < 12 {
		return fmt.Errorf("backtest.target_months must be at least 12 for a LEAP, got %d", b.TargetMonths)
	}
	if b.Moneyness <= 0 {
		return fmt.Errorf("backtest.moneyness must be positive, got %.4f", b.Moneyness)
	}
	if b.StartYear <= 0 || b.EndYear < b.StartYear {
		return fmt.Errorf("backtest year range %d..%d is invalid", b.StartYear, b.EndYear)
	}
	if b.AsOf != "" {
		if _, err := time.Parse("2006-01-02", b.AsOf); err != nil {
			return fmt.Errorf("backtest.as_of: %w", err)
		}
	}

	for symbol, specs := range c.Splits {
		for _, s := range specs {
			if s.Ratio <= 1 {
				return fmt.Errorf("splits.%s: ratio must be > 1, got %d", symbol, s.Ratio)
			}
			if _, err := time.Parse("2006-01-02", s.Date); err != nil {
				return fmt.Errorf("splits.%s: %w", symbol, err)
			}
		}
	}

	return nil
}

// AsOfDate returns the configured as-of date, or today (UTC, midnight) when
// unset. Validate must have passed.
func (c *Config) AsOfDate() time.Time {
	if c.Backtest.AsOf != "" {
		t, _ := time.Parse("2006-01-02", c.Backtest.AsOf)
		return t
	}
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// SplitEvents returns the configured splits for symbol, ordered by effective
// date. Validate must have passed.
func (c *Config) SplitEvents(symbol string) []domain.SplitEvent {
	specs := c.Splits[symbol]
	events := make([]domain.SplitEvent, 0, len(specs))
	for _, s := range specs {
		d, _ := time.Parse("2006-01-02", s.Date)
		events = append(events, domain.SplitEvent{Ratio: s.Ratio, EffectiveDate: d})
	}
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && events[j].EffectiveDate.Before(events[j-1].EffectiveDate); j-- {
			events[j], events[j-1] = events[j-1], events[j]
		}
	}
	return events
}
