package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ArthurHtr/backtest-engine/market"
)

// Config is the complete backtest configuration.
type Config struct {
	Broker   BrokerConfig   `json:"broker" yaml:"broker"`
	Data     DataConfig     `json:"data" yaml:"data"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Symbols  []SymbolConfig `json:"symbols,omitempty" yaml:"symbols,omitempty"`
}

// BrokerConfig holds the broker's economic parameters.
type BrokerConfig struct {
	InitialCash       float64 `json:"initial_cash" yaml:"initial_cash"`
	FeeRate           float64 `json:"fee_rate" yaml:"fee_rate"`
	MarginRequirement float64 `json:"margin_requirement" yaml:"margin_requirement"`
	MaintenanceMargin float64 `json:"maintenance_margin" yaml:"maintenance_margin"`
}

// DataConfig selects the replayed data and the simulated price process.
type DataConfig struct {
	Symbols   []string `json:"symbols" yaml:"symbols"`
	Start     string   `json:"start" yaml:"start"` // RFC 3339 or YYYY-MM-DD
	End       string   `json:"end" yaml:"end"`
	Timeframe string   `json:"timeframe" yaml:"timeframe"` // 1m, 1h, 1d

	Seed            int64   `json:"seed,omitempty" yaml:"seed,omitempty"`
	BasePrice       float64 `json:"base_price,omitempty" yaml:"base_price,omitempty"`
	Drift           float64 `json:"drift,omitempty" yaml:"drift,omitempty"`
	Volatility      float64 `json:"volatility,omitempty" yaml:"volatility,omitempty"`
	BaseDailyVolume int     `json:"base_daily_volume,omitempty" yaml:"base_daily_volume,omitempty"`
}

// StrategyConfig names the strategy and its knobs.
type StrategyConfig struct {
	Name        string  `json:"name" yaml:"name"`
	Quantity    float64 `json:"quantity" yaml:"quantity"`
	ShortWindow int     `json:"short_window,omitempty" yaml:"short_window,omitempty"`
	LongWindow  int     `json:"long_window,omitempty" yaml:"long_window,omitempty"`
}

// JournalConfig selects the journaling backend.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// SymbolConfig is per-instrument metadata; unlisted symbols trade with
// identity rounding.
type SymbolConfig struct {
	Symbol       string  `json:"symbol" yaml:"symbol"`
	BaseAsset    string  `json:"base_asset" yaml:"base_asset"`
	QuoteAsset   string  `json:"quote_asset" yaml:"quote_asset"`
	PriceStep    float64 `json:"price_step" yaml:"price_step"`
	QuantityStep float64 `json:"quantity_step" yaml:"quantity_step"`
	MinQuantity  float64 `json:"min_quantity" yaml:"min_quantity"`
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration, YAML for .yaml/.yml and JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Broker.InitialCash <= 0 {
		return fmt.Errorf("broker.initial_cash must be positive")
	}
	if c.Broker.FeeRate < 0 || c.Broker.FeeRate >= 1 {
		return fmt.Errorf("broker.fee_rate must be in [0, 1)")
	}
	if c.Broker.MarginRequirement <= 0 || c.Broker.MarginRequirement > 1 {
		return fmt.Errorf("broker.margin_requirement must be in (0, 1]")
	}
	if c.Broker.MaintenanceMargin <= 0 || c.Broker.MaintenanceMargin > 1 {
		return fmt.Errorf("broker.maintenance_margin must be in (0, 1]")
	}
	if c.Broker.MaintenanceMargin > c.Broker.MarginRequirement {
		return fmt.Errorf("broker.maintenance_margin must not exceed broker.margin_requirement")
	}

	if len(c.Data.Symbols) == 0 {
		return fmt.Errorf("data.symbols is required")
	}
	start, err := ParseTime(c.Data.Start)
	if err != nil {
		return fmt.Errorf("data.start: %w", err)
	}
	end, err := ParseTime(c.Data.End)
	if err != nil {
		return fmt.Errorf("data.end: %w", err)
	}
	if !start.Before(end) {
		return fmt.Errorf("data.start must be before data.end")
	}
	switch c.Data.Timeframe {
	case "1m", "1h", "1d":
	default:
		return fmt.Errorf("data.timeframe must be one of: 1m, 1h, 1d")
	}

	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}

	switch c.Journal.Type {
	case "none", "":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}

	for _, s := range c.Symbols {
		if s.Symbol == "" {
			return fmt.Errorf("symbols entries need a symbol id")
		}
	}

	return nil
}

// SymbolMap converts the configured symbols for the broker, falling back to
// the built-in defaults when none are configured.
func (c *Config) SymbolMap() map[string]market.Symbol {
	if len(c.Symbols) == 0 {
		return market.DefaultSymbols
	}
	out := make(map[string]market.Symbol, len(c.Symbols))
	for _, s := range c.Symbols {
		out[s.Symbol] = market.Symbol{
			Symbol:       s.Symbol,
			BaseAsset:    s.BaseAsset,
			QuoteAsset:   s.QuoteAsset,
			PriceStep:    s.PriceStep,
			QuantityStep: s.QuantityStep,
			MinQuantity:  s.MinQuantity,
		}
	}
	return out
}

// ParseTime accepts RFC 3339 or a bare date.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (want RFC 3339 or YYYY-MM-DD)", s)
	}
	return t, nil
}

// Default returns a runnable demo configuration.
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			InitialCash:       100_000,
			FeeRate:           0.002,
			MarginRequirement: 0.5,
			MaintenanceMargin: 0.25,
		},
		Data: DataConfig{
			Symbols:         []string{"AAPL", "GOOGL"},
			Start:           "2025-11-01",
			End:             "2025-11-30",
			Timeframe:       "1d",
			Seed:            42,
			BasePrice:       100.0,
			Drift:           0.1,
			Volatility:      0.02,
			BaseDailyVolume: 1_000_000,
		},
		Strategy: StrategyConfig{
			Name:        "sma-cross",
			Quantity:    100,
			ShortWindow: 5,
			LongWindow:  20,
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
	}
}
