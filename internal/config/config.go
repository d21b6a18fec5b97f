// Package config loads the application configuration from config.yaml,
// environment variables, and built-in defaults, and wires the global
// logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shelfside/scout-cli/internal/valuation"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig           `yaml:"store" mapstructure:"store"`
	Keepa       KeepaConfig           `yaml:"keepa" mapstructure:"keepa"`
	Eligibility EligibilityConfig     `yaml:"eligibility" mapstructure:"eligibility"`
	Thresholds  ThresholdsConfig      `yaml:"thresholds" mapstructure:"thresholds"`
	Fees        valuation.FeeSchedule `yaml:"fees" mapstructure:"fees"`
	Watchlist   WatchlistConfig       `yaml:"watchlist" mapstructure:"watchlist"`
	Batch       BatchConfig           `yaml:"batch" mapstructure:"batch"`
	Server      ServerConfig          `yaml:"server" mapstructure:"server"`
	Log         LogConfig             `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	Path        string `yaml:"path" mapstructure:"path"`     // sqlite file path
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// KeepaConfig holds market-data API settings.
type KeepaConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	Domain         int     `yaml:"domain" mapstructure:"domain"` // 1 = US
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// EligibilityConfig configures the eligibility cache.
type EligibilityConfig struct {
	MaxAgeHours int    `yaml:"max_age_hours" mapstructure:"max_age_hours"`
	ExportDir   string `yaml:"export_dir" mapstructure:"export_dir"` // extension export drop directory
}

// ThresholdsConfig holds the decision criteria. The engine reads it and
// never writes it.
type ThresholdsConfig struct {
	Eligibility EligibilityPolicy `yaml:"eligibility" mapstructure:"eligibility"`
	Rank        RankPolicy        `yaml:"rank" mapstructure:"rank"`
	Velocity    VelocityPolicy    `yaml:"velocity" mapstructure:"velocity"`
	ROI         ROIPolicy         `yaml:"roi" mapstructure:"roi"`
	Competition CompetitionPolicy `yaml:"competition" mapstructure:"competition"`
	Price       PricePolicy       `yaml:"price" mapstructure:"price"`
}

// EligibilityPolicy controls how gated listings are treated.
type EligibilityPolicy struct {
	AllowNeedsApproval bool `yaml:"allow_needs_approval" mapstructure:"allow_needs_approval"`
}

// RankPolicy caps acceptable sales rank.
type RankPolicy struct {
	Max int `yaml:"max" mapstructure:"max"`
}

// VelocityPolicy sets the sales-velocity floor.
type VelocityPolicy struct {
	Min float64 `yaml:"min" mapstructure:"min"`
}

// ROIPolicy holds the minimum acceptable and preferred target ROI.
type ROIPolicy struct {
	MinimumPercent float64 `yaml:"minimum_percent" mapstructure:"minimum_percent"`
	TargetPercent  float64 `yaml:"target_percent" mapstructure:"target_percent"`
}

// CompetitionPolicy caps the competing seller count.
type CompetitionPolicy struct {
	MaxSellers int `yaml:"max_sellers" mapstructure:"max_sellers"`
}

// PricePolicy controls price-based gates.
type PricePolicy struct {
	AllowDeclining bool    `yaml:"allow_declining" mapstructure:"allow_declining"`
	MinSellPrice   float64 `yaml:"min_sell_price" mapstructure:"min_sell_price"`
}

// WatchlistConfig points at an optional publisher watchlist file.
type WatchlistConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// BatchConfig controls concurrent batch analysis.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// Load reads config.yaml (optional), applies SCOUT_* environment
// overrides, and fills defaults.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "data/scout.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent", 5)
	v.SetDefault("keepa.base_url", "https://api.keepa.com")
	v.SetDefault("keepa.domain", 1)
	v.SetDefault("keepa.requests_per_sec", 2)
	v.SetDefault("keepa.timeout_secs", 30)
	v.SetDefault("eligibility.max_age_hours", 24)
	v.SetDefault("eligibility.export_dir", "data/exports")
	v.SetDefault("thresholds.eligibility.allow_needs_approval", false)
	v.SetDefault("thresholds.rank.max", 2_000_000)
	v.SetDefault("thresholds.velocity.min", 1.0)
	v.SetDefault("thresholds.roi.minimum_percent", 30.0)
	v.SetDefault("thresholds.roi.target_percent", 50.0)
	v.SetDefault("thresholds.competition.max_sellers", 10)
	v.SetDefault("thresholds.price.allow_declining", false)
	v.SetDefault("thresholds.price.min_sell_price", 10.00)
	v.SetDefault("fees.referral_rate", 0.15)
	v.SetDefault("fees.min_referral_fee", 0.30)
	v.SetDefault("fees.small_standard_fee", 3.22)
	v.SetDefault("fees.large_standard_fee", 4.95)
	v.SetDefault("fees.large_standard_2_fee", 5.95)
	v.SetDefault("fees.inbound_placement_fee", 0.27)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration needed by a command group.
func (c *Config) Validate(component string) error {
	switch component {
	case "store":
		switch c.Store.Driver {
		case "sqlite":
			if c.Store.Path == "" {
				return eris.New("config: store.path is required for the sqlite driver")
			}
		case "postgres":
			if c.Store.DatabaseURL == "" {
				return eris.New("config: store.database_url is required for the postgres driver")
			}
		default:
			return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
		}
	case "keepa":
		if c.Keepa.Key == "" {
			return eris.New("config: keepa.key is required (set SCOUT_KEEPA_KEY)")
		}
	case "thresholds":
		return c.Thresholds.Validate()
	}
	return nil
}

// Validate checks that the thresholds are internally consistent.
func (t *ThresholdsConfig) Validate() error {
	if t.Rank.Max <= 0 {
		return eris.New("config: thresholds.rank.max must be positive")
	}
	if t.Velocity.Min < 0 {
		return eris.New("config: thresholds.velocity.min must be >= 0")
	}
	if t.ROI.MinimumPercent < 0 || t.ROI.TargetPercent < 0 {
		return eris.New("config: thresholds.roi percentages must be >= 0")
	}
	if t.ROI.TargetPercent < t.ROI.MinimumPercent {
		return eris.New("config: thresholds.roi.target_percent must be >= minimum_percent")
	}
	if t.Competition.MaxSellers <= 0 {
		return eris.New("config: thresholds.competition.max_sellers must be positive")
	}
	if t.Price.MinSellPrice < 0 {
		return eris.New("config: thresholds.price.min_sell_price must be >= 0")
	}
	return nil
}

// InitLogger configures the global zap logger from LogConfig.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
