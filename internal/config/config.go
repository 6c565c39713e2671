// Package config provides configuration management for the spread finder.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"option-spreads/internal/errors"
	"option-spreads/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	Gateway   GatewayConfig     `mapstructure:"gateway"`
	Collector CollectorConfig   `mapstructure:"collector"`
	Logging   logging.LogConfig `mapstructure:"logging"`
}

// GatewayConfig holds brokerage gateway connection settings.
type GatewayConfig struct {
	URL          string        `mapstructure:"url"`
	ClientID     int           `mapstructure:"client_id"`
	DialAttempts int           `mapstructure:"dial_attempts"`
	DialDelay    time.Duration `mapstructure:"dial_delay"`
}

// CollectorConfig holds chain collection settings.
type CollectorConfig struct {
	StrikeWindow       int           `mapstructure:"strike_window"`      // strikes kept on each side of ATM
	MinDaysToExpiry    int           `mapstructure:"min_days_to_expiry"` // expiry must be strictly further out
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	Quiescence         time.Duration `mapstructure:"quiescence"`
	QueueSize          int           `mapstructure:"queue_size"`
	Exchange           string        `mapstructure:"exchange"`
	Currency           string        `mapstructure:"currency"`
	Snapshot           bool          `mapstructure:"snapshot"`
	InformationalCodes []int         `mapstructure:"informational_codes"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/option-spreads"
	}
	return filepath.Join(home, ".config", "option-spreads")
}

// Default returns the configuration used when no file overrides a value.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			URL:          "ws://127.0.0.1:7498/bridge",
			ClientID:     0,
			DialAttempts: 3,
			DialDelay:    500 * time.Millisecond,
		},
		Collector: DefaultCollectorConfig(),
		Logging:   logging.DefaultLogConfig(),
	}
}

// DefaultCollectorConfig returns the collector defaults.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		StrikeWindow:       7,
		MinDaysToExpiry:    21,
		RequestTimeout:     10 * time.Second,
		Quiescence:         5 * time.Second,
		QueueSize:          1024,
		Exchange:           "SMART",
		Currency:           "USD",
		Snapshot:           false,
		InformationalCodes: []int{200, 2104, 2106, 2107, 2108, 2119, 2158, 10167},
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	// A missing .env is normal outside development.
	_ = godotenv.Load(filepath.Join(configDir, ".env"), ".env")

	cfg := Default()
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target *Config) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, target)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateConfig(configDir)
		}
		return err
	}

	return v.Unmarshal(target)
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("gateway.url", cfg.Gateway.URL)
	v.SetDefault("gateway.client_id", cfg.Gateway.ClientID)
	v.SetDefault("gateway.dial_attempts", cfg.Gateway.DialAttempts)
	v.SetDefault("gateway.dial_delay", cfg.Gateway.DialDelay)

	v.SetDefault("collector.strike_window", cfg.Collector.StrikeWindow)
	v.SetDefault("collector.min_days_to_expiry", cfg.Collector.MinDaysToExpiry)
	v.SetDefault("collector.request_timeout", cfg.Collector.RequestTimeout)
	v.SetDefault("collector.quiescence", cfg.Collector.Quiescence)
	v.SetDefault("collector.queue_size", cfg.Collector.QueueSize)
	v.SetDefault("collector.exchange", cfg.Collector.Exchange)
	v.SetDefault("collector.currency", cfg.Collector.Currency)
	v.SetDefault("collector.snapshot", cfg.Collector.Snapshot)
	v.SetDefault("collector.informational_codes", cfg.Collector.InformationalCodes)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.console", cfg.Logging.Console)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.file_path", cfg.Logging.FilePath)
	v.SetDefault("logging.max_size", cfg.Logging.MaxSize)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.max_age", cfg.Logging.MaxAge)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SPREADS_GATEWAY_URL"); v != "" {
		cfg.Gateway.URL = v
	}
	if v := os.Getenv("SPREADS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SPREADS_EXCHANGE"); v != "" {
		cfg.Collector.Exchange = v
	}
}

// Validate validates the configuration. Failures match errors.ErrConfigInvalid.
func (c *Config) Validate() error {
	switch {
	case c.Collector.StrikeWindow < 1:
		return errors.NewValidationError("collector.strike_window", c.Collector.StrikeWindow, "must be at least 1")
	case c.Collector.MinDaysToExpiry < 0:
		return errors.NewValidationError("collector.min_days_to_expiry", c.Collector.MinDaysToExpiry, "must be non-negative")
	case c.Collector.QueueSize < 1:
		return errors.NewValidationError("collector.queue_size", c.Collector.QueueSize, "must be positive")
	case c.Collector.RequestTimeout <= 0:
		return errors.NewValidationError("collector.request_timeout", c.Collector.RequestTimeout, "must be positive")
	case c.Collector.Quiescence <= 0:
		return errors.NewValidationError("collector.quiescence", c.Collector.Quiescence, "must be positive")
	case c.Collector.Exchange == "":
		return errors.NewValidationError("collector.exchange", c.Collector.Exchange, "is required")
	case c.Gateway.DialAttempts < 1:
		return errors.NewValidationError("gateway.dial_attempts", c.Gateway.DialAttempts, "must be at least 1")
	}
	return nil
}
