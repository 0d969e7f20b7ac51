package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the framectl CLI configuration, loaded from an optional YAML
// file plus FRAMESINK_* environment variables.
type Config struct {
	Server  ServerClientConfig `mapstructure:"server"`
	Push    PushConfig         `mapstructure:"push"`
	Logging LoggingConfig      `mapstructure:"logging"`
}

// ServerClientConfig describes how the CLI reaches the ingestion server.
type ServerClientConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	TimeoutSec    int    `mapstructure:"timeout_sec"`
	RetryCount    int    `mapstructure:"retry_count"`
	RetryDelaySec int    `mapstructure:"retry_delay_sec"`
	RatePerSecond int    `mapstructure:"rate_per_second"`
}

// PushConfig tunes batch replays.
type PushConfig struct {
	Workers    int `mapstructure:"workers"`
	IntervalMS int `mapstructure:"interval_ms"`
}

// LoggingConfig controls CLI log output.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads the CLI config. An empty configPath uses defaults and
// environment variables only.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.base_url", "http://127.0.0.1:8199")
	v.SetDefault("server.timeout_sec", 30)
	v.SetDefault("server.retry_count", 3)
	v.SetDefault("server.retry_delay_sec", 1)
	v.SetDefault("server.rate_per_second", 10)
	v.SetDefault("push.workers", 2)
	v.SetDefault("push.interval_ms", 0)
	v.SetDefault("logging.level", "info")

	v.SetEnvPrefix("FRAMESINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("server.base_url", "FRAMESINK_SERVER_URL")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the CLI configuration.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}
	if !strings.HasPrefix(c.Server.BaseURL, "http://") && !strings.HasPrefix(c.Server.BaseURL, "https://") {
		return fmt.Errorf("server.base_url must start with http:// or https://, got %q", c.Server.BaseURL)
	}
	if c.Server.TimeoutSec < 1 {
		return fmt.Errorf("server.timeout_sec must be at least 1, got %d", c.Server.TimeoutSec)
	}
	if c.Server.RetryCount < 0 {
		return fmt.Errorf("server.retry_count must not be negative, got %d", c.Server.RetryCount)
	}
	if c.Server.RatePerSecond < 1 {
		return fmt.Errorf("server.rate_per_second must be at least 1, got %d", c.Server.RatePerSecond)
	}
	if c.Push.Workers < 1 {
		return fmt.Errorf("push.workers must be at least 1, got %d", c.Push.Workers)
	}
	if c.Push.IntervalMS < 0 {
		return fmt.Errorf("push.interval_ms must not be negative, got %d", c.Push.IntervalMS)
	}
	return validateLogLevel(c.Logging.Level)
}
