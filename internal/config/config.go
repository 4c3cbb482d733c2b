// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Exa     ExaConfig     `mapstructure:"exa"`
	Grading GradingConfig `mapstructure:"grading"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles for the /v1 surface.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// ExaConfig configures the scrape provider client.
type ExaConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Subpages       int    `mapstructure:"subpages"`
}

// GradingConfig configures the grading stream client, including the
// lower-tier model used after a rate-limit rejection.
type GradingConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	FallbackModel  string `mapstructure:"fallback_model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	RatePerMinute  int    `mapstructure:"rate_per_minute"`
}

// CacheConfig selects and configures the report cache backend.
type CacheConfig struct {
	Provider     string `mapstructure:"provider"`
	DSN          string `mapstructure:"dsn"`
	Table        string `mapstructure:"table"`
	MaxConns     int32  `mapstructure:"max_conns"`
	MinConns     int32  `mapstructure:"min_conns"`
	WriteTimeout int    `mapstructure:"write_timeout_seconds"`
}

// NotifyConfig selects the completion publisher backend.
type NotifyConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SITEGRADE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("exa.base_url", "https://api.exa.ai")
	v.SetDefault("exa.timeout_seconds", 30)
	v.SetDefault("exa.subpages", 5)
	v.SetDefault("grading.base_url", "https://api.anthropic.com")
	v.SetDefault("grading.model", "claude-sonnet-4-20250514")
	v.SetDefault("grading.fallback_model", "claude-3-7-sonnet-20250219")
	v.SetDefault("grading.timeout_seconds", 100)
	v.SetDefault("grading.rate_per_minute", 10)
	v.SetDefault("cache.provider", "memory")
	v.SetDefault("cache.table", "site_reports")
	v.SetDefault("cache.write_timeout_seconds", 10)
	v.SetDefault("notify.provider", "noop")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Exa.TimeoutSeconds <= 0 {
		return fmt.Errorf("exa.timeout_seconds must be > 0")
	}
	if c.Exa.Subpages < 0 {
		return fmt.Errorf("exa.subpages must be >= 0")
	}
	if c.Grading.TimeoutSeconds <= 0 {
		return fmt.Errorf("grading.timeout_seconds must be > 0")
	}
	if c.Grading.Model == "" {
		return fmt.Errorf("grading.model must be set")
	}
	switch c.Cache.Provider {
	case "postgres":
		if c.Cache.DSN == "" {
			return fmt.Errorf("cache.dsn must be set when cache.provider is postgres")
		}
	case "memory", "noop":
	default:
		return fmt.Errorf("unknown cache.provider %q", c.Cache.Provider)
	}
	switch c.Notify.Provider {
	case "pubsub":
		if c.Notify.ProjectID == "" || c.Notify.Topic == "" {
			return fmt.Errorf("notify.project_id and notify.topic must be set when notify.provider is pubsub")
		}
	case "memory", "noop":
	default:
		return fmt.Errorf("unknown notify.provider %q", c.Notify.Provider)
	}
	return nil
}

// ExaTimeout converts the scrape timeout to a duration.
func (c Config) ExaTimeout() time.Duration {
	return time.Duration(c.Exa.TimeoutSeconds) * time.Second
}

// GradingTimeout converts the grading stream budget to a duration.
func (c Config) GradingTimeout() time.Duration {
	return time.Duration(c.Grading.TimeoutSeconds) * time.Second
}

// CacheWriteTimeout bounds the detached cache write after a run completes.
func (c Config) CacheWriteTimeout() time.Duration {
	return time.Duration(c.Cache.WriteTimeout) * time.Second
}
