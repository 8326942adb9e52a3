package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App     AppConfig
	Log     LogConfig
	HTTP    HTTPConfig
	Billing BillingConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// BillingConfig holds document calculation settings
type BillingConfig struct {
	Currency          string  // company currency code, ISO 4217
	DefaultTaxPercent float64 // tax rate applied to new lines when none is given
	DataDir           string  // directory holding reference fixtures (payment terms, outstanding documents)
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with FACT_ prefix (e.g., FACT_APP_PORT)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("FACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Billing: BillingConfig{
			Currency:          v.GetString("billing.currency"),
			DefaultTaxPercent: v.GetFloat64("billing.default_tax_percent"),
			DataDir:           v.GetString("billing.data_dir"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "facturante-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	// NOTE: CORS origins intentionally have no "*" fallback. An empty list
	// means no cross-origin requests are allowed until explicitly configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Billing.Currency == "" {
		cfg.Billing.Currency = "ARS"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Billing.DefaultTaxPercent < 0 || c.Billing.DefaultTaxPercent >= 100 {
		return fmt.Errorf("billing.default_tax_percent must be in [0, 100), got %f", c.Billing.DefaultTaxPercent)
	}
	if len(c.Billing.Currency) != 3 {
		return fmt.Errorf("billing.currency must be a 3-letter ISO 4217 code, got %q", c.Billing.Currency)
	}

	if c.App.Env == "production" {
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Log.Format != "json" {
			return fmt.Errorf("log.format must be 'json' in production")
		}
	}

	return nil
}
