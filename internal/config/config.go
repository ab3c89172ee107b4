// Package config provides configuration management for the Vantage server.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full static configuration for the server.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	SQLite  SQLiteConfig  `koanf:"sqlite"`
	Alerts  AlertsConfig  `koanf:"alerts"`
	KPI     KPIConfig     `koanf:"kpi"`
	AI      AIConfig      `koanf:"ai"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	ConsoleURL string `koanf:"console_url"`
}

// SQLiteConfig holds the database location.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// AlertsConfig holds notification delivery settings.
type AlertsConfig struct {
	Recipients []string `koanf:"recipients"`

	ResendAPIKey  string `koanf:"resend_api_key"`
	ResendBaseURL string `koanf:"resend_base_url"`
	EmailFrom     string `koanf:"email_from"`

	SMTPHost     string `koanf:"smtp_host"`
	SMTPPort     int    `koanf:"smtp_port"`
	SMTPUsername string `koanf:"smtp_username"`
	SMTPPassword string `koanf:"smtp_password"`
	SMTPReplyTo  string `koanf:"smtp_reply_to"`
	SMTPSecurity string `koanf:"smtp_security"`

	WebhookURLs []string `koanf:"webhook_urls"`

	RequestTimeout        time.Duration `koanf:"request_timeout"`
	TLSInsecureSkipVerify bool          `koanf:"tls_insecure_skip_verify"`
}

// KPIConfig holds business-metric ingestion settings.
type KPIConfig struct {
	Enabled        bool          `koanf:"enabled"`
	PollInterval   time.Duration `koanf:"poll_interval"`
	RequestTimeout time.Duration `koanf:"request_timeout"`

	StripeAPIKey  string `koanf:"stripe_api_key"`
	StripeBaseURL string `koanf:"stripe_base_url"`

	HubSpotToken   string `koanf:"hubspot_token"`
	HubSpotBaseURL string `koanf:"hubspot_base_url"`

	// MonthlyAdSpend feeds the CAC computation until an ads integration exists.
	MonthlyAdSpend float64 `koanf:"monthly_ad_spend"`
}

// AIConfig holds intelligence-service settings for an OpenAI-compatible API.
type AIConfig struct {
	Enabled     bool    `koanf:"enabled"`
	APIKey      string  `koanf:"api_key"`
	BaseURL     string  `koanf:"base_url"`
	Model       string  `koanf:"model"`
	MaxTokens   int     `koanf:"max_tokens"`
	Temperature float32 `koanf:"temperature"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level string `koanf:"level"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		SQLite: SQLiteConfig{
			Path: "vantage.db",
		},
		Alerts: AlertsConfig{
			ResendBaseURL:  "https://api.resend.com",
			EmailFrom:      "alerts@vantage.local",
			SMTPPort:       587,
			SMTPSecurity:   "starttls",
			RequestTimeout: 5 * time.Second,
		},
		KPI: KPIConfig{
			Enabled:        true,
			PollInterval:   30 * time.Second,
			RequestTimeout: 10 * time.Second,
			StripeBaseURL:  "https://api.stripe.com",
			HubSpotBaseURL: "https://api.hubapi.com",
			MonthlyAdSpend: 450000,
		},
		AI: AIConfig{
			Model:       "gpt-4o-mini",
			MaxTokens:   1024,
			Temperature: 0.1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from an optional TOML file and VANTAGE_*
// environment variables layered on top of defaults.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configPath, err)
		}
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("VANTAGE_", ".", func(s string) string {
		// VANTAGE_SERVER_PORT -> server.port
		return envToKey(strings.TrimPrefix(s, "VANTAGE_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envToKey converts SERVER_PORT to server.port. Only the first underscore
// becomes a section separator so multi-word keys survive.
func envToKey(s string) string {
	s = strings.ToLower(s)
	if i := strings.Index(s, "_"); i > 0 {
		return s[:i] + "." + s[i+1:]
	}
	return s
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.SQLite.Path == "" {
		return fmt.Errorf("sqlite path must not be empty")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.KPI.Enabled && c.KPI.PollInterval < time.Second {
		return fmt.Errorf("kpi poll interval must be at least 1 second")
	}
	return nil
}
