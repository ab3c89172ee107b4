package config

import (
	"context"
	"time"
)

// SettingsStore is the interface for retrieving runtime settings persisted
// in the database.
type SettingsStore interface {
	GetSettingWithDefault(ctx context.Context, key, defaultValue string) string
	GetBoolSetting(ctx context.Context, key string, defaultValue bool) bool
	GetIntSetting(ctx context.Context, key string, defaultValue int) int
	GetFloat64Setting(ctx context.Context, key string, defaultValue float64) float64
	GetDurationSetting(ctx context.Context, key string, defaultValue time.Duration) time.Duration
}

// LoadRuntimeConfig layers database-held settings over the static config.
// Database values win for runtime-tunable keys; listener and storage paths
// stay file-only.
func LoadRuntimeConfig(ctx context.Context, staticConfig *Config, store SettingsStore) *Config {
	cfg := *staticConfig
	if store == nil {
		return &cfg
	}

	cfg.Alerts.ResendAPIKey = store.GetSettingWithDefault(ctx, "alerts.resend_api_key", cfg.Alerts.ResendAPIKey)
	cfg.Alerts.EmailFrom = store.GetSettingWithDefault(ctx, "alerts.email_from", cfg.Alerts.EmailFrom)
	cfg.Alerts.SMTPHost = store.GetSettingWithDefault(ctx, "alerts.smtp_host", cfg.Alerts.SMTPHost)
	cfg.Alerts.SMTPPort = store.GetIntSetting(ctx, "alerts.smtp_port", cfg.Alerts.SMTPPort)
	cfg.Alerts.SMTPUsername = store.GetSettingWithDefault(ctx, "alerts.smtp_username", cfg.Alerts.SMTPUsername)
	cfg.Alerts.SMTPPassword = store.GetSettingWithDefault(ctx, "alerts.smtp_password", cfg.Alerts.SMTPPassword)
	cfg.Alerts.SMTPReplyTo = store.GetSettingWithDefault(ctx, "alerts.smtp_reply_to", cfg.Alerts.SMTPReplyTo)
	cfg.Alerts.SMTPSecurity = store.GetSettingWithDefault(ctx, "alerts.smtp_security", cfg.Alerts.SMTPSecurity)
	cfg.Alerts.RequestTimeout = store.GetDurationSetting(ctx, "alerts.request_timeout", cfg.Alerts.RequestTimeout)
	cfg.Alerts.TLSInsecureSkipVerify = store.GetBoolSetting(ctx, "alerts.tls_insecure_skip_verify", cfg.Alerts.TLSInsecureSkipVerify)

	cfg.KPI.Enabled = store.GetBoolSetting(ctx, "kpi.enabled", cfg.KPI.Enabled)
	cfg.KPI.PollInterval = store.GetDurationSetting(ctx, "kpi.poll_interval", cfg.KPI.PollInterval)
	cfg.KPI.MonthlyAdSpend = store.GetFloat64Setting(ctx, "kpi.monthly_ad_spend", cfg.KPI.MonthlyAdSpend)

	cfg.AI.Enabled = store.GetBoolSetting(ctx, "ai.enabled", cfg.AI.Enabled)
	cfg.AI.APIKey = store.GetSettingWithDefault(ctx, "ai.api_key", cfg.AI.APIKey)
	cfg.AI.BaseURL = store.GetSettingWithDefault(ctx, "ai.base_url", cfg.AI.BaseURL)
	cfg.AI.Model = store.GetSettingWithDefault(ctx, "ai.model", cfg.AI.Model)
	cfg.AI.MaxTokens = store.GetIntSetting(ctx, "ai.max_tokens", cfg.AI.MaxTokens)
	cfg.AI.Temperature = float32(store.GetFloat64Setting(ctx, "ai.temperature", float64(cfg.AI.Temperature)))

	return &cfg
}
