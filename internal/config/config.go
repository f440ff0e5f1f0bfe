// Package config loads environment-variable configuration.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the runtime configuration for the router.
type Config struct {
	// N8NAPIURL is the base URL of the n8n instance.
	N8NAPIURL string
	// N8NAPIKey authenticates calls to the n8n REST API.
	N8NAPIKey string
	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string
	// RefreshIntervalSecs is the period of the trigger refresh loop.
	RefreshIntervalSecs int
	// EndpointWebhook is the production webhook path segment in n8n URLs.
	EndpointWebhook string
	// EndpointWebhookTest is the test webhook path segment in n8n URLs.
	EndpointWebhookTest string
	// GitHubWebhookSecret optionally verifies inbound GitHub deliveries.
	// Empty disables verification.
	GitHubWebhookSecret string
	// DatabasePath is the SQLite database file, or ":memory:".
	DatabasePath string
	// LogLevel is the zap log level (debug, info, warn, error).
	LogLevel string
}

// Load reads configuration from environment variables, applying defaults.
// It returns an error when a required variable is missing.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("N8N_API_URL", "http://localhost:5678")
	v.SetDefault("LISTEN_ADDR", "0.0.0.0:3000")
	v.SetDefault("REFRESH_INTERVAL_SECS", 60)
	v.SetDefault("N8N_ENDPOINT_WEBHOOK", "webhook")
	v.SetDefault("N8N_ENDPOINT_WEBHOOK_TEST", "webhook-test")
	v.SetDefault("DATABASE_PATH", "unihook.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.AutomaticEnv()

	cfg := &Config{
		N8NAPIURL:           v.GetString("N8N_API_URL"),
		N8NAPIKey:           v.GetString("N8N_API_KEY"),
		ListenAddr:          v.GetString("LISTEN_ADDR"),
		RefreshIntervalSecs: v.GetInt("REFRESH_INTERVAL_SECS"),
		EndpointWebhook:     v.GetString("N8N_ENDPOINT_WEBHOOK"),
		EndpointWebhookTest: v.GetString("N8N_ENDPOINT_WEBHOOK_TEST"),
		GitHubWebhookSecret: v.GetString("GITHUB_WEBHOOK_SECRET"),
		DatabasePath:        v.GetString("DATABASE_PATH"),
		LogLevel:            v.GetString("LOG_LEVEL"),
	}

	if cfg.N8NAPIKey == "" {
		return nil, fmt.Errorf("N8N_API_KEY is required")
	}
	if cfg.RefreshIntervalSecs <= 0 {
		return nil, fmt.Errorf("REFRESH_INTERVAL_SECS must be positive, got %d", cfg.RefreshIntervalSecs)
	}
	return cfg, nil
}
