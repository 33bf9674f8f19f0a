package config

import (
	"os"
	"strings"
	"time"
)

// Config holds the application configuration. Loaded once at startup; the
// .env file itself is loaded in main.go via godotenv for local development.
type Config struct {
	Port        string
	Environment string
	BaseURL     string

	DatabaseURL string
	RedisURL    string

	VapiAPIKey        string
	VapiBaseURL       string
	VapiWebhookSecret string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioNumber     string

	ResendAPIKey string
	EmailFrom    string

	// AdminAPIKeys guards the admin endpoints; comma-separated in env.
	AdminAPIKeys []string

	// DispatchTimeout bounds a single provider call-initiation request.
	DispatchTimeout time.Duration
	// StuckThreshold is how long an in-progress call may go without a
	// webhook before the sweeper fails it.
	StuckThreshold time.Duration
	// SweepInterval is how often the stuck sweeper runs.
	SweepInterval time.Duration
}

// LoadFromEnv builds a Config from environment variables with sane defaults.
func LoadFromEnv() *Config {
	return &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		BaseURL:     getEnvOrDefault("BASE_URL", "http://localhost:8080"),

		DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
		RedisURL:    getEnvOrDefault("REDIS_URL", ""),

		VapiAPIKey:        getEnvOrDefault("VAPI_API_KEY", ""),
		VapiBaseURL:       getEnvOrDefault("VAPI_BASE_URL", "https://api.vapi.ai"),
		VapiWebhookSecret: getEnvOrDefault("VAPI_WEBHOOK_SECRET", ""),

		TwilioAccountSID: getEnvOrDefault("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnvOrDefault("TWILIO_AUTH_TOKEN", ""),
		TwilioNumber:     getEnvOrDefault("TWILIO_NUMBER", ""),

		ResendAPIKey: getEnvOrDefault("RESEND_API_KEY", ""),
		EmailFrom:    getEnvOrDefault("EMAIL_FROM", "Mosh <noreply@mosh.app>"),

		AdminAPIKeys: splitAndTrim(getEnvOrDefault("ADMIN_API_KEYS", "")),

		DispatchTimeout: getEnvAsDurationOrDefault("DISPATCH_TIMEOUT", 15*time.Second),
		StuckThreshold:  getEnvAsDurationOrDefault("STUCK_THRESHOLD", 10*time.Minute),
		SweepInterval:   getEnvAsDurationOrDefault("SWEEP_INTERVAL", time.Minute),
	}
}

// IsDevelopment reports whether the service runs without live provider
// credentials expected.
func (c *Config) IsDevelopment() bool {
	return c.Environment != "production"
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
