package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisURL    string

	CORSAllowedOrigins []string
	PublicBaseURL      string
	CheckoutURL        string

	MonmiAPIKey      string
	MonmiSecretKey   string
	MonmiEnvironment string
	MonmiDevBaseURL  string
	MonmiProdBaseURL string

	CurrencyCode string
	StoreName    string
	StoreEmail   string

	SessionTTL      time.Duration
	NonceTTL        time.Duration
	SnapshotTTL     time.Duration
	MethodsCacheTTL time.Duration

	SessionRateLimit  int
	SessionRateWindow time.Duration

	ReconcilePendingAfter time.Duration
	ReconcileSweepCron    string

	DiagBasicAuthUser string
	DiagBasicAuthPass string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:      valueOrDefault(k.String("APP_ENV"), "development"),
		Port:        valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL: k.String("DATABASE_URL"),
		RedisURL:    k.String("REDIS_URL"),

		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		PublicBaseURL:      strings.TrimRight(strings.TrimSpace(k.String("PUBLIC_BASE_URL")), "/"),
		CheckoutURL:        strings.TrimSpace(k.String("CHECKOUT_URL")),

		MonmiAPIKey:      strings.TrimSpace(k.String("MONMI_API_KEY")),
		MonmiSecretKey:   strings.TrimSpace(k.String("MONMI_SECRET_KEY")),
		MonmiEnvironment: valueOrDefault(strings.ToLower(strings.TrimSpace(k.String("MONMI_ENVIRONMENT"))), "development"),
		MonmiDevBaseURL:  valueOrDefault(k.String("MONMI_DEV_BASE_URL"), "https://store-hub-api-develop.myepis.cloud"),
		MonmiProdBaseURL: valueOrDefault(k.String("MONMI_PROD_BASE_URL"), "https://store-hub-api.myepis.cloud"),

		CurrencyCode: valueOrDefault(k.String("CURRENCY_CODE"), "USD"),
		StoreName:    valueOrDefault(k.String("STORE_NAME"), "Store"),
		StoreEmail:   strings.TrimSpace(k.String("STORE_EMAIL")),

		SessionTTL:      parseDuration(k.String("PAYMENT_SESSION_TTL"), "30m"),
		NonceTTL:        parseDuration(k.String("CHECKOUT_NONCE_TTL"), "15m"),
		SnapshotTTL:     parseDuration(k.String("DIAG_SNAPSHOT_TTL"), "15m"),
		MethodsCacheTTL: parseDuration(k.String("METHODS_CACHE_TTL"), "15m"),

		SessionRateLimit:  intOrDefault(k.Int("SESSION_RATE_LIMIT"), 30),
		SessionRateWindow: parseDuration(k.String("SESSION_RATE_WINDOW"), "1m"),

		ReconcilePendingAfter: parseDuration(k.String("RECONCILE_PENDING_AFTER"), "2h"),
		ReconcileSweepCron:    valueOrDefault(k.String("RECONCILE_SWEEP_CRON"), "@every 10m"),

		DiagBasicAuthUser: strings.TrimSpace(k.String("DIAG_BASIC_AUTH_USER")),
		DiagBasicAuthPass: strings.TrimSpace(k.String("DIAG_BASIC_AUTH_PASS")),
	}

	if cfg.MonmiEnvironment != "development" && cfg.MonmiEnvironment != "production" {
		cfg.MonmiEnvironment = "development"
	}
	if cfg.CheckoutURL == "" && cfg.PublicBaseURL != "" {
		cfg.CheckoutURL = cfg.PublicBaseURL + "/checkout"
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// BaseURLs maps provider environments to their configured API hosts.
func (c *Config) BaseURLs() map[string]string {
	return map[string]string{
		"development": c.MonmiDevBaseURL,
		"production":  c.MonmiProdBaseURL,
	}
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func intOrDefault(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}
