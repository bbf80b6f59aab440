// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// CooldownPolicy decides what happens to a repeat scan inside the cooldown
// window but outside the duplicate grace sub-window.
type CooldownPolicy string

const (
	// CooldownPolicyReject refuses the scan with a typed error.
	CooldownPolicyReject CooldownPolicy = "reject"
	// CooldownPolicyIgnore treats the scan as a duplicate no-op.
	CooldownPolicyIgnore CooldownPolicy = "ignore"
)

// Config holds all runtime configuration for the pointage service.
type Config struct {
	Environment string
	HTTPAddr    string

	// Database
	DatabaseDriver string // "postgres" or "sqlite"
	DatabaseDSN    string

	// ReportingTimezone is the IANA timezone used to group badge events into
	// calendar days. It is a deployment concern and must never fall back to
	// the process-wide local zone silently.
	ReportingTimezone string

	// Pointage cooldown between consecutive actions of the same user.
	CooldownWindow time.Duration
	CooldownGrace  time.Duration
	CooldownPolicy CooldownPolicy

	// Redis, optional. When empty the in-process TTL cache is used.
	RedisAddr     string
	RedisPassword string

	// Stripe "buy me a coffee" support.
	StripeSecretKey     string
	StripeWebhookSecret string
	CoffeeSuccessURL    string
	CoffeeCancelURL     string

	// Observability
	TracingEnabled   bool
	TracingEndpoint  string
	TracingProtocol  string
	SamplingRatio    float64
	ServiceName      string
	ServiceVersion   string
	PrometheusEnable bool

	Bootstrap Bootstrap
}

// Bootstrap controls startup seeding.
type Bootstrap struct {
	EnsureDefaultOrgAndAdmin bool
	SeedDemoTopology         bool
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	cfg := Config{
		Environment:       env("POINTAGE_ENV", "development"),
		HTTPAddr:          env("POINTAGE_HTTP_ADDR", ":8080"),
		DatabaseDriver:    env("POINTAGE_DB_DRIVER", "sqlite"),
		DatabaseDSN:       env("POINTAGE_DB_DSN", "file:pointage.db?_fk=1"),
		ReportingTimezone: env("POINTAGE_REPORTING_TZ", "Europe/Paris"),
		CooldownWindow:    envDuration("POINTAGE_COOLDOWN_WINDOW", 2*time.Minute),
		CooldownGrace:     envDuration("POINTAGE_COOLDOWN_GRACE", 30*time.Second),
		CooldownPolicy:    CooldownPolicy(env("POINTAGE_COOLDOWN_POLICY", string(CooldownPolicyReject))),
		RedisAddr:         env("POINTAGE_REDIS_ADDR", ""),
		RedisPassword:     env("POINTAGE_REDIS_PASSWORD", ""),

		StripeSecretKey:     env("POINTAGE_STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: env("POINTAGE_STRIPE_WEBHOOK_SECRET", ""),
		CoffeeSuccessURL:    env("POINTAGE_COFFEE_SUCCESS_URL", "http://localhost:4200/coffee/success"),
		CoffeeCancelURL:     env("POINTAGE_COFFEE_CANCEL_URL", "http://localhost:4200/coffee/cancel"),

		TracingEnabled:   envBool("POINTAGE_TRACING_ENABLED", false),
		TracingEndpoint:  env("POINTAGE_TRACING_ENDPOINT", "localhost:4317"),
		TracingProtocol:  env("POINTAGE_TRACING_PROTOCOL", "grpc"),
		SamplingRatio:    envFloat("POINTAGE_TRACING_SAMPLING_RATIO", 1.0),
		ServiceName:      env("POINTAGE_SERVICE_NAME", "pointage"),
		ServiceVersion:   env("POINTAGE_SERVICE_VERSION", "dev"),
		PrometheusEnable: envBool("POINTAGE_PROMETHEUS_ENABLED", true),

		Bootstrap: Bootstrap{
			EnsureDefaultOrgAndAdmin: envBool("POINTAGE_BOOTSTRAP_ADMIN", true),
			SeedDemoTopology:         envBool("POINTAGE_BOOTSTRAP_DEMO", false),
		},
	}

	switch cfg.CooldownPolicy {
	case CooldownPolicyReject, CooldownPolicyIgnore:
	default:
		cfg.CooldownPolicy = CooldownPolicyReject
	}
	return cfg
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// ReportingLocation resolves the configured reporting timezone.
func (c Config) ReportingLocation() (*time.Location, error) {
	return time.LoadLocation(strings.TrimSpace(c.ReportingTimezone))
}

func env(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func envFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}
