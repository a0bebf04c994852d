package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Settings source kinds accepted by FINANCE_SETTINGS_SOURCE.
const (
	SourcePostgres = "postgres"
	SourceHTTP     = "http"
	SourceStatic   = "static"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	RateLimit          string
	MigrateOnStart     bool

	Finance FinanceConfig
	Circuit CircuitConfig
	Retry   RetryConfig
}

// FinanceConfig configures the settings store and its source.
type FinanceConfig struct {
	Source              string
	SettingsURL         string
	TTL                 time.Duration
	FailureBackoff      time.Duration
	FetchTimeout        time.Duration
	SharedCacheTTL      time.Duration
	InvalidationChannel string
}

// CircuitConfig tunes the breaker guarding the remote settings source.
type CircuitConfig struct {
	MinRequests  int
	FailureRatio float64
	OpenFor      time.Duration
}

// RetryConfig tunes retries against the remote settings source.
type RetryConfig struct {
	Base          time.Duration
	MaxAttempts   int
	JitterPercent int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		RateLimit:          valueOrDefault(k.String("RATE_LIMIT"), "120-M"),
		MigrateOnStart:     parseBool(k.String("MIGRATE_ON_START")),
		Finance: FinanceConfig{
			Source:              strings.ToLower(valueOrDefault(k.String("FINANCE_SETTINGS_SOURCE"), SourcePostgres)),
			SettingsURL:         strings.TrimSpace(k.String("FINANCE_SETTINGS_URL")),
			TTL:                 parseDuration(k.String("FINANCE_SETTINGS_TTL"), "5m"),
			FailureBackoff:      parseDuration(k.String("FINANCE_SETTINGS_FAILURE_BACKOFF"), "30s"),
			FetchTimeout:        parseDuration(k.String("FINANCE_FETCH_TIMEOUT"), "3s"),
			SharedCacheTTL:      parseDuration(k.String("FINANCE_SHARED_CACHE_TTL"), "5m"),
			InvalidationChannel: valueOrDefault(k.String("FINANCE_INVALIDATION_CHANNEL"), "finance:settings:invalidate"),
		},
		Circuit: CircuitConfig{
			MinRequests:  parseInt(k.String("CIRCUIT_SETTINGS_MIN_REQUESTS"), 5),
			FailureRatio: parseFloat(k.String("CIRCUIT_SETTINGS_FAILURE_RATIO"), 0.5),
			OpenFor:      parseDuration(k.String("CIRCUIT_SETTINGS_OPEN_FOR"), "30s"),
		},
		Retry: RetryConfig{
			Base:          parseDuration(k.String("RETRY_BASE"), "100ms"),
			MaxAttempts:   parseInt(k.String("RETRY_MAX_ATTEMPTS"), 3),
			JitterPercent: parseInt(k.String("RETRY_JITTER_PERCENT"), 20),
		},
	}

	switch cfg.Finance.Source {
	case SourcePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when FINANCE_SETTINGS_SOURCE=postgres")
		}
	case SourceHTTP:
		if cfg.Finance.SettingsURL == "" {
			return nil, errors.New("FINANCE_SETTINGS_URL is required when FINANCE_SETTINGS_SOURCE=http")
		}
	case SourceStatic:
	default:
		return nil, fmt.Errorf("unknown FINANCE_SETTINGS_SOURCE %q", cfg.Finance.Source)
	}
	if cfg.Circuit.FailureRatio <= 0 || cfg.Circuit.FailureRatio > 1 {
		return nil, errors.New("CIRCUIT_SETTINGS_FAILURE_RATIO must be in (0, 1]")
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
		return strings.TrimSpace(value)
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

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
