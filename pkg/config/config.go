package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the process-level settings read from the environment
// Strategy parameters live in the YAML file at StrategyPath, not here
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	Port string
	Env  string // development, staging, production

	Database DatabaseConfig
	Redis    RedisConfig
	Feed     FeedConfig

	StrategyPath       string        // YAML with default params and watched pairs
	EvaluationCacheTTL time.Duration // Redis TTL of stored evaluations

	LogLevel  string
	LogFormat string // json, console, pretty

	MetricsEnabled bool
	MetricsPort    string
}

// DatabaseConfig holds the PostgreSQL DSN and pool sizing
type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration; Enabled=false turns cache and shared limiter off
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// FeedConfig holds the daily price CSV feed configuration
// URLTemplate placeholders: {symbol}, {from}, {to} (YYYYMMDD)
type FeedConfig struct {
	URLTemplate       string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
}

var validEnvs = map[string]bool{"development": true, "staging": true, "production": true}

var validLogFormats = map[string]bool{"json": true, "console": true, "pretty": true}

// Load reads configuration from the environment, after an optional .env file
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        envInt("DB_MAX_CONNS", 25),
			MinConns:        envInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: envDuration("DB_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: envDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       envInt("REDIS_DB", 0),
			Enabled:  envBool("REDIS_ENABLED", false),
		},

		Feed: FeedConfig{
			URLTemplate:       getEnv("FEED_URL_TEMPLATE", "https://stooq.com/q/d/l/?s={symbol}&d1={from}&d2={to}&i=d"),
			Timeout:           envDuration("FEED_TIMEOUT", 30*time.Second),
			RequestsPerSecond: envFloat("FEED_RPS", 2),
			Burst:             envInt("FEED_BURST", 1),
			MaxRetries:        envInt("FEED_MAX_RETRIES", 3),
		},

		StrategyPath:       getEnv("STRATEGY_CONFIG", "config/strategy/pairs.yaml"),
		EvaluationCacheTTL: envDuration("EVALUATION_CACHE_TTL", 24*time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: envBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// HasDatabase reports whether a DATABASE_URL was configured
// backtests from CSV files run without one
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// validate reports every unusable value at once
func (c *Config) validate() error {
	var errs []error
	if !validEnvs[c.Env] {
		errs = append(errs, fmt.Errorf("ENV must be one of: development, staging, production (got %q)", c.Env))
	}
	if c.Env == "production" && !c.HasDatabase() {
		errs = append(errs, errors.New("DATABASE_URL is required in production"))
	}
	if !validLogFormats[c.LogFormat] {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json, console or pretty (got %q)", c.LogFormat))
	}
	if c.Feed.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("FEED_RPS must be > 0"))
	}
	if c.Feed.Burst < 1 {
		errs = append(errs, errors.New("FEED_BURST must be >= 1"))
	}
	if c.EvaluationCacheTTL < 0 {
		errs = append(errs, errors.New("EVALUATION_CACHE_TTL must not be negative"))
	}
	return errors.Join(errs...)
}

// loadEnvFile loads the first .env found in the working directory or next to the binary
func loadEnvFile() {
	paths := []string{".env", "backend/.env"}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		paths = append(paths, filepath.Join(dir, ".env"), filepath.Join(dir, "..", ".env"))
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envParse returns the parsed value of key; unset or malformed values give def
func envParse[T any](key string, def T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	return envParse(key, def, strconv.Atoi)
}

func envFloat(key string, def float64) float64 {
	return envParse(key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func envBool(key string, def bool) bool {
	return envParse(key, def, strconv.ParseBool)
}

func envDuration(key string, def time.Duration) time.Duration {
	return envParse(key, def, time.ParseDuration)
}
