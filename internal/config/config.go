// Package config provides application configuration loaded from environment variables.
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        // e.g. "8080"
	Env          string        // "development" | "production"
	ReadTimeout  time.Duration // default 10s
	WriteTimeout time.Duration // default 10s
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
}

// OracleConfig holds the oracle role identity configured at deployment.
// Only a caller presenting this identity may initialize or settle slots.
type OracleConfig struct {
	ID     string        // oracle identity, must be set
	Secret string        // HMAC secret for oracle API tokens, must be set
	TTL    time.Duration // max age of an oracle token, default 1h
}

// EnrichmentConfig holds listings-source settings.
type EnrichmentConfig struct {
	BaseURL      string        // listings API base, e.g. "https://api.emlakfeed.com"
	FetchTimeout time.Duration // default 5s
	Locations    []string      // immutable catalog of candidate cities
}

// RandomConfig holds randomness-source settings for the price multiplier.
type RandomConfig struct {
	BaseURL      string        // integer endpoint base, e.g. "https://www.random.org"
	FetchTimeout time.Duration // default 2s
	MaxDraws     int           // remote resample budget before local fallback, default 5
}

// FulfillmentConfig holds orchestrator loop settings.
type FulfillmentConfig struct {
	NotifyBuffer   int           // batch notification channel depth, default 64
	RescanInterval time.Duration // stale pending-batch replay period, default 1m
	RescanAge      time.Duration // a batch must be at least this old to be rescanned, default 30s
	SettleInterval time.Duration // played-slot settlement period, default 15s
	SettleLimit    int           // max slots settled per pass, default 50
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server      ServerConfig
	DB          DBConfig
	Oracle      OracleConfig
	Enrichment  EnrichmentConfig
	Random      RandomConfig
	Fulfillment FulfillmentConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// Returns the first validation error encountered.
func (c *Config) Validate() error {
	var errs []error

	// Oracle identity is mandatory: without it no slot can ever be initialized.
	if c.Oracle.ID == "" {
		errs = append(errs, errors.New("ORACLE_ID must be set"))
	}
	if c.Oracle.Secret == "" {
		errs = append(errs, errors.New("ORACLE_SECRET must be set"))
	}

	// In production, DB DSN must be explicit
	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}

	if len(c.Enrichment.Locations) == 0 {
		errs = append(errs, errors.New("ENRICHMENT_LOCATIONS must contain at least one city"))
	}

	if c.Random.MaxDraws < 1 {
		errs = append(errs, fmt.Errorf(
			"RANDOM_MAX_DRAWS must be at least 1, got %d", c.Random.MaxDraws))
	}

	if c.Fulfillment.NotifyBuffer < 1 {
		errs = append(errs, fmt.Errorf(
			"FULFILLMENT_NOTIFY_BUFFER must be at least 1, got %d", c.Fulfillment.NotifyBuffer))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails — call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

// defaultLocations is the built-in candidate-city catalog used when
// ENRICHMENT_LOCATIONS is unset. Injected once at startup; never mutated.
var defaultLocations = []string{
	"Istanbul", "Ankara", "Izmir", "Bursa", "Antalya", "Eskisehir",
}

func load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:         getEnv("SERVER_PORT", "8080"),
		Env:          getEnv("ENVIRONMENT", "development"),
		ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "emlakbet_housegame"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	// ── Oracle ────────────────────────────────────────────────────────────────
	cfg.Oracle = OracleConfig{
		ID:     getEnv("ORACLE_ID", ""),
		Secret: getEnv("ORACLE_SECRET", ""),
		TTL:    getDuration("ORACLE_TOKEN_TTL", time.Hour),
	}

	// ── Enrichment ────────────────────────────────────────────────────────────
	locations := defaultLocations
	if raw := os.Getenv("ENRICHMENT_LOCATIONS"); raw != "" {
		locations = nil
		for _, l := range strings.Split(raw, ",") {
			if l = strings.TrimSpace(l); l != "" {
				locations = append(locations, l)
			}
		}
	}
	cfg.Enrichment = EnrichmentConfig{
		BaseURL:      getEnv("ENRICHMENT_BASE_URL", "https://api.emlakfeed.com"),
		FetchTimeout: getDuration("ENRICHMENT_FETCH_TIMEOUT", 5*time.Second),
		Locations:    locations,
	}

	// ── Random ────────────────────────────────────────────────────────────────
	maxDraws, err := getInt("RANDOM_MAX_DRAWS", 5)
	if err != nil {
		return nil, fmt.Errorf("RANDOM_MAX_DRAWS: %w", err)
	}
	cfg.Random = RandomConfig{
		BaseURL:      getEnv("RANDOM_BASE_URL", "https://www.random.org"),
		FetchTimeout: getDuration("RANDOM_FETCH_TIMEOUT", 2*time.Second),
		MaxDraws:     maxDraws,
	}

	// ── Fulfillment ───────────────────────────────────────────────────────────
	notifyBuf, err := getInt("FULFILLMENT_NOTIFY_BUFFER", 64)
	if err != nil {
		return nil, fmt.Errorf("FULFILLMENT_NOTIFY_BUFFER: %w", err)
	}
	settleLimit, err := getInt("FULFILLMENT_SETTLE_LIMIT", 50)
	if err != nil {
		return nil, fmt.Errorf("FULFILLMENT_SETTLE_LIMIT: %w", err)
	}
	cfg.Fulfillment = FulfillmentConfig{
		NotifyBuffer:   notifyBuf,
		RescanInterval: getDuration("FULFILLMENT_RESCAN_INTERVAL", time.Minute),
		RescanAge:      getDuration("FULFILLMENT_RESCAN_AGE", 30*time.Second),
		SettleInterval: getDuration("FULFILLMENT_SETTLE_INTERVAL", 15*time.Second),
		SettleLimit:    settleLimit,
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
