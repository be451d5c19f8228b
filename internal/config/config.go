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

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port                 string        // e.g. "8080"
	BackofficePort       string        // e.g. "8081"; "" disables the backoffice listener
	Env                  string        // "development" | "production"
	ReadTimeout          time.Duration // default 10s
	WriteTimeout         time.Duration // default 10s
	ShutdownTimeout      time.Duration // default 10s
	BackofficeAllowedIPs string        // comma-separated IPs; "" = allow all
	CORSOrigins          []string      // allowed origins in production
	WSAllowedOrigins     []string      // websocket origins; empty = same-host only in production
	TradeRateLimit       int           // req/s per caller on mutating routes
}

// AuthConfig holds JWT signing settings and the caller-identity policy.
// An address listed in AdminAddresses gets the admin role only when it also
// presents the secret whose bcrypt hash is AdminSecretHash.
type AuthConfig struct {
	AccessSecret    string        // must be set
	AccessTTL       time.Duration // default 24h
	Required        bool          // mutating routes demand a bearer token
	AdminAddresses  []string      // addresses eligible for the admin role
	AdminSecretHash string        // bcrypt hash; "" disables the admin role
	ChallengeTTL    time.Duration // login challenge lifetime, default 5m
}

// RedisConfig holds the event publisher settings.
type RedisConfig struct {
	Enabled       bool
	Addr          string // host:port
	Password      string
	DB            int
	ChannelPrefix string // events go to <prefix>:<type>
	Stream        string // capped stream receiving every event; "" disables
	StreamMaxLen  int64
}

// SnapshotConfig controls the optional Postgres archive of the store.
type SnapshotConfig struct {
	Enabled  bool
	DSN      string
	Interval time.Duration // default 1m
}

// NotifyConfig sizes the async event dispatcher.
type NotifyConfig struct {
	BufferSize     int           // queued events before drops start
	PublishTimeout time.Duration // per-sink deadline for one event
}

// MarketConfig holds listing defaults.
type MarketConfig struct {
	DefaultListLimit int // default 100
	MaxListLimit     int // default 500
}

// SchedulerConfig holds background loop intervals.
type SchedulerConfig struct {
	StatsInterval time.Duration // platform stats broadcast, default 30s
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Redis     RedisConfig
	Snapshot  SnapshotConfig
	Notify    NotifyConfig
	Market    MarketConfig
	Scheduler SchedulerConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// IsAdmin reports whether address is listed in AUTH_ADMIN_ADDRESSES.
func (c *Config) IsAdmin(address string) bool {
	for _, a := range c.Auth.AdminAddresses {
		if strings.EqualFold(a, address) {
			return true
		}
	}
	return false
}

// Validate checks that all required configuration values are present and valid.
// Every problem is reported, joined into one error.
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.AccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET must be set"))
	} else if c.IsProd() && len(c.Auth.AccessSecret) < 32 {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET must be at least 32 bytes in production"))
	}
	if c.Auth.AccessTTL <= 0 {
		errs = append(errs, fmt.Errorf("JWT_ACCESS_TTL must be positive, got %s", c.Auth.AccessTTL))
	}

	if c.Auth.ChallengeTTL <= 0 {
		errs = append(errs, fmt.Errorf("AUTH_CHALLENGE_TTL must be positive, got %s", c.Auth.ChallengeTTL))
	}
	if c.Auth.AdminSecretHash != "" {
		if _, err := bcrypt.Cost([]byte(c.Auth.AdminSecretHash)); err != nil {
			errs = append(errs, fmt.Errorf("AUTH_ADMIN_SECRET_HASH is not a bcrypt hash: %w", err))
		}
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("REDIS_ADDR must be set when REDIS_ENABLED=true"))
	}
	if c.Snapshot.Enabled {
		if c.Snapshot.DSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN must be set when SNAPSHOT_ENABLED=true"))
		}
		if c.Snapshot.Interval <= 0 {
			errs = append(errs, fmt.Errorf("SNAPSHOT_INTERVAL must be positive, got %s", c.Snapshot.Interval))
		}
	}

	if c.Notify.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("NOTIFY_BUFFER_SIZE must be positive, got %d", c.Notify.BufferSize))
	}
	if c.Market.DefaultListLimit <= 0 || c.Market.DefaultListLimit > c.Market.MaxListLimit {
		errs = append(errs, fmt.Errorf(
			"MARKET_DEFAULT_LIST_LIMIT must be in (0, %d], got %d",
			c.Market.MaxListLimit, c.Market.DefaultListLimit,
		))
	}
	if c.Server.TradeRateLimit <= 0 {
		errs = append(errs, fmt.Errorf("TRADE_RATE_LIMIT must be positive, got %d", c.Server.TradeRateLimit))
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
// Panics if loading fails; call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		_ = godotenv.Load() // optional .env; real env vars win
		instance, loadErr = Load()
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
// Loader
// ──────────────────────────────────────────────────────────────────────────────

// Load builds a Config from the current environment without caching it.
func Load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	tradeRL, err := getInt("TRADE_RATE_LIMIT", 30)
	if err != nil {
		return nil, fmt.Errorf("TRADE_RATE_LIMIT: %w", err)
	}
	cfg.Server = ServerConfig{
		Port:                 getEnv("SERVER_PORT", "8080"),
		BackofficePort:       getEnv("BACKOFFICE_PORT", "8081"),
		Env:                  getEnv("ENVIRONMENT", "development"),
		ReadTimeout:          getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:         getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout:      getDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		BackofficeAllowedIPs: getEnv("BACKOFFICE_ALLOWED_IPS", ""),
		CORSOrigins:          getList("CORS_ALLOWED_ORIGINS"),
		WSAllowedOrigins:     getList("WS_ALLOWED_ORIGINS"),
		TradeRateLimit:       tradeRL,
	}

	// ── Auth ──────────────────────────────────────────────────────────────────
	required, err := getBool("AUTH_REQUIRED", false)
	if err != nil {
		return nil, fmt.Errorf("AUTH_REQUIRED: %w", err)
	}
	cfg.Auth = AuthConfig{
		AccessSecret:    getEnv("JWT_ACCESS_SECRET", ""),
		AccessTTL:       getDuration("JWT_ACCESS_TTL", 24*time.Hour),
		Required:        required,
		AdminAddresses:  getList("AUTH_ADMIN_ADDRESSES"),
		AdminSecretHash: getEnv("AUTH_ADMIN_SECRET_HASH", ""),
		ChallengeTTL:    getDuration("AUTH_CHALLENGE_TTL", 5*time.Minute),
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	redisOn, err := getBool("REDIS_ENABLED", false)
	if err != nil {
		return nil, fmt.Errorf("REDIS_ENABLED: %w", err)
	}
	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}
	streamMax, err := getInt("REDIS_STREAM_MAXLEN", 10000)
	if err != nil {
		return nil, fmt.Errorf("REDIS_STREAM_MAXLEN: %w", err)
	}
	cfg.Redis = RedisConfig{
		Enabled:       redisOn,
		Addr:          getEnv("REDIS_ADDR", "localhost:6379"),
		Password:      getEnv("REDIS_PASSWORD", ""),
		DB:            redisDB,
		ChannelPrefix: getEnv("REDIS_CHANNEL_PREFIX", "predictarena"),
		Stream:        getEnv("REDIS_STREAM", "predictarena:events"),
		StreamMaxLen:  int64(streamMax),
	}

	// ── Snapshot ──────────────────────────────────────────────────────────────
	snapOn, err := getBool("SNAPSHOT_ENABLED", false)
	if err != nil {
		return nil, fmt.Errorf("SNAPSHOT_ENABLED: %w", err)
	}
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" && snapOn {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "predictarena"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}
	cfg.Snapshot = SnapshotConfig{
		Enabled:  snapOn,
		DSN:      dsn,
		Interval: getDuration("SNAPSHOT_INTERVAL", time.Minute),
	}

	// ── Notify ────────────────────────────────────────────────────────────────
	buf, err := getInt("NOTIFY_BUFFER_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("NOTIFY_BUFFER_SIZE: %w", err)
	}
	cfg.Notify = NotifyConfig{
		BufferSize:     buf,
		PublishTimeout: getDuration("NOTIFY_PUBLISH_TIMEOUT", 2*time.Second),
	}

	// ── Market ────────────────────────────────────────────────────────────────
	defLimit, err := getInt("MARKET_DEFAULT_LIST_LIMIT", 100)
	if err != nil {
		return nil, fmt.Errorf("MARKET_DEFAULT_LIST_LIMIT: %w", err)
	}
	maxLimit, err := getInt("MARKET_MAX_LIST_LIMIT", 500)
	if err != nil {
		return nil, fmt.Errorf("MARKET_MAX_LIST_LIMIT: %w", err)
	}
	cfg.Market = MarketConfig{
		DefaultListLimit: defLimit,
		MaxListLimit:     maxLimit,
	}

	// ── Scheduler ─────────────────────────────────────────────────────────────
	cfg.Scheduler = SchedulerConfig{
		StatsInterval: getDuration("STATS_BROADCAST_INTERVAL", 30*time.Second),
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

func getBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", v)
	}
	return b, nil
}

// getList splits a comma-separated env var, dropping blanks.
func getList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
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
		// fall back to default; do not crash on parse error
		return defaultVal
	}
	return d
}
