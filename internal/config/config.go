package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Bulk ingestion configuration
	Ingest IngestConfig

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// WebSocket configuration
	WebSocket WebSocketConfig

	// CORS configuration
	CORS CORSConfig

	// Logging configuration
	Logging LoggingConfig

	// Application metadata
	App AppConfig

	// Static admin page assets
	Static StaticConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	AutoMigrate     bool
	MigrationsPath  string
}

// IngestConfig holds bulk upload configuration
type IngestConfig struct {
	PacingInterval time.Duration
	MaxUploadBytes int64
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	BulkRPS           float64 // Stricter limit for bulk uploads
	BulkBurst         int
}

// WebSocketConfig holds WebSocket configuration
type WebSocketConfig struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	MaxViewers      int // 0 means unlimited
	PingInterval    time.Duration
	PongWait        time.Duration
}

// CORSConfig holds cross-origin settings for the admin API
type CORSConfig struct {
	AllowedOrigins []string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

// StaticConfig points at the directory served under /static
type StaticConfig struct {
	Dir string
}

// Load reads an optional .env file into the environment, then builds the
// configuration from it. A missing .env file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds and validates the configuration from the process
// environment. A variable that is set but cannot be parsed is an error.
func FromEnv() (*Config, error) {
	env := &envReader{}

	cfg := &Config{
		Server: ServerConfig{
			Port:            env.str("SERVER_PORT", ":8000"),
			ReadTimeout:     env.duration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    env.duration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     env.duration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: env.duration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             env.str("DATABASE_URL", ""),
			MaxOpenConns:    env.integer("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    env.integer("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: env.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: env.duration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			AutoMigrate:     env.flag("DB_AUTO_MIGRATE", true),
			MigrationsPath:  env.str("MIGRATIONS_PATH", "migrations"),
		},
		Ingest: IngestConfig{
			PacingInterval: env.seconds("INGEST_PACING_INTERVAL_SECONDS", 1500*time.Millisecond),
			MaxUploadBytes: int64(env.integer("INGEST_MAX_UPLOAD_BYTES", 10<<20)),
		},
		RateLimit: RateLimitConfig{
			Enabled:           env.flag("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: env.number("RATE_LIMIT_RPS", 10),
			BurstSize:         env.integer("RATE_LIMIT_BURST", 20),
			BulkRPS:           env.number("RATE_LIMIT_BULK_RPS", 0.2),
			BulkBurst:         env.integer("RATE_LIMIT_BULK_BURST", 2),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins:  env.list("WS_ALLOWED_ORIGINS", nil),
			ReadBufferSize:  env.integer("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: env.integer("WS_WRITE_BUFFER_SIZE", 1024),
			SendBufferSize:  env.integer("WS_SEND_BUFFER_SIZE", 256),
			MaxViewers:      env.integer("WS_MAX_VIEWERS", 0),
			PingInterval:    env.duration("WS_PING_INTERVAL", 54*time.Second),
			PongWait:        env.duration("WS_PONG_WAIT", 60*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: env.list("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Logging: LoggingConfig{
			Level:  env.str("LOG_LEVEL", "info"),
			Format: env.str("LOG_FORMAT", "json"),
		},
		App: AppConfig{
			Name:        env.str("APP_NAME", "donor-display"),
			Version:     env.str("APP_VERSION", "dev"),
			Environment: env.str("APP_ENV", "development"),
		},
		Static: StaticConfig{
			Dir: env.str("STATIC_DIR", ""),
		},
	}

	problems := append(env.problems, cfg.problems()...)
	if len(problems) > 0 {
		return nil, errors.New("configuration errors:\n  - " + strings.Join(problems, "\n  - "))
	}
	return cfg, nil
}

// problems lists the settings that are individually valid but unusable
func (c *Config) problems() []string {
	var out []string
	check := func(bad bool, msg string) {
		if bad {
			out = append(out, msg)
		}
	}

	check(c.Database.URL == "", "DATABASE_URL is required")
	check(c.App.Environment == "production" && len(c.WebSocket.AllowedOrigins) == 0,
		"WS_ALLOWED_ORIGINS must be set in production")
	check(c.Database.MaxIdleConns > c.Database.MaxOpenConns,
		"DB_MAX_IDLE_CONNS cannot be greater than DB_MAX_OPEN_CONNS")
	check(c.Ingest.PacingInterval < 0, "INGEST_PACING_INTERVAL_SECONDS cannot be negative")
	check(c.Ingest.MaxUploadBytes <= 0, "INGEST_MAX_UPLOAD_BYTES must be positive")
	check(c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.BulkRPS <= 0),
		"RATE_LIMIT_RPS and RATE_LIMIT_BULK_RPS must be positive when rate limiting is enabled")
	check(c.WebSocket.SendBufferSize <= 0, "WS_SEND_BUFFER_SIZE must be positive")
	check(c.WebSocket.MaxViewers < 0, "WS_MAX_VIEWERS cannot be negative")
	check(c.WebSocket.PingInterval >= c.WebSocket.PongWait, "WS_PING_INTERVAL must be less than WS_PONG_WAIT")
	return out
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// String summarizes the config for the startup log. Database credentials are redacted.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Server: %s, DB: %s, Pacing: %s, MaxViewers: %d, RateLimit: %v, Environment: %s}",
		c.Server.Port,
		redactURL(c.Database.URL),
		c.Ingest.PacingInterval,
		c.WebSocket.MaxViewers,
		c.RateLimit.Enabled,
		c.App.Environment,
	)
}

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[REDACTED]"
	}
	return u.Redacted()
}

// envReader reads typed variables and remembers the ones it could not parse.
type envReader struct {
	problems []string
}

func (e *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) invalid(key, value, want string) {
	e.problems = append(e.problems, fmt.Sprintf("%s: %q is not a valid %s", key, value, want))
}

func (e *envReader) str(key, def string) string {
	if v, ok := e.lookup(key); ok {
		return v
	}
	return def
}

func (e *envReader) integer(key string, def int) int {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.invalid(key, v, "integer")
		return def
	}
	return n
}

func (e *envReader) number(key string, def float64) float64 {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.invalid(key, v, "number")
		return def
	}
	return f
}

func (e *envReader) flag(key string, def bool) bool {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.invalid(key, v, "boolean")
		return def
	}
	return b
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.invalid(key, v, "duration")
		return def
	}
	return d
}

// seconds reads a duration written as (fractional) seconds, e.g. "1.5"
func (e *envReader) seconds(key string, def time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.invalid(key, v, "number of seconds")
		return def
	}
	return time.Duration(f * float64(time.Second))
}

// list reads a comma separated list, dropping empty items
func (e *envReader) list(key string, def []string) []string {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	var items []string
	for _, part := range strings.Split(v, ",") {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return def
	}
	return items
}
