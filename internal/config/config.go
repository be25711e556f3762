package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all process configuration. It is built once at startup and
// handed to the components that need it.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Migrate  MigrateConfig

	// StatsTTL bounds how long the cached statistics document lives in Redis.
	StatsTTL time.Duration
	LogLevel string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// PostgresConfig describes the relational store connection.
type PostgresConfig struct {
	DSN string
}

// RedisConfig describes the key-value store connection.
type RedisConfig struct {
	URL string
}

// MigrateConfig locates schema files and controls startup migration.
type MigrateConfig struct {
	Dir     string
	OnStart bool
}

// AuthConfig carries the secret material and lifetimes used by the auth core.
type AuthConfig struct {
	Secret         string
	TokenTTL       time.Duration
	SessionTTL     time.Duration
	BcryptCost     int
	RequireSession bool
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	tokenTTL := getEnvDuration("TOKEN_TTL", 24*time.Hour)
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":3000"),
			ReadTimeout:     getEnvDuration("READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS"),
		},
		Postgres: PostgresConfig{DSN: postgresDSN()},
		Redis:    RedisConfig{URL: redisURL()},
		Auth: AuthConfig{
			Secret:         strings.TrimSpace(os.Getenv("JWT_SECRET")),
			TokenTTL:       tokenTTL,
			SessionTTL:     getEnvDuration("SESSION_TTL", tokenTTL),
			BcryptCost:     getEnvInt("BCRYPT_COST", 10),
			RequireSession: getEnvBool("AUTH_REQUIRE_SESSION", false),
		},
		Migrate: MigrateConfig{
			Dir:     getEnv("MIGRATIONS_DIR", "ops/migrations/sql"),
			OnStart: getEnvBool("MIGRATE_ON_START", false),
		},
		StatsTTL: getEnvDuration("STATS_TTL", 60*time.Second),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("HTTP_ADDR is required")
	}
	if c.Auth.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.StatsTTL <= 0 {
		return errors.New("STATS_TTL must be positive")
	}
	return nil
}

func postgresDSN() string {
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		return dsn
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(getEnv("DB_USER", "postgres"), getEnv("DB_PASSWORD", "password")),
		Host:   net.JoinHostPort(getEnv("DB_HOST", "postgres-service"), getEnv("DB_PORT", "5432")),
		Path:   "/" + getEnv("DB_NAME", "appdb"),
	}
	q := u.Query()
	q.Set("sslmode", getEnv("DB_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

func redisURL() string {
	if raw := strings.TrimSpace(os.Getenv("REDIS_URL")); raw != "" {
		return raw
	}
	return "redis://" + net.JoinHostPort(getEnv("REDIS_HOST", "redis-service"), getEnv("REDIS_PORT", "6379"))
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getEnvList(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
