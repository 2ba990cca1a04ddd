// Package config provides configuration loading for the shop assistant.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the shop assistant.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Cache         CacheConfig         `yaml:"cache"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Search        SearchConfig        `yaml:"search"`
	Orders        OrdersConfig        `yaml:"orders"`
	Lexicon       LexiconConfig       `yaml:"lexicon"`
	Audit         AuditConfig         `yaml:"audit"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	MaxMessageLength int           `yaml:"max_message_length"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig holds the shared Redis connection used by the cache and the
// rate limiter.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// CacheConfig holds search result cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Prefix     string        `yaml:"prefix"`
}

// RateLimitConfig holds admission control settings.
type RateLimitConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Backend       string        `yaml:"backend"` // memory or redis
	Window        time.Duration `yaml:"window"`
	Max           int           `yaml:"max"`
	Key           string        `yaml:"key"` // ip or user
	SweepInterval time.Duration `yaml:"sweep_interval"`
	Prefix        string        `yaml:"prefix"`
}

// SearchConfig holds retrieval cascade settings.
type SearchConfig struct {
	DefaultLimit int  `yaml:"default_limit"`
	MaxLimit     int  `yaml:"max_limit"`
	CacheResults bool `yaml:"cache_results"`
}

// OrdersConfig holds order lookup settings.
type OrdersConfig struct {
	RecentLimit  int `yaml:"recent_limit"`
	MaxRecent    int `yaml:"max_recent"`
	ByEmailLimit int `yaml:"by_email_limit"`
}

// LexiconConfig points at an optional vocabulary override file.
type LexiconConfig struct {
	Path string `yaml:"path"`
}

// AuditConfig holds query audit settings.
type AuditConfig struct {
	Enabled bool        `yaml:"enabled"`
	Sink    string        `yaml:"sink"` // log, kafka or db
	Kafka   KafkaConfig   `yaml:"kafka"`
	DB      AuditDBConfig `yaml:"db"`
}

// AuditDBConfig holds the buffered database sink settings.
type AuditDBConfig struct {
	BufferSize    int           `yaml:"buffer_size"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// KafkaConfig holds Kafka producer settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Async   bool     `yaml:"async"`
}

// AuthConfig holds caller identification settings.
type AuthConfig struct {
	Enabled bool          `yaml:"enabled"`
	Tokens  []StaticToken `yaml:"tokens"`
}

// StaticToken maps a bearer token to a caller identity.
type StaticToken struct {
	Token  string   `yaml:"token"`
	UserID string   `yaml:"user_id"`
	Roles  []string `yaml:"roles"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8090,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     15 * time.Second,
			IdleTimeout:      60 * time.Second,
			RequestTimeout:   10 * time.Second,
			GracefulShutdown: 10 * time.Second,
			MaxMessageLength: 1000,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:         "/tmp/shop-assistant.db",
				MaxOpenConns: 1,
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        30 * time.Second,
			MaxEntries: 5000,
			Prefix:     "sa:",
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			Backend:       "memory",
			Window:        time.Minute,
			Max:           10,
			Key:           "ip",
			SweepInterval: 5 * time.Minute,
			Prefix:        "sa:rl:",
		},
		Search: SearchConfig{
			DefaultLimit: 8,
			MaxLimit:     30,
			CacheResults: true,
		},
		Orders: OrdersConfig{
			RecentLimit:  5,
			MaxRecent:    20,
			ByEmailLimit: 5,
		},
		Audit: AuditConfig{
			Enabled: true,
			Sink:    "log",
			Kafka: KafkaConfig{
				Topic: "assistant.queries",
				Async: true,
			},
			DB: AuditDBConfig{
				BufferSize:    1000,
				BatchSize:     100,
				FlushInterval: 5 * time.Second,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:    "debug",
			LogFormat:   "json",
			ServiceName: "shop-assistant",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}

	if c.Database.Driver == "postgres" && c.Database.Postgres.DSN == "" {
		return fmt.Errorf("postgres driver requires a dsn")
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.RateLimit.Backend != "memory" && c.RateLimit.Backend != "redis" {
		return fmt.Errorf("invalid rate limit backend: %s", c.RateLimit.Backend)
	}

	if c.RateLimit.Key != "ip" && c.RateLimit.Key != "user" {
		return fmt.Errorf("invalid rate limit key: %s", c.RateLimit.Key)
	}

	if c.RateLimit.Enabled && (c.RateLimit.Max < 1 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("rate limit needs max >= 1 and a positive window")
	}

	if c.Search.DefaultLimit < 1 || c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search limits must satisfy 1 <= default_limit <= max_limit")
	}

	if c.Search.MaxLimit > 30 {
		return fmt.Errorf("search max_limit must not exceed 30")
	}

	if c.Orders.RecentLimit < 1 || c.Orders.MaxRecent < c.Orders.RecentLimit {
		return fmt.Errorf("orders limits must satisfy 1 <= recent_limit <= max_recent")
	}

	if c.Audit.Sink != "log" && c.Audit.Sink != "kafka" && c.Audit.Sink != "db" {
		return fmt.Errorf("invalid audit sink: %s", c.Audit.Sink)
	}

	if c.Audit.Enabled && c.Audit.Sink == "kafka" && len(c.Audit.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka audit sink requires at least one broker")
	}

	return nil
}

// DatabaseDSN returns the appropriate database connection string.
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.SQLite.Path
	}
	return c.Database.Postgres.DSN
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Database.Driver = "sqlite"
			cfg.Database.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Database.Driver = "postgres"
			cfg.Database.Postgres.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("CACHE_DRIVER"); v != "" {
		cfg.Cache.Driver = v
	}

	if v := os.Getenv("RATE_LIMIT_BACKEND"); v != "" {
		cfg.RateLimit.Backend = v
	}

	if v := os.Getenv("RATE_LIMIT_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.Max = n
		}
	}

	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RateLimit.Window = d
		}
	}

	if v := os.Getenv("RATE_LIMIT_KEY"); v != "" {
		cfg.RateLimit.Key = v
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Audit.Kafka.Brokers = splitList(v)
		cfg.Audit.Sink = "kafka"
	}

	if v := os.Getenv("AUDIT_SINK"); v != "" {
		cfg.Audit.Sink = v
	}

	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.Audit.Kafka.Topic = v
	}

	if v := os.Getenv("LEXICON_PATH"); v != "" {
		cfg.Lexicon.Path = v
	}

	if v := os.Getenv("AUTH_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Auth.Enabled = b
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
