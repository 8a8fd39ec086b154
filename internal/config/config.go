package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backend names
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
)

// Config contains server configuration parameters
type Config struct {
	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"json"`

	HTTP    HTTP    `envPrefix:"HTTP_"`
	Port    int     `env:"PORT" envDefault:"4000"`
	Storage Storage
	Kafka   Kafka `envPrefix:"KAFKA_"`

	// CORSOrigins lists allowed origins; empty allows any origin
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	BcryptCost       int `env:"BCRYPT_COST" envDefault:"10"`
	LeaderboardLimit int `env:"LEADERBOARD_LIMIT" envDefault:"50"`
}

// HTTP contains HTTP server parameters other than the port
type HTTP struct {
	Host            string        `env:"HOST"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Storage selects and configures the persistence backend
type Storage struct {
	// Type is one of memory, redis, postgres or mongo. When empty it is
	// inferred from whichever connection string is set.
	Type          string `env:"STORAGE_TYPE"`
	RedisURL      string `env:"REDIS_URL"`
	DatabaseURL   string `env:"DATABASE_URL"`
	MongoURI      string `env:"MONGODB_URI"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"bughunt"`

	// ConnectRetries bounds connection attempts before falling back
	ConnectRetries int `env:"STORAGE_CONNECT_RETRIES" envDefault:"5"`
	// Fallback runs on the memory backend when the durable one is unreachable
	Fallback bool `env:"STORAGE_FALLBACK" envDefault:"true"`
}

// Kafka contains event stream parameters. Publishing is disabled when no
// brokers are configured.
type Kafka struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
	Topic   string   `env:"TOPIC" envDefault:"bughunt.events"`
}

// LoadDotenv loads variables from a .env file without overriding ones already
// set. A missing file is not an error.
func LoadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.Storage.Type = cfg.Storage.ResolveType()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveType returns the configured backend, inferring it from the
// connection strings when unset
func (s Storage) ResolveType() string {
	if t := strings.ToLower(strings.TrimSpace(s.Type)); t != "" {
		return t
	}
	switch {
	case s.DatabaseURL != "":
		return StoragePostgres
	case s.MongoURI != "":
		return StorageMongo
	case s.RedisURL != "":
		return StorageRedis
	default:
		return StorageMemory
	}
}

// Validate checks values env parsing cannot
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case StorageMemory:
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			return errors.New("REDIS_URL is required when STORAGE_TYPE=redis")
		}
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORAGE_TYPE=postgres")
		}
	case StorageMongo:
		if c.Storage.MongoURI == "" {
			return errors.New("MONGODB_URI is required when STORAGE_TYPE=mongo")
		}
	default:
		return fmt.Errorf("invalid STORAGE_TYPE %q: must be memory, redis, postgres or mongo", c.Storage.Type)
	}

	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("invalid LOG_FORMAT %q: must be json or text", c.LogFormat)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	return nil
}
