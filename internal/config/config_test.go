package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_DefaultValues(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, StorageMemory, cfg.Storage.Type)
	assert.Equal(t, "bughunt", cfg.Storage.MongoDatabase)
	assert.Equal(t, 5, cfg.Storage.ConnectRetries)
	assert.True(t, cfg.Storage.Fallback)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "bughunt.events", cfg.Kafka.Topic)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 50, cfg.LeaderboardLimit)
}

func TestNewConfig_EnvironmentOverrides(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected func(*Config)
	}{
		{
			name:    "logging override",
			envVars: map[string]string{"LOG_LEVEL": "debug", "LOG_FORMAT": "TEXT"},
			expected: func(cfg *Config) {
				assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
				assert.Equal(t, "text", cfg.LogFormat)
			},
		},
		{
			name:    "http override",
			envVars: map[string]string{"PORT": "8080", "HTTP_HOST": "127.0.0.1", "HTTP_READ_TIMEOUT": "5s"},
			expected: func(cfg *Config) {
				assert.Equal(t, 8080, cfg.Port)
				assert.Equal(t, "127.0.0.1", cfg.HTTP.Host)
				assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
			},
		},
		{
			name:    "kafka and cors lists",
			envVars: map[string]string{"KAFKA_BROKERS": "k1:9092,k2:9092", "CORS_ORIGINS": "http://localhost:5173"},
			expected: func(cfg *Config) {
				assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
				assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
			},
		},
		{
			name:    "explicit storage type",
			envVars: map[string]string{"STORAGE_TYPE": "Redis", "REDIS_URL": "redis://cache:6379"},
			expected: func(cfg *Config) {
				assert.Equal(t, StorageRedis, cfg.Storage.Type)
				assert.Equal(t, "redis://cache:6379", cfg.Storage.RedisURL)
			},
		},
		{
			name:    "storage inferred from database url",
			envVars: map[string]string{"DATABASE_URL": "postgres://localhost/bughunt"},
			expected: func(cfg *Config) {
				assert.Equal(t, StoragePostgres, cfg.Storage.Type)
			},
		},
		{
			name:    "storage inferred from mongo uri",
			envVars: map[string]string{"MONGODB_URI": "mongodb://localhost:27017"},
			expected: func(cfg *Config) {
				assert.Equal(t, StorageMongo, cfg.Storage.Type)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := NewConfig()
			require.NoError(t, err)
			tt.expected(cfg)
		})
	}
}

func TestNewConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
	}{
		{name: "unknown storage type", envVars: map[string]string{"STORAGE_TYPE": "cassandra"}},
		{name: "redis without url", envVars: map[string]string{"STORAGE_TYPE": "redis"}},
		{name: "postgres without url", envVars: map[string]string{"STORAGE_TYPE": "postgres"}},
		{name: "mongo without uri", envVars: map[string]string{"STORAGE_TYPE": "mongo"}},
		{name: "bad log format", envVars: map[string]string{"LOG_FORMAT": "xml"}},
		{name: "bad port", envVars: map[string]string{"PORT": "70000"}},
		{name: "unparseable duration", envVars: map[string]string{"HTTP_READ_TIMEOUT": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			_, err := NewConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadDotenv(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		assert.NoError(t, LoadDotenv(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("values are loaded without overriding the environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("BUGHUNT_DOTENV_A=from-file\nBUGHUNT_DOTENV_B=from-file\n"), 0o600))
		t.Setenv("BUGHUNT_DOTENV_B", "from-env")
		t.Cleanup(func() { _ = os.Unsetenv("BUGHUNT_DOTENV_A") })

		require.NoError(t, LoadDotenv(path))
		assert.Equal(t, "from-file", os.Getenv("BUGHUNT_DOTENV_A"))
		assert.Equal(t, "from-env", os.Getenv("BUGHUNT_DOTENV_B"))
	})
}
