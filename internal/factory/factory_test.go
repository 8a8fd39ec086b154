package factory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/bughunt/internal/config"
	"github.com/mcoot/bughunt/internal/storage"
	"github.com/mcoot/bughunt/internal/storage/memory"
	redisstorage "github.com/mcoot/bughunt/internal/storage/redis"
	"github.com/mcoot/bughunt/internal/testutil"
)

func TestNew_DefaultsToMemory(t *testing.T) {
	app, err := New(context.Background(), Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	assert.Equal(t, config.StorageMemory, app.Backend)
	assert.True(t, app.Volatile)
	assert.IsType(t, &memory.Storage{}, app.Storage)
	assert.NotNil(t, app.HubManager)
}

func TestNew_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = "redis://" + mr.Addr()

	app, err := New(context.Background(), Config{
		StorageType: config.StorageRedis,
		RedisConfig: &redisCfg,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	assert.Equal(t, config.StorageRedis, app.Backend)
	assert.False(t, app.Volatile)

	_, err = app.AuthService.Register(context.Background(), "alice", "", "secret123")
	require.NoError(t, err)
	assert.True(t, mr.Exists("bughunt:idx:username:alice"))
}

func TestNew_InvalidStorageType(t *testing.T) {
	_, err := New(context.Background(), Config{StorageType: "cassandra"})
	assert.Error(t, err)
}

func TestNew_MissingBackendConfig(t *testing.T) {
	for _, storageType := range []string{config.StorageRedis, config.StoragePostgres, config.StorageMongo} {
		t.Run(storageType, func(t *testing.T) {
			_, err := New(context.Background(), Config{StorageType: storageType})
			assert.Error(t, err)
		})
	}
}

func TestOpenStorage_RetriesThenConnects(t *testing.T) {
	attempts := 0
	want := memory.New()
	dial := func(ctx context.Context) (storage.Storage, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("connection refused")
		}
		return want, nil
	}

	cfg := Config{ConnectRetries: 5, RetryInterval: time.Millisecond}
	got, backend, err := openStorage(context.Background(), config.StoragePostgres, dial, cfg, testutil.NopLogger())
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, config.StoragePostgres, backend)
	assert.Equal(t, 3, attempts)
}

func TestOpenStorage_FallsBackToMemory(t *testing.T) {
	attempts := 0
	dial := func(ctx context.Context) (storage.Storage, error) {
		attempts++
		return nil, errors.New("connection refused")
	}

	cfg := Config{ConnectRetries: 2, RetryInterval: time.Millisecond, Fallback: true}
	logger, logs := testutil.CaptureLogger()
	got, backend, err := openStorage(context.Background(), config.StorageMongo, dial, cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &memory.Storage{}, got)
	assert.Equal(t, config.StorageMemory, backend)
	assert.Equal(t, 3, attempts)
	assert.True(t, logs.Contains("falling back to in-memory storage"))
	assert.True(t, logs.Contains(`"backend":"mongo"`))
}

func TestOpenStorage_NoFallbackFails(t *testing.T) {
	dial := func(ctx context.Context) (storage.Storage, error) {
		return nil, errors.New("connection refused")
	}

	cfg := Config{ConnectRetries: 1, RetryInterval: time.Millisecond}
	_, _, err := openStorage(context.Background(), config.StorageRedis, dial, cfg, testutil.NopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestConfigFromEnv(t *testing.T) {
	cfg := &config.Config{
		Storage: config.Storage{
			Type:           config.StorageMongo,
			MongoURI:       "mongodb://db:27017",
			MongoDatabase:  "games",
			ConnectRetries: 3,
			Fallback:       true,
		},
		Kafka:            config.Kafka{Brokers: []string{"k1:9092"}, Topic: "events"},
		BcryptCost:       12,
		LeaderboardLimit: 20,
	}

	fc := ConfigFromEnv(cfg, testutil.NopLogger())

	assert.Equal(t, config.StorageMongo, fc.StorageType)
	require.NotNil(t, fc.MongoConfig)
	assert.Equal(t, "mongodb://db:27017", fc.MongoConfig.URI)
	assert.Equal(t, "games", fc.MongoConfig.Database)
	assert.Nil(t, fc.RedisConfig)
	assert.Nil(t, fc.PostgresConfig)
	require.NotNil(t, fc.KafkaConfig)
	assert.Equal(t, []string{"k1:9092"}, fc.KafkaConfig.Brokers)
	assert.Equal(t, "events", fc.KafkaConfig.Topic)
	assert.Equal(t, 3, fc.ConnectRetries)
	assert.True(t, fc.Fallback)
	assert.Equal(t, 12, fc.BcryptCost)
	assert.Equal(t, 20, fc.LeaderboardLimit)
}
