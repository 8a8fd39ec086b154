package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mcoot/bughunt/internal/config"
	"github.com/mcoot/bughunt/internal/dependencies/clock"
	"github.com/mcoot/bughunt/internal/dependencies/ids"
	"github.com/mcoot/bughunt/internal/events"
	kafkaevents "github.com/mcoot/bughunt/internal/events/kafka"
	"github.com/mcoot/bughunt/internal/metrics"
	"github.com/mcoot/bughunt/internal/services/auth"
	"github.com/mcoot/bughunt/internal/services/game"
	"github.com/mcoot/bughunt/internal/services/score"
	"github.com/mcoot/bughunt/internal/services/user"
	"github.com/mcoot/bughunt/internal/sse"
	"github.com/mcoot/bughunt/internal/storage"
	"github.com/mcoot/bughunt/internal/storage/memory"
	mongostorage "github.com/mcoot/bughunt/internal/storage/mongo"
	pgstorage "github.com/mcoot/bughunt/internal/storage/postgres"
	redisstorage "github.com/mcoot/bughunt/internal/storage/redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage
	// Backend names the storage actually in use
	Backend string
	// Volatile is true when data lives only in process memory
	Volatile bool

	// External dependencies
	Clock clock.Clock
	IDs   ids.Generator

	// Services
	UserService    *user.Service
	ScoreService   *score.Service
	AuthService    *auth.Service
	GameController *game.Controller

	// Realtime
	Publisher  events.Publisher
	HubManager *sse.HubManager

	closers []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger

	// StorageType selects the storage backend (memory, redis, postgres or mongo)
	// If empty, defaults to memory
	StorageType    string
	RedisConfig    *redisstorage.Config
	PostgresConfig *pgstorage.Config
	MongoConfig    *mongostorage.Config

	// ConnectRetries bounds retries of the initial storage connection
	ConnectRetries int
	// RetryInterval is the first backoff interval between connection attempts
	// If zero, defaults to 500ms
	RetryInterval time.Duration
	// Fallback switches to the memory backend when the durable one cannot be reached
	Fallback bool

	// KafkaConfig enables the Kafka event publisher when set
	KafkaConfig *kafkaevents.Config

	BcryptCost       int
	LeaderboardLimit int
}

// ConfigFromEnv maps server configuration onto factory configuration
func ConfigFromEnv(cfg *config.Config, logger *slog.Logger) Config {
	fc := Config{
		Logger:           logger,
		StorageType:      cfg.Storage.Type,
		ConnectRetries:   cfg.Storage.ConnectRetries,
		Fallback:         cfg.Storage.Fallback,
		BcryptCost:       cfg.BcryptCost,
		LeaderboardLimit: cfg.LeaderboardLimit,
	}

	switch cfg.Storage.Type {
	case config.StorageRedis:
		rc := redisstorage.DefaultConfig()
		rc.URL = cfg.Storage.RedisURL
		fc.RedisConfig = &rc
	case config.StoragePostgres:
		pc := pgstorage.DefaultConfig()
		pc.DSN = cfg.Storage.DatabaseURL
		fc.PostgresConfig = &pc
	case config.StorageMongo:
		mc := mongostorage.DefaultConfig()
		mc.URI = cfg.Storage.MongoURI
		mc.Database = cfg.Storage.MongoDatabase
		fc.MongoConfig = &mc
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kc := kafkaevents.DefaultConfig()
		kc.Brokers = cfg.Kafka.Brokers
		kc.Topic = cfg.Kafka.Topic
		fc.KafkaConfig = &kc
	}

	return fc
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	dial, err := dialer(cfg)
	if err != nil {
		return nil, err
	}

	backend := cfg.StorageType
	if backend == "" {
		backend = config.StorageMemory
	}

	store, backend, err := openStorage(ctx, backend, dial, cfg, logger)
	if err != nil {
		return nil, err
	}

	hubManager := sse.NewHubManager(logger)
	publishers := []events.Publisher{sse.NewPublisher(hubManager, logger)}

	var closers []io.Closer
	if cfg.KafkaConfig != nil {
		kp := kafkaevents.New(*cfg.KafkaConfig, logger)
		publishers = append(publishers, kp)
		closers = append(closers, kp)
		logger.Info("publishing events to kafka",
			slog.Any("brokers", cfg.KafkaConfig.Brokers),
			slog.String("topic", cfg.KafkaConfig.Topic))
	}

	app := newWithDependencies(
		store,
		clock.New(),
		ids.New(),
		events.Combine(publishers...),
		auth.NewBcryptHasher(cfg.BcryptCost),
		logger,
		score.Config{LeaderboardLimit: cfg.LeaderboardLimit},
	)
	app.Backend = backend
	app.Volatile = backend == config.StorageMemory
	app.HubManager = hubManager
	app.closers = append(closers, store)

	if app.Volatile {
		metrics.StorageVolatile.Set(1)
	} else {
		metrics.StorageVolatile.Set(0)
	}

	return app, nil
}

// storageDialer opens a durable storage backend
type storageDialer func(ctx context.Context) (storage.Storage, error)

func dialer(cfg Config) (storageDialer, error) {
	switch cfg.StorageType {
	case "", config.StorageMemory:
		return nil, nil
	case config.StorageRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return func(ctx context.Context) (storage.Storage, error) {
			return redisstorage.New(ctx, *cfg.RedisConfig)
		}, nil
	case config.StoragePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		return func(ctx context.Context) (storage.Storage, error) {
			return pgstorage.New(ctx, *cfg.PostgresConfig)
		}, nil
	case config.StorageMongo:
		if cfg.MongoConfig == nil {
			return nil, errors.New("MongoConfig required when StorageType is mongo")
		}
		return func(ctx context.Context) (storage.Storage, error) {
			return mongostorage.New(ctx, *cfg.MongoConfig)
		}, nil
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be memory, redis, postgres or mongo", cfg.StorageType)
	}
}

// openStorage connects to the durable backend with exponential backoff. When
// every attempt fails and fallback is enabled the memory backend is returned
// instead.
func openStorage(ctx context.Context, backend string, dial storageDialer, cfg Config, logger *slog.Logger) (storage.Storage, string, error) {
	logger = logger.With(slog.String("component", "storage"))

	if dial == nil {
		logger.Warn("using in-memory storage; data will be lost on restart")
		return memory.New(), config.StorageMemory, nil
	}

	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	retries := cfg.ConnectRetries
	if retries < 0 {
		retries = 0
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = interval
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx)

	store, err := backoff.RetryNotifyWithData(func() (storage.Storage, error) {
		return dial(ctx)
	}, b, func(err error, next time.Duration) {
		logger.Warn("storage connection failed, retrying",
			slog.String("backend", backend),
			slog.String("error", err.Error()),
			slog.Duration("retry_in", next))
	})
	if err == nil {
		logger.Info("connected to storage", slog.String("backend", backend))
		return store, backend, nil
	}

	if !cfg.Fallback {
		return nil, "", fmt.Errorf("failed to connect to %s storage: %w", backend, err)
	}

	logger.Warn("falling back to in-memory storage; data will be lost on restart",
		slog.String("backend", backend),
		slog.String("error", err.Error()))
	return memory.New(), config.StorageMemory, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	idGen ids.Generator,
	publisher events.Publisher,
	hasher auth.Hasher,
	logger *slog.Logger,
	scoreCfg score.Config,
) *App {
	userService := user.New(store, clk, idGen, logger)
	scoreService := score.New(store, userService, clk, publisher, logger, scoreCfg)
	authService := auth.New(userService, scoreService, hasher, logger)
	gameController := game.NewController(store, clk, idGen, publisher, logger)

	return &App{
		Storage:        store,
		Backend:        config.StorageMemory,
		Volatile:       true,
		Clock:          clk,
		IDs:            idGen,
		UserService:    userService,
		ScoreService:   scoreService,
		AuthService:    authService,
		GameController: gameController,
		Publisher:      publisher,
	}
}

// Close releases storage connections and flushes event publishers
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.HubManager != nil {
		a.HubManager.Close()
	}
	return errors.Join(errs...)
}
