package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcoot/bughunt/internal/api"
	"github.com/mcoot/bughunt/internal/api/handler"
	"github.com/mcoot/bughunt/internal/config"
	"github.com/mcoot/bughunt/internal/factory"
)

const hubCleanupInterval = time.Minute

func main() {
	if err := config.LoadDotenv(".env"); err != nil {
		slog.Error("failed to load .env", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create application factory
	app, err := factory.New(ctx, factory.ConfigFromEnv(cfg, logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close application", slog.String("error", err.Error()))
		}
	}()

	go app.HubManager.RunCleanup(ctx, hubCleanupInterval)

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		Clock:          app.Clock,
		Storage:        app.Storage,
		StorageInfo:    handler.StorageInfo{Backend: app.Backend, Volatile: app.Volatile},
		AuthService:    app.AuthService,
		UserService:    app.UserService,
		ScoreService:   app.ScoreService,
		GameController: app.GameController,
		HubManager:     app.HubManager,
		CORSOrigins:    cfg.CORSOrigins,
	})

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.HTTP.Host
	serverConfig.Port = cfg.Port
	serverConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	serverConfig.ShutdownTimeout = cfg.HTTP.ShutdownTimeout
	server := api.NewServer(router, serverConfig, logger)

	// Event streams never end on their own
	server.OnShutdown(app.HubManager.Close)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", app.Backend),
		slog.Bool("volatile", app.Volatile))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
