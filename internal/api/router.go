package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcoot/bughunt/internal/api/apierr"
	"github.com/mcoot/bughunt/internal/api/handler"
	apimiddleware "github.com/mcoot/bughunt/internal/api/middleware"
	"github.com/mcoot/bughunt/internal/dependencies/clock"
	"github.com/mcoot/bughunt/internal/middleware"
	"github.com/mcoot/bughunt/internal/services/auth"
	"github.com/mcoot/bughunt/internal/services/game"
	"github.com/mcoot/bughunt/internal/services/score"
	"github.com/mcoot/bughunt/internal/services/user"
	"github.com/mcoot/bughunt/internal/sse"
	"github.com/mcoot/bughunt/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	Clock          clock.Clock
	Storage        storage.Storage
	StorageInfo    handler.StorageInfo
	AuthService    *auth.Service
	UserService    *user.Service
	ScoreService   *score.Service
	GameController *game.Controller
	HubManager     *sse.HubManager
	// CORSOrigins lists allowed origins; empty allows any origin
	CORSOrigins []string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	gameHandler := handler.NewGameHandler(cfg.GameController, cfg.UserService)
	lobbyHandler := handler.NewLobbyHandler(cfg.GameController, cfg.UserService)
	scoreHandler := handler.NewScoreHandler(cfg.ScoreService, cfg.Clock)
	healthHandler := handler.NewHealthHandler(cfg.Storage, cfg.StorageInfo, cfg.Clock)

	r.Use(apimiddleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Metrics())

	api := r.PathPrefix("/api").Subrouter()

	// Auth routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)

	// Game routes
	api.HandleFunc("/games", gameHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/games/{id}", gameHandler.Get).Methods(http.MethodGet)

	// Lobby routes
	api.HandleFunc("/lobby", lobbyHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/lobby/join", lobbyHandler.Join).Methods(http.MethodPost)
	api.HandleFunc("/lobby/leave", lobbyHandler.Leave).Methods(http.MethodPost)

	// Score routes
	api.HandleFunc("/scores", scoreHandler.Submit).Methods(http.MethodPost)
	api.HandleFunc("/scores/{username}", scoreHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", scoreHandler.Leaderboard).Methods(http.MethodGet)

	// Event streams (only when realtime push is enabled)
	if cfg.HubManager != nil {
		eventsHandler := handler.NewEventsHandler(cfg.GameController, cfg.HubManager)
		api.HandleFunc("/lobby/events", eventsHandler.Lobby).Methods(http.MethodGet)
		api.HandleFunc("/games/{id}/events", eventsHandler.Game).Methods(http.MethodGet)
		api.HandleFunc("/leaderboard/events", eventsHandler.Leaderboard).Methods(http.MethodGet)
	}

	api.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierr.WriteError(w, apierr.NewNotFoundError())
	})

	return cors(cfg.CORSOrigins)(r)
}

func cors(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
}
