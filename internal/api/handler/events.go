package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/bughunt/internal/api/apierr"
	"github.com/mcoot/bughunt/internal/model"
	"github.com/mcoot/bughunt/internal/services/game"
	"github.com/mcoot/bughunt/internal/sse"
)

// EventsHandler streams room and leaderboard events over SSE
type EventsHandler struct {
	gameController *game.Controller
	hubManager     *sse.HubManager
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(gameController *game.Controller, hubManager *sse.HubManager) *EventsHandler {
	return &EventsHandler{
		gameController: gameController,
		hubManager:     hubManager,
	}
}

// Lobby handles GET /api/lobby/events
func (h *EventsHandler) Lobby(w http.ResponseWriter, r *http.Request) {
	sse.ServeSSE(w, r, h.hubManager, sse.LobbyTopic, subscriber(r))
}

// Leaderboard handles GET /api/leaderboard/events
func (h *EventsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	sse.ServeSSE(w, r, h.hubManager, sse.LeaderboardTopic, subscriber(r))
}

// Game handles GET /api/games/{id}/events
func (h *EventsHandler) Game(w http.ResponseWriter, r *http.Request) {
	id := model.GameID(mux.Vars(r)["id"])
	if _, err := h.gameController.GetByID(r.Context(), id); err != nil {
		apierr.WriteError(w, err)
		return
	}
	sse.ServeSSE(w, r, h.hubManager, sse.GameTopic(id), subscriber(r))
}

// subscriber names the connection in logs; the userId query parameter is
// informational only
func subscriber(r *http.Request) string {
	if id := r.URL.Query().Get("userId"); id != "" {
		return id
	}
	return r.RemoteAddr
}
