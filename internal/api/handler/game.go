package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/bughunt/internal/api/apierr"
	"github.com/mcoot/bughunt/internal/api/request"
	"github.com/mcoot/bughunt/internal/api/response"
	"github.com/mcoot/bughunt/internal/model"
	"github.com/mcoot/bughunt/internal/services/game"
	"github.com/mcoot/bughunt/internal/services/user"
)

// GameHandler handles game endpoints
type GameHandler struct {
	gameController *game.Controller
	userService    *user.Service
}

// NewGameHandler creates a new game handler
func NewGameHandler(gameController *game.Controller, userService *user.Service) *GameHandler {
	return &GameHandler{
		gameController: gameController,
		userService:    userService,
	}
}

// Create handles POST /api/games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateGameRequest
	if err := decodeBody(w, r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}

	g, err := h.gameController.Create(r.Context(), req.Mode, req.MaxPlayers)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.GameResponse{Game: response.GameFromModel(g)})
}

// Get handles GET /api/games/{id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.GameID(mux.Vars(r)["id"])

	g, err := h.gameController.GetByID(r.Context(), id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	names, err := h.userService.Usernames(r.Context(), g.Players)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameDetailResponse{Game: response.GameDetailFromModel(g, names)})
}
