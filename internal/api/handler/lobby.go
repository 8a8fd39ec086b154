package handler

import (
	"context"
	"net/http"

	"github.com/mcoot/bughunt/internal/api/apierr"
	"github.com/mcoot/bughunt/internal/api/request"
	"github.com/mcoot/bughunt/internal/api/response"
	"github.com/mcoot/bughunt/internal/model"
	"github.com/mcoot/bughunt/internal/services/game"
	"github.com/mcoot/bughunt/internal/services/user"
)

// LobbyHandler handles the lobby of waiting games
type LobbyHandler struct {
	gameController *game.Controller
	userService    *user.Service
}

// NewLobbyHandler creates a new lobby handler
func NewLobbyHandler(gameController *game.Controller, userService *user.Service) *LobbyHandler {
	return &LobbyHandler{
		gameController: gameController,
		userService:    userService,
	}
}

// List handles GET /api/lobby
func (h *LobbyHandler) List(w http.ResponseWriter, r *http.Request) {
	waiting := model.GameStatusWaiting
	games, err := h.gameController.ListByStatus(r.Context(), &waiting)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	var ids []model.UserID
	for _, g := range games {
		ids = append(ids, g.Players...)
	}
	names, err := h.userService.Usernames(r.Context(), ids)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	lobbies := make([]response.Lobby, len(games))
	for i, g := range games {
		lobbies[i] = response.LobbyFromModel(g, names)
	}

	response.JSON(w, http.StatusOK, response.LobbiesResponse{Lobbies: lobbies})
}

// Join handles POST /api/lobby/join
func (h *LobbyHandler) Join(w http.ResponseWriter, r *http.Request) {
	h.membership(w, r, h.gameController.Join, "Successfully joined game")
}

// Leave handles POST /api/lobby/leave
func (h *LobbyHandler) Leave(w http.ResponseWriter, r *http.Request) {
	h.membership(w, r, h.gameController.Leave, "Successfully left game")
}

type membershipFunc func(ctx context.Context, id model.GameID, userID model.UserID) (*model.Game, error)

func (h *LobbyHandler) membership(w http.ResponseWriter, r *http.Request, fn membershipFunc, message string) {
	var req request.LobbyMembershipRequest
	if err := decodeBody(w, r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}

	if req.GameID == "" || req.UserID == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("gameId and userId are required"))
		return
	}

	if _, err := fn(r.Context(), model.GameID(req.GameID), model.UserID(req.UserID)); err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.OKResponse{OK: true, Message: message})
}
