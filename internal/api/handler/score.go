package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/bughunt/internal/api/apierr"
	"github.com/mcoot/bughunt/internal/api/request"
	"github.com/mcoot/bughunt/internal/api/response"
	"github.com/mcoot/bughunt/internal/dependencies/clock"
	"github.com/mcoot/bughunt/internal/services/score"
)

// ScoreHandler handles score submission and lookup
type ScoreHandler struct {
	scoreService *score.Service
	clock        clock.Clock
}

// NewScoreHandler creates a new score handler
func NewScoreHandler(scoreService *score.Service, clock clock.Clock) *ScoreHandler {
	return &ScoreHandler{
		scoreService: scoreService,
		clock:        clock,
	}
}

// Submit handles POST /api/scores
func (h *ScoreHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitScoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}

	if req.Username == "" || req.Score == nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("Username and score are required"))
		return
	}

	_, sc, err := h.scoreService.SubmitByUsername(r.Context(), req.Username, *req.Score)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	completedAt := h.clock.Now()
	if req.CompletedAt != nil {
		completedAt = req.CompletedAt.UTC()
	}

	response.JSON(w, http.StatusOK, response.SubmitScoreResponse{
		Message:     "Score saved successfully",
		TotalScore:  sc.Points,
		GameMode:    req.GameMode,
		CompletedAt: completedAt,
	})
}

// Get handles GET /api/scores/{username}
func (h *ScoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, total, err := h.scoreService.TotalByUsername(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ScoreResponse{Username: u.Username, TotalScore: total})
}

// Leaderboard handles GET /api/leaderboard. A zero size selects the
// configured limit.
func (h *ScoreHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.scoreService.Leaderboard(r.Context(), 0)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LeaderboardFromEntries(entries))
}
