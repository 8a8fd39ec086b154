package request

import "time"

// RegisterRequest is the request body for registering a user
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateGameRequest is the request body for creating a game.
// A zero MaxPlayers selects the default.
type CreateGameRequest struct {
	Mode       string `json:"mode"`
	MaxPlayers int    `json:"maxPlayers,omitempty"`
}

// LobbyMembershipRequest is the request body for joining or leaving a game
type LobbyMembershipRequest struct {
	GameID string `json:"gameId"`
	UserID string `json:"userId"`
}

// SubmitScoreRequest is the request body for recording a completed game.
// Score is a pointer so a missing value can be told apart from zero.
type SubmitScoreRequest struct {
	Username    string     `json:"username"`
	Score       *int64     `json:"score"`
	GameMode    string     `json:"gameMode,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
