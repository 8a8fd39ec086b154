package response

import (
	"time"

	"github.com/mcoot/bughunt/internal/model"
	"github.com/mcoot/bughunt/internal/services/score"
)

// User represents a user in API responses
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	return User{
		ID:       string(u.ID),
		Username: u.Username,
		Email:    u.Email,
	}
}

// AuthResponse is the response for register and login
type AuthResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

// Game represents a freshly created game, players as ids
type Game struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	MaxPlayers int       `json:"maxPlayers"`
	Status     string    `json:"status"`
	Players    []string  `json:"players"`
	CreatedAt  time.Time `json:"createdAt"`
}

// GameFromModel converts a model.Game to a response Game
func GameFromModel(g *model.Game) Game {
	players := make([]string, len(g.Players))
	for i, p := range g.Players {
		players[i] = string(p)
	}
	return Game{
		ID:         string(g.ID),
		Mode:       g.Mode,
		MaxPlayers: g.MaxPlayers,
		Status:     string(g.Status),
		Players:    players,
		CreatedAt:  g.CreatedAt,
	}
}

// GameResponse wraps a created game
type GameResponse struct {
	Game Game `json:"game"`
}

// GamePlayer is a player resolved to their username
type GamePlayer struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// GameDetail represents a game with its players resolved
type GameDetail struct {
	ID         string       `json:"id"`
	Mode       string       `json:"mode"`
	MaxPlayers int          `json:"maxPlayers"`
	Status     string       `json:"status"`
	Players    []GamePlayer `json:"players"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// GameDetailFromModel converts a model.Game, resolving player names.
// Players whose user record is gone are left out.
func GameDetailFromModel(g *model.Game, names map[model.UserID]string) GameDetail {
	players := make([]GamePlayer, 0, len(g.Players))
	for _, p := range g.Players {
		name, ok := names[p]
		if !ok {
			continue
		}
		players = append(players, GamePlayer{ID: string(p), Username: name})
	}
	return GameDetail{
		ID:         string(g.ID),
		Mode:       g.Mode,
		MaxPlayers: g.MaxPlayers,
		Status:     string(g.Status),
		Players:    players,
		CreatedAt:  g.CreatedAt,
	}
}

// GameDetailResponse wraps a game detail
type GameDetailResponse struct {
	Game GameDetail `json:"game"`
}

// Lobby is a waiting game summarised for the lobby list
type Lobby struct {
	ID          string   `json:"id"`
	Mode        string   `json:"mode"`
	Players     int      `json:"players"`
	MaxPlayers  int      `json:"maxPlayers"`
	PlayerNames []string `json:"playerNames"`
}

// LobbyFromModel converts a model.Game to a Lobby
func LobbyFromModel(g *model.Game, names map[model.UserID]string) Lobby {
	playerNames := make([]string, 0, len(g.Players))
	for _, p := range g.Players {
		if name, ok := names[p]; ok {
			playerNames = append(playerNames, name)
		}
	}
	return Lobby{
		ID:          string(g.ID),
		Mode:        g.Mode,
		Players:     len(g.Players),
		MaxPlayers:  g.MaxPlayers,
		PlayerNames: playerNames,
	}
}

// LobbiesResponse is the response for listing lobbies
type LobbiesResponse struct {
	Lobbies []Lobby `json:"lobbies"`
}

// OKResponse acknowledges a lobby membership change
type OKResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// SubmitScoreResponse is the response for recording a score
type SubmitScoreResponse struct {
	Message     string    `json:"message"`
	TotalScore  int64     `json:"totalScore"`
	GameMode    string    `json:"gameMode,omitempty"`
	CompletedAt time.Time `json:"completedAt"`
}

// ScoreResponse is a user's running total
type ScoreResponse struct {
	Username   string `json:"username"`
	TotalScore int64  `json:"totalScore"`
}

// LeaderboardItem is a ranked row
type LeaderboardItem struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Points   int64  `json:"points"`
}

// LeaderboardFromEntries converts score entries to response items
func LeaderboardFromEntries(entries []score.Entry) LeaderboardResponse {
	items := make([]LeaderboardItem, len(entries))
	for i, e := range entries {
		items[i] = LeaderboardItem{ID: string(e.UserID), Username: e.Username, Points: e.Points}
	}
	return LeaderboardResponse{Items: items}
}

// LeaderboardResponse is the response for the leaderboard
type LeaderboardResponse struct {
	Items []LeaderboardItem `json:"items"`
}

// DBStatus describes the active storage backend
type DBStatus struct {
	Backend  string `json:"backend"`
	Volatile bool   `json:"volatile"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// HealthResponse is the response for the health check
type HealthResponse struct {
	OK     bool     `json:"ok"`
	Uptime float64  `json:"uptime"`
	DB     DBStatus `json:"db"`
}
