package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/mcoot/bughunt/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.User:
		o.printUser(v)
	case response.AuthResponse:
		fmt.Println(v.Message)
		o.printUser(v.User)
	case response.Game:
		o.printGame(v)
	case response.GameDetail:
		o.printGameDetail(v)
	case response.LobbiesResponse:
		o.printLobbies(v)
	case response.OKResponse:
		fmt.Println(v.Message)
	case response.SubmitScoreResponse:
		fmt.Println(v.Message)
		fmt.Printf("Total score: %d\n", v.TotalScore)
	case response.ScoreResponse:
		fmt.Printf("%s: %d points\n", v.Username, v.TotalScore)
	case response.LeaderboardResponse:
		o.printLeaderboard(v)
	case response.HealthResponse:
		o.printHealth(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printUser(u response.User) {
	fmt.Printf("User: %s (%s)\n", u.Username, u.ID)
	if u.Email != "" {
		fmt.Printf("Email: %s\n", u.Email)
	}
}

func (o *Output) printGame(g response.Game) {
	fmt.Printf("Game: %s\n", g.ID)
	fmt.Printf("Mode: %s\n", g.Mode)
	fmt.Printf("Status: %s\n", g.Status)
	fmt.Printf("Players: %d/%d\n", len(g.Players), g.MaxPlayers)
}

func (o *Output) printGameDetail(g response.GameDetail) {
	fmt.Printf("Game: %s\n", g.ID)
	fmt.Printf("Mode: %s\n", g.Mode)
	fmt.Printf("Status: %s\n", g.Status)
	fmt.Printf("Players (%d/%d):\n", len(g.Players), g.MaxPlayers)
	for _, p := range g.Players {
		fmt.Printf("  - %s (%s)\n", p.Username, p.ID)
	}
}

func (o *Output) printLobbies(l response.LobbiesResponse) {
	if len(l.Lobbies) == 0 {
		fmt.Println("No open games")
		return
	}
	for _, g := range l.Lobbies {
		fmt.Printf("%s  %-12s %d/%d  %s\n", g.ID, g.Mode, g.Players, g.MaxPlayers, strings.Join(g.PlayerNames, ", "))
	}
}

func (o *Output) printLeaderboard(l response.LeaderboardResponse) {
	if len(l.Items) == 0 {
		fmt.Println("No scores yet")
		return
	}
	for i, item := range l.Items {
		fmt.Printf("%3d. %-30s %d\n", i+1, item.Username, item.Points)
	}
}

func (o *Output) printHealth(h response.HealthResponse) {
	status := "ok"
	if !h.DB.OK {
		status = "degraded"
	}
	fmt.Printf("Status: %s\n", status)
	fmt.Printf("Uptime: %.0fs\n", h.Uptime)

	storage := h.DB.Backend
	if h.DB.Volatile {
		storage += " (volatile)"
	}
	fmt.Printf("Storage: %s\n", storage)
	if h.DB.Error != "" {
		fmt.Printf("Storage error: %s\n", h.DB.Error)
	}
}
