package mongo

import (
	"time"

	"github.com/mcoot/bughunt/internal/model"
)

const (
	usersCollection    = "users"
	scoresCollection   = "scores"
	gamesCollection    = "games"
	countersCollection = "counters"

	scoreCounter = "scores"
	gameCounter  = "games"
)

type userDoc struct {
	ID             string    `bson:"_id"`
	Username       string    `bson:"username"`
	Email          string    `bson:"email,omitempty"`
	CredentialHash string    `bson:"credential_hash"`
	CreatedAt      time.Time `bson:"created_at"`
}

func toUserDoc(u *model.User) userDoc {
	return userDoc{
		ID:             string(u.ID),
		Username:       u.Username,
		Email:          u.Email,
		CredentialHash: u.CredentialHash,
		CreatedAt:      u.CreatedAt,
	}
}

func (d userDoc) toModel() *model.User {
	return &model.User{
		ID:             model.UserID(d.ID),
		Username:       d.Username,
		Email:          d.Email,
		CredentialHash: d.CredentialHash,
		CreatedAt:      d.CreatedAt.UTC(),
	}
}

// scoreDoc is keyed by user id so the one-record-per-user rule is the primary key
type scoreDoc struct {
	UserID    string    `bson:"_id"`
	Points    int64     `bson:"points"`
	Seq       int64     `bson:"seq"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d scoreDoc) toModel() *model.Score {
	return &model.Score{
		UserID:    model.UserID(d.UserID),
		Points:    d.Points,
		Seq:       d.Seq,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// gameDoc carries a version used for compare-and-swap replacement
type gameDoc struct {
	ID         string    `bson:"_id"`
	Seq        int64     `bson:"seq"`
	Mode       string    `bson:"mode"`
	MaxPlayers int       `bson:"max_players"`
	Status     string    `bson:"status"`
	Players    []string  `bson:"players"`
	Version    int64     `bson:"version"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func toGameDoc(g *model.Game, version int64) gameDoc {
	players := make([]string, len(g.Players))
	for i, p := range g.Players {
		players[i] = string(p)
	}
	return gameDoc{
		ID:         string(g.ID),
		Seq:        g.Seq,
		Mode:       g.Mode,
		MaxPlayers: g.MaxPlayers,
		Status:     string(g.Status),
		Players:    players,
		Version:    version,
		CreatedAt:  g.CreatedAt,
		UpdatedAt:  g.UpdatedAt,
	}
}

func (d gameDoc) toModel() *model.Game {
	players := make([]model.UserID, len(d.Players))
	for i, p := range d.Players {
		players[i] = model.UserID(p)
	}
	return &model.Game{
		ID:         model.GameID(d.ID),
		Seq:        d.Seq,
		Mode:       d.Mode,
		MaxPlayers: d.MaxPlayers,
		Status:     model.GameStatus(d.Status),
		Players:    players,
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}
}

type counterDoc struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}
