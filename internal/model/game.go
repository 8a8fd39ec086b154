package model

import (
	"slices"
	"time"
)

// GameID uniquely identifies a game room
type GameID string

// GameStatus is the lifecycle phase of a game room
type GameStatus string

const (
	GameStatusWaiting  GameStatus = "waiting"  // Accepting players
	GameStatusActive   GameStatus = "active"   // In play
	GameStatusFinished GameStatus = "finished" // Terminal
)

const (
	MinPlayers        = 2
	MaxPlayers        = 10
	DefaultMaxPlayers = 2
)

// ParseGameStatus validates a status string
func ParseGameStatus(s string) (GameStatus, error) {
	status := GameStatus(s)
	switch status {
	case GameStatusWaiting, GameStatusActive, GameStatusFinished:
		return status, nil
	default:
		return "", ErrInvalidStatus
	}
}

// CanTransitionTo reports whether next directly follows s in the lifecycle
func (s GameStatus) CanTransitionTo(next GameStatus) bool {
	switch s {
	case GameStatusWaiting:
		return next == GameStatusActive
	case GameStatusActive:
		return next == GameStatusFinished
	default:
		return false
	}
}

// Game is a room with bounded, ordered membership
type Game struct {
	ID         GameID
	Mode       string
	MaxPlayers int
	Status     GameStatus

	// Players in join order; each user appears at most once
	Players []UserID

	// Seq records creation order for stable listings
	Seq int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of the game
func (g *Game) Clone() *Game {
	c := *g
	c.Players = slices.Clone(g.Players)
	if c.Players == nil {
		c.Players = []UserID{}
	}
	return &c
}

// HasPlayer returns true if the user is a member of the game
func (g *Game) HasPlayer(userID UserID) bool {
	return slices.Contains(g.Players, userID)
}

// IsFull returns true if no seats remain
func (g *Game) IsFull() bool {
	return len(g.Players) >= g.MaxPlayers
}

// AddPlayer appends a user, enforcing status, capacity and uniqueness
func (g *Game) AddPlayer(userID UserID) error {
	if g.Status != GameStatusWaiting {
		return ErrGameNotJoinable
	}
	if g.IsFull() {
		return ErrGameFull
	}
	if g.HasPlayer(userID) {
		return ErrAlreadyJoined
	}
	g.Players = append(g.Players, userID)
	return nil
}

// RemovePlayer removes a user and reports whether it was present
func (g *Game) RemovePlayer(userID UserID) bool {
	idx := slices.Index(g.Players, userID)
	if idx < 0 {
		return false
	}
	g.Players = slices.Delete(g.Players, idx, idx+1)
	return true
}

// TransitionTo moves the game to the next lifecycle status
func (g *Game) TransitionTo(next GameStatus) error {
	if !g.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	g.Status = next
	return nil
}
