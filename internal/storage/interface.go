package storage

import (
	"context"
	"time"

	"github.com/mcoot/bughunt/internal/model"
)

// UpdateGameFunc mutates a game inside an atomic update. Returning an error
// aborts the update and nothing is persisted. Implementations using optimistic
// concurrency may invoke it more than once, each time with a fresh copy.
type UpdateGameFunc func(game *model.Game) error

// Storage defines the interface for data persistence.
// Every mutating operation is atomic with respect to the record it touches.
type Storage interface {
	// User operations
	// CreateUser fails with model.ErrUserExists if the username or the non-empty email is taken
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// GetUsers returns the users that exist among ids, keyed by ID
	GetUsers(ctx context.Context, ids []model.UserID) (map[model.UserID]*model.User, error)

	// Score operations
	EnsureScore(ctx context.Context, userID model.UserID, now time.Time) (*model.Score, error)
	IncrementScore(ctx context.Context, userID model.UserID, delta int64, now time.Time) (*model.Score, error)
	GetScore(ctx context.Context, userID model.UserID) (*model.Score, error)
	// TopScores returns up to n scores, points descending then insertion order
	TopScores(ctx context.Context, n int) ([]*model.Score, error)

	// Game operations
	// CreateGame persists a new game and assigns its Seq
	CreateGame(ctx context.Context, game *model.Game) error
	GetGame(ctx context.Context, id model.GameID) (*model.Game, error)
	// ListGames returns games in creation order; an empty status matches all
	ListGames(ctx context.Context, status model.GameStatus) ([]*model.Game, error)
	UpdateGame(ctx context.Context, id model.GameID, fn UpdateGameFunc) (*model.Game, error)

	// Ping checks backend connectivity
	Ping(ctx context.Context) error
	Close() error
}
