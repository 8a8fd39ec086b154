package game

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mcoot/bughunt/internal/dependencies/clock"
	"github.com/mcoot/bughunt/internal/dependencies/ids"
	"github.com/mcoot/bughunt/internal/events"
	"github.com/mcoot/bughunt/internal/metrics"
	"github.com/mcoot/bughunt/internal/model"
	"github.com/mcoot/bughunt/internal/storage"
)

// Controller manages game rooms: creation, membership and the status lifecycle
type Controller struct {
	storage   storage.Storage
	clock     clock.Clock
	ids       ids.Generator
	publisher events.Publisher
	logger    *slog.Logger
}

// NewController creates a new game Controller
func NewController(
	storage storage.Storage,
	clock clock.Clock,
	ids ids.Generator,
	publisher events.Publisher,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage:   storage,
		clock:     clock,
		ids:       ids,
		publisher: publisher,
		logger:    logger,
	}
}

// Create opens a waiting room. A zero maxPlayers selects the default.
func (c *Controller) Create(ctx context.Context, mode string, maxPlayers int) (*model.Game, error) {
	mode = strings.TrimSpace(mode)
	if mode == "" {
		return nil, model.ErrModeRequired
	}
	if maxPlayers == 0 {
		maxPlayers = model.DefaultMaxPlayers
	}
	if maxPlayers < model.MinPlayers || maxPlayers > model.MaxPlayers {
		return nil, model.ErrInvalidMaxPlayers
	}

	now := c.clock.Now()
	game := &model.Game{
		ID:         model.GameID(c.ids.NewID()),
		Mode:       mode,
		MaxPlayers: maxPlayers,
		Status:     model.GameStatusWaiting,
		Players:    []model.UserID{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := c.storage.CreateGame(ctx, game); err != nil {
		c.logger.Error("failed to create game",
			slog.String("game_id", string(game.ID)),
			slog.String("error", err.Error()))
		return nil, err
	}

	metrics.GamesCreatedTotal.Inc()
	c.logger.Info("game created",
		slog.String("game_id", string(game.ID)),
		slog.String("mode", game.Mode),
		slog.Int("max_players", game.MaxPlayers))

	c.emit(ctx, model.EventGameCreated, game, "")
	return game, nil
}

func (c *Controller) GetByID(ctx context.Context, id model.GameID) (*model.Game, error) {
	return c.storage.GetGame(ctx, id)
}

// ListByStatus returns games in creation order; a nil status lists every game
func (c *Controller) ListByStatus(ctx context.Context, status *model.GameStatus) ([]*model.Game, error) {
	var filter model.GameStatus
	if status != nil {
		filter = *status
	}
	return c.storage.ListGames(ctx, filter)
}

// Join adds a user to a waiting room. Concurrent joins for the last seat
// resolve to exactly one success; the rest fail with model.ErrGameFull.
func (c *Controller) Join(ctx context.Context, id model.GameID, userID model.UserID) (*model.Game, error) {
	now := c.clock.Now()
	game, err := c.storage.UpdateGame(ctx, id, func(g *model.Game) error {
		if err := g.AddPlayer(userID); err != nil {
			return err
		}
		g.UpdatedAt = now
		return nil
	})

	metrics.RoomJoinsTotal.WithLabelValues(joinResult(err)).Inc()
	if err != nil {
		return nil, err
	}

	c.logger.Info("player joined game",
		slog.String("game_id", string(id)),
		slog.String("user_id", string(userID)),
		slog.Int("players", len(game.Players)))

	c.emit(ctx, model.EventPlayerJoined, game, userID)
	return game, nil
}

// Leave removes a user from a room. Leaving a room the user is not in succeeds
// without changing anything.
func (c *Controller) Leave(ctx context.Context, id model.GameID, userID model.UserID) (*model.Game, error) {
	now := c.clock.Now()
	removed := false
	game, err := c.storage.UpdateGame(ctx, id, func(g *model.Game) error {
		removed = g.RemovePlayer(userID)
		if removed {
			g.UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if removed {
		c.logger.Info("player left game",
			slog.String("game_id", string(id)),
			slog.String("user_id", string(userID)))
		c.emit(ctx, model.EventPlayerLeft, game, userID)
	}
	return game, nil
}

// Start moves a waiting game to active
func (c *Controller) Start(ctx context.Context, id model.GameID) (*model.Game, error) {
	return c.transition(ctx, id, model.GameStatusActive)
}

// Finish moves an active game to finished
func (c *Controller) Finish(ctx context.Context, id model.GameID) (*model.Game, error) {
	return c.transition(ctx, id, model.GameStatusFinished)
}

func (c *Controller) transition(ctx context.Context, id model.GameID, next model.GameStatus) (*model.Game, error) {
	now := c.clock.Now()
	var from model.GameStatus
	game, err := c.storage.UpdateGame(ctx, id, func(g *model.Game) error {
		from = g.Status
		if err := g.TransitionTo(next); err != nil {
			return err
		}
		g.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("game status changed",
		slog.String("game_id", string(id)),
		slog.String("from", string(from)),
		slog.String("to", string(next)))

	c.emit(ctx, model.EventStatusChanged, game, "")
	return game, nil
}

func (c *Controller) emit(ctx context.Context, eventType model.EventType, game *model.Game, userID model.UserID) {
	events.Emit(ctx, c.publisher, c.logger, model.Event{
		Type:       eventType,
		GameID:     game.ID,
		UserID:     userID,
		Players:    game.Players,
		Status:     game.Status,
		OccurredAt: game.UpdatedAt,
	})
}

func joinResult(err error) string {
	switch {
	case err == nil:
		return metrics.JoinResultJoined
	case errors.Is(err, model.ErrGameFull):
		return metrics.JoinResultFull
	case errors.Is(err, model.ErrAlreadyJoined):
		return metrics.JoinResultAlreadyJoined
	case errors.Is(err, model.ErrGameNotJoinable):
		return metrics.JoinResultNotJoinable
	case errors.Is(err, model.ErrGameNotFound):
		return metrics.JoinResultNotFound
	default:
		return metrics.JoinResultError
	}
}
