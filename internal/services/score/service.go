package score

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/bughunt/internal/dependencies/clock"
	"github.com/mcoot/bughunt/internal/events"
	"github.com/mcoot/bughunt/internal/metrics"
	"github.com/mcoot/bughunt/internal/model"
	"github.com/mcoot/bughunt/internal/services/user"
	"github.com/mcoot/bughunt/internal/storage"
)

// Entry is a leaderboard row
type Entry struct {
	UserID   model.UserID
	Username string
	Points   int64
}

// Config holds configuration for the score service
type Config struct {
	// LeaderboardLimit caps TopN and Leaderboard sizes
	LeaderboardLimit int
}

// DefaultConfig returns default score configuration
func DefaultConfig() Config {
	return Config{
		LeaderboardLimit: model.DefaultLeaderboardLimit,
	}
}

// Service accumulates per-user points and ranks them
type Service struct {
	storage   storage.Storage
	users     *user.Service
	clock     clock.Clock
	publisher events.Publisher
	logger    *slog.Logger
	limit     int
}

// New creates a new score Service
func New(
	storage storage.Storage,
	users *user.Service,
	clock clock.Clock,
	publisher events.Publisher,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.LeaderboardLimit <= 0 {
		cfg.LeaderboardLimit = DefaultConfig().LeaderboardLimit
	}
	return &Service{
		storage:   storage,
		users:     users,
		clock:     clock,
		publisher: publisher,
		logger:    logger,
		limit:     cfg.LeaderboardLimit,
	}
}

// Ensure returns the user's score, creating a zero record if there is none
func (s *Service) Ensure(ctx context.Context, userID model.UserID) (*model.Score, error) {
	return s.storage.EnsureScore(ctx, userID, s.clock.Now())
}

// AddPoints atomically adds a delta in [0, model.MaxPoints] to the user's
// score, creating the record on first accrual. A total that would pass
// model.MaxPoints fails with model.ErrScoreOverflow and leaves the score as is.
func (s *Service) AddPoints(ctx context.Context, userID model.UserID, delta int64) (*model.Score, error) {
	if delta < 0 || delta > model.MaxPoints {
		return nil, model.ErrInvalidDelta
	}

	now := s.clock.Now()
	score, err := s.storage.IncrementScore(ctx, userID, delta, now)
	if err != nil {
		s.logger.Error("failed to add points",
			slog.String("user_id", string(userID)),
			slog.Int64("delta", delta),
			slog.String("error", err.Error()))
		return nil, err
	}

	metrics.ScoreAccrualsTotal.Inc()
	metrics.ScorePointsTotal.Add(float64(delta))

	events.Emit(ctx, s.publisher, s.logger, model.Event{
		Type:       model.EventScoreAccrued,
		UserID:     userID,
		Delta:      delta,
		Points:     score.Points,
		OccurredAt: now,
	})

	return score, nil
}

func (s *Service) GetByUserID(ctx context.Context, userID model.UserID) (*model.Score, error) {
	return s.storage.GetScore(ctx, userID)
}

// TopN returns up to n scores ordered by points descending, ties broken by
// insertion order. n is clamped to the configured limit.
func (s *Service) TopN(ctx context.Context, n int) ([]*model.Score, error) {
	return s.storage.TopScores(ctx, model.ClampLimit(n, s.limit))
}

// Leaderboard returns the top n scores joined with usernames. Scores whose
// user record cannot be found are left out.
func (s *Service) Leaderboard(ctx context.Context, n int) ([]Entry, error) {
	scores, err := s.TopN(ctx, n)
	if err != nil {
		return nil, err
	}

	ids := make([]model.UserID, len(scores))
	for i, sc := range scores {
		ids[i] = sc.UserID
	}
	names, err := s.users.Usernames(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(scores))
	for _, sc := range scores {
		name, ok := names[sc.UserID]
		if !ok {
			continue
		}
		entries = append(entries, Entry{UserID: sc.UserID, Username: name, Points: sc.Points})
	}
	return entries, nil
}

// SubmitByUsername adds points to a user identified by username
func (s *Service) SubmitByUsername(ctx context.Context, username string, delta int64) (*model.User, *model.Score, error) {
	if delta < 0 || delta > model.MaxPoints {
		return nil, nil, model.ErrInvalidDelta
	}
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	score, err := s.AddPoints(ctx, u.ID, delta)
	if err != nil {
		return nil, nil, err
	}
	return u, score, nil
}

// TotalByUsername returns the user and their points; a user who has never
// scored has a total of zero
func (s *Service) TotalByUsername(ctx context.Context, username string) (*model.User, int64, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, 0, err
	}
	score, err := s.storage.GetScore(ctx, u.ID)
	if err != nil {
		if errors.Is(err, model.ErrScoreNotFound) {
			return u, 0, nil
		}
		return nil, 0, err
	}
	return u, score.Points, nil
}
