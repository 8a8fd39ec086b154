package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/bughunt/internal/model"
	"github.com/mcoot/bughunt/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Data lives only as long as the process. Records are copied on the way in
// and out so callers never share state with the store.
type Storage struct {
	mu sync.RWMutex

	users         map[model.UserID]*model.User
	usernameIndex map[string]model.UserID
	emailIndex    map[string]model.UserID
	scores        map[model.UserID]*model.Score
	games         map[model.GameID]*model.Game
	gameOrder     []model.GameID

	scoreSeq int64
	gameSeq  int64
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:         make(map[model.UserID]*model.User),
		usernameIndex: make(map[string]model.UserID),
		emailIndex:    make(map[string]model.UserID),
		scores:        make(map[model.UserID]*model.Score),
		games:         make(map[model.GameID]*model.Game),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usernameIndex[user.Username]; ok {
		return model.ErrUserExists
	}
	if user.Email != "" {
		if _, ok := s.emailIndex[user.Email]; ok {
			return model.ErrUserExists
		}
	}

	u := *user
	s.users[u.ID] = &u
	s.usernameIndex[u.Username] = u.ID
	if u.Email != "" {
		s.emailIndex[u.Email] = u.ID
	}
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userLocked(id)
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return s.userLocked(id)
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emailIndex[email]
	if !ok || email == "" {
		return nil, model.ErrUserNotFound
	}
	return s.userLocked(id)
}

func (s *Storage) GetUsers(ctx context.Context, ids []model.UserID) (map[model.UserID]*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[model.UserID]*model.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			c := *u
			result[id] = &c
		}
	}
	return result, nil
}

func (s *Storage) userLocked(id model.UserID) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

// Score operations

func (s *Storage) EnsureScore(ctx context.Context, userID model.UserID, now time.Time) (*model.Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scoreLocked(userID, now).Clone(), nil
}

func (s *Storage) IncrementScore(ctx context.Context, userID model.UserID, delta int64, now time.Time) (*model.Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var current int64
	if existing, ok := s.scores[userID]; ok {
		current = existing.Points
	}
	if !model.CanAccrue(current, delta) {
		return nil, model.ErrScoreOverflow
	}
	score := s.scoreLocked(userID, now)
	score.Points += delta
	score.UpdatedAt = now
	return score.Clone(), nil
}

func (s *Storage) GetScore(ctx context.Context, userID model.UserID) (*model.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.scores[userID]
	if !ok {
		return nil, model.ErrScoreNotFound
	}
	return score.Clone(), nil
}

func (s *Storage) TopScores(ctx context.Context, n int) ([]*model.Score, error) {
	s.mu.RLock()
	scores := make([]*model.Score, 0, len(s.scores))
	for _, score := range s.scores {
		scores = append(scores, score.Clone())
	}
	s.mu.RUnlock()

	model.SortScores(scores)
	if n >= 0 && len(scores) > n {
		scores = scores[:n]
	}
	return scores, nil
}

// scoreLocked returns the live score for a user, creating it if needed.
// Caller must hold the write lock.
func (s *Storage) scoreLocked(userID model.UserID, now time.Time) *model.Score {
	score, ok := s.scores[userID]
	if !ok {
		s.scoreSeq++
		score = &model.Score{
			UserID:    userID,
			Seq:       s.scoreSeq,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.scores[userID] = score
	}
	return score
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gameSeq++
	game.Seq = s.gameSeq
	s.games[game.ID] = game.Clone()
	s.gameOrder = append(s.gameOrder, game.ID)
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return game.Clone(), nil
}

func (s *Storage) ListGames(ctx context.Context, status model.GameStatus) ([]*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	games := make([]*model.Game, 0, len(s.gameOrder))
	for _, id := range s.gameOrder {
		game := s.games[id]
		if status == "" || game.Status == status {
			games = append(games, game.Clone())
		}
	}
	return games, nil
}

func (s *Storage) UpdateGame(ctx context.Context, id model.GameID, fn storage.UpdateGameFunc) (*model.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}

	// Mutate a copy so a failed update leaves the stored game untouched
	updated := current.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	s.games[id] = updated
	return updated.Clone(), nil
}

// Ping always succeeds for the in-memory store
func (s *Storage) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store
func (s *Storage) Close() error {
	return nil
}
