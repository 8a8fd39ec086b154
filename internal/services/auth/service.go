package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/bughunt/internal/model"
	"github.com/mcoot/bughunt/internal/services/score"
	"github.com/mcoot/bughunt/internal/services/user"
)

// maxPasswordBytes is the longest input bcrypt accepts
const maxPasswordBytes = 72

// Service handles registration and credential checks. It issues no sessions:
// a successful login just returns the user.
type Service struct {
	users  *user.Service
	scores *score.Service
	hasher Hasher
	logger *slog.Logger
}

// New creates a new auth Service
func New(users *user.Service, scores *score.Service, hasher Hasher, logger *slog.Logger) *Service {
	return &Service{
		users:  users,
		scores: scores,
		hasher: hasher,
		logger: logger,
	}
}

// Register hashes the password, creates the user and gives them a zero score
func (s *Service) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	if len(password) == 0 || len(password) > maxPasswordBytes {
		return nil, model.ErrInvalidPassword
	}
	if err := model.ValidateUsername(model.NormalizeUsername(username)); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	u, err := s.users.Register(ctx, username, email, hash)
	if err != nil {
		return nil, err
	}

	if _, err := s.scores.Ensure(ctx, u.ID); err != nil {
		// The account exists; the score record is created lazily on first accrual anyway
		s.logger.Warn("failed to create initial score",
			slog.String("user_id", string(u.ID)),
			slog.String("error", err.Error()))
	}

	return u, nil
}

// Login checks a username and password. Unknown users and wrong passwords
// both fail with model.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(u.CredentialHash, password) {
		s.logger.Info("login rejected", slog.String("user_id", string(u.ID)))
		return nil, model.ErrInvalidCredentials
	}

	return u, nil
}
