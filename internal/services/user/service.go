package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/bughunt/internal/dependencies/clock"
	"github.com/mcoot/bughunt/internal/dependencies/ids"
	"github.com/mcoot/bughunt/internal/model"
	"github.com/mcoot/bughunt/internal/storage"
)

// Service owns user identity records
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	ids     ids.Generator
	logger  *slog.Logger
}

// New creates a new user Service
func New(storage storage.Storage, clock clock.Clock, ids ids.Generator, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		ids:     ids,
		logger:  logger,
	}
}

// Register creates a user. It fails with model.ErrUserExists when either the
// username or a non-empty email is already taken.
func (s *Service) Register(ctx context.Context, username, email, credentialHash string) (*model.User, error) {
	username = model.NormalizeUsername(username)
	if err := model.ValidateUsername(username); err != nil {
		return nil, err
	}

	user := &model.User{
		ID:             model.UserID(s.ids.NewID()),
		Username:       username,
		Email:          model.NormalizeEmail(email),
		CredentialHash: credentialHash,
		CreatedAt:      s.clock.Now(),
	}

	if err := s.storage.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, model.ErrUserExists) {
			s.logger.Error("failed to create user",
				slog.String("username", username),
				slog.String("error", err.Error()))
		}
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("user_id", string(user.ID)),
		slog.String("username", user.Username))
	return user, nil
}

// FindByUsername looks a user up by (trimmed) username
func (s *Service) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.storage.GetUserByUsername(ctx, model.NormalizeUsername(username))
}

// FindByEmail looks a user up by normalised email
func (s *Service) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return nil, model.ErrUserNotFound
	}
	return s.storage.GetUserByEmail(ctx, email)
}

func (s *Service) GetByID(ctx context.Context, id model.UserID) (*model.User, error) {
	return s.storage.GetUser(ctx, id)
}

// Usernames resolves user ids to usernames. Unknown ids are absent from the result.
func (s *Service) Usernames(ctx context.Context, ids []model.UserID) (map[model.UserID]string, error) {
	users, err := s.storage.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[model.UserID]string, len(users))
	for id, u := range users {
		names[id] = u.Username
	}
	return names, nil
}
