package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/bughunt/internal/dependencies/mocks"
	"github.com/mcoot/bughunt/internal/model"
	"github.com/mcoot/bughunt/internal/storage/memory"
	"github.com/mcoot/bughunt/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	ids     *mocks.MockIDs
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.ids = mocks.NewMockIDs()
	s.service = New(s.storage, s.clock, s.ids, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ServiceSuite) TestRegisterNormalisesInput() {
	s.ids.Queue("u1")

	user, err := s.service.Register(s.ctx, "  alice  ", " Alice@Example.COM ", "hash")
	s.Require().NoError(err)

	s.Equal(model.UserID("u1"), user.ID)
	s.Equal("alice", user.Username)
	s.Equal("alice@example.com", user.Email)
	s.Equal(s.clock.Now(), user.CreatedAt)
}

func (s *ServiceSuite) TestRegisterRejectsUsernameLength() {
	_, err := s.service.Register(s.ctx, "  ab ", "", "")
	s.ErrorIs(err, model.ErrInvalidUsername)

	_, err = s.service.Register(s.ctx, "abcdefghijklmnopqrstuvwxyz12345", "", "")
	s.ErrorIs(err, model.ErrInvalidUsername)

	// Length is measured in characters, not bytes
	_, err = s.service.Register(s.ctx, "ééé", "", "")
	s.NoError(err)
}

func (s *ServiceSuite) TestRegisterDuplicateUsernameConflictsRegardlessOfEmail() {
	_, err := s.service.Register(s.ctx, "alice", "a@example.com", "")
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, "alice", "different@example.com", "")
	s.ErrorIs(err, model.ErrUserExists)

	_, err = s.service.Register(s.ctx, "alice", "", "")
	s.ErrorIs(err, model.ErrUserExists)
}

func (s *ServiceSuite) TestRegisterDuplicateEmailConflicts() {
	_, err := s.service.Register(s.ctx, "alice", "a@example.com", "")
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, "bob", "A@EXAMPLE.com", "")
	s.ErrorIs(err, model.ErrUserExists)
}

func (s *ServiceSuite) TestRegisterWithoutEmailNeverConflictsOnEmail() {
	_, err := s.service.Register(s.ctx, "alice", "", "")
	s.Require().NoError(err)
	_, err = s.service.Register(s.ctx, "bob", "   ", "")
	s.NoError(err)
}

func (s *ServiceSuite) TestFindByUsernameAndEmail() {
	s.ids.Queue("u1")
	_, err := s.service.Register(s.ctx, "alice", "a@example.com", "")
	s.Require().NoError(err)

	byName, err := s.service.FindByUsername(s.ctx, " alice")
	s.Require().NoError(err)
	s.Equal(model.UserID("u1"), byName.ID)

	byEmail, err := s.service.FindByEmail(s.ctx, "A@example.com")
	s.Require().NoError(err)
	s.Equal(model.UserID("u1"), byEmail.ID)

	_, err = s.service.FindByUsername(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrUserNotFound)

	_, err = s.service.FindByEmail(s.ctx, "")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *ServiceSuite) TestUsernamesSkipsUnknownIDs() {
	s.ids.Queue("u1", "u2")
	_, _ = s.service.Register(s.ctx, "alice", "", "")
	_, _ = s.service.Register(s.ctx, "bob", "", "")

	names, err := s.service.Usernames(s.ctx, []model.UserID{"u2", "ghost", "u1"})
	s.Require().NoError(err)
	s.Equal(map[model.UserID]string{"u1": "alice", "u2": "bob"}, names)
}
