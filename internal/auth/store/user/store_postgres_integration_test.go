//go:build integration

package user_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"storefront/internal/auth/models"
	"storefront/internal/auth/store/user"
	id "storefront/pkg/domain"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/testutil/containers"
)

type PostgresUserStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *user.PostgresStore
}

func TestPostgresUserStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresUserStoreSuite))
}

func (s *PostgresUserStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = user.NewPostgres(s.pg.Pool)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresUserStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background(), "users"))
}

func account(username, email string) *models.User {
	return &models.User{
		ID:           id.NewUserID(),
		Username:     username,
		Email:        email,
		PasswordHash: "hash",
		Roles:        []models.Role{models.RoleUser},
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresUserStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	alice := account("alice", "a@x.com")
	s.Require().NoError(s.store.Create(ctx, alice))

	found, err := s.store.FindByUsername(ctx, "alice")
	s.Require().NoError(err)
	s.Equal(alice.ID, found.ID)
	s.Equal(alice.Roles, found.Roles)
	s.True(alice.CreatedAt.Equal(found.CreatedAt))

	byID, err := s.store.FindByID(ctx, alice.ID)
	s.Require().NoError(err)
	s.Equal("alice", byID.Username)
}

func (s *PostgresUserStoreSuite) TestUniqueViolationsNameTheField() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, account("alice", "a@x.com")))

	var conflict *sentinel.ConflictError
	err := s.store.Create(ctx, account("alice", "b@x.com"))
	s.Require().True(errors.As(err, &conflict))
	s.Equal("username", conflict.Field)

	err = s.store.Create(ctx, account("bob", "A@X.COM"))
	s.Require().True(errors.As(err, &conflict))
	s.Equal("email", conflict.Field)
}

func (s *PostgresUserStoreSuite) TestFindUnknown() {
	_, err := s.store.FindByUsername(context.Background(), "ghost")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
