package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/auth/models"
	id "storefront/pkg/domain"
	"storefront/pkg/platform/sentinel"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgres(mock), mock
}

var userColumns = []string{"id", "username", "email", "password_hash", "roles", "created_at"}

func TestPostgresStoreCreate(t *testing.T) {
	ctx := context.Background()
	u := &models.User{
		ID:           id.NewUserID(),
		Username:     "alice",
		Email:        "a@x.com",
		PasswordHash: "hash",
		Roles:        []models.Role{models.RoleUser},
		CreatedAt:    time.Now(),
	}

	t.Run("inserts the user", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec("INSERT INTO users").
			WithArgs(uuid.UUID(u.ID), "alice", "a@x.com", "hash", []string{"USER"}, u.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, store.Create(ctx, u))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	tests := []struct {
		name       string
		constraint string
		field      string
	}{
		{"username unique violation", usernameConstraint, "username"},
		{"email unique violation", emailConstraint, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			mock.ExpectExec("INSERT INTO users").
				WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
				WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: tt.constraint})

			err := store.Create(ctx, u)
			var conflict *sentinel.ConflictError
			require.True(t, errors.As(err, &conflict))
			assert.Equal(t, tt.field, conflict.Field)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("other errors are wrapped", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec("INSERT INTO users").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("connection reset"))

		err := store.Create(ctx, u)
		require.Error(t, err)
		assert.NotErrorIs(t, err, sentinel.ErrConflict)
	})
}

func TestPostgresStoreFindByUsername(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("maps the row", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT (.+) FROM users WHERE username").
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows(userColumns).
				AddRow(userID, "alice", "a@x.com", "hash", []string{"USER", "ADMIN"}, created))

		u, err := store.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, id.UserID(userID), u.ID)
		assert.Equal(t, []models.Role{models.RoleUser, models.RoleAdmin}, u.Roles)
		assert.Equal(t, created, u.CreatedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows is not found", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT (.+) FROM users WHERE username").
			WithArgs("ghost").
			WillReturnRows(pgxmock.NewRows(userColumns))

		_, err := store.FindByUsername(ctx, "ghost")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestPostgresStoreList(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM users ORDER BY").
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow(uuid.New(), "admin", "admin@x.com", "h1", []string{"USER", "ADMIN"}, now).
			AddRow(uuid.New(), "alice", "a@x.com", "h2", []string{"USER"}, now))

	users, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "admin", users[0].Username)
	require.NoError(t, mock.ExpectationsWereMet())
}
