package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"storefront/internal/auth/models"
	id "storefront/pkg/domain"
	"storefront/pkg/platform/sentinel"
)

// DB is the subset of *pgxpool.Pool used by the store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	usernameConstraint = "users_username_key"
	emailConstraint    = "users_email_key"
)

// Schema creates the users table. Email uniqueness is case-insensitive.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	username      TEXT        NOT NULL,
	email         TEXT        NOT NULL,
	password_hash TEXT        NOT NULL,
	roles         TEXT[]      NOT NULL DEFAULT '{USER}',
	created_at    TIMESTAMPTZ NOT NULL,
	CONSTRAINT users_username_key UNIQUE (username)
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (lower(email));
`

// PostgresStore persists users with pgx. It is pure I/O; validation and
// hashing happen in the service.
type PostgresStore struct {
	db DB
}

func NewPostgres(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the users table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create users schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, roles, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.Exec(ctx, query,
		uuid.UUID(user.ID),
		user.Username,
		user.Email,
		user.PasswordHash,
		rolesToText(user.Roles),
		user.CreatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		switch pgErr.ConstraintName {
		case usernameConstraint:
			return &sentinel.ConflictError{Field: "username"}
		case emailConstraint:
			return &sentinel.ConflictError{Field: "email"}
		default:
			return fmt.Errorf("insert user: %w", sentinel.ErrConflict)
		}
	}
	return fmt.Errorf("insert user: %w", err)
}

const selectUser = `SELECT id, username, email, password_hash, roles, created_at FROM users`

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, selectUser+` WHERE username = $1`, username))
	if err != nil {
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, selectUser+` WHERE id = $1`, uuid.UUID(userID)))
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.Query(ctx, selectUser+` ORDER BY created_at, username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		userID    uuid.UUID
		u         models.User
		roles     []string
		createdAt time.Time
	)
	err := row.Scan(&userID, &u.Username, &u.Email, &u.PasswordHash, &roles, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.ID = id.UserID(userID)
	u.CreatedAt = createdAt
	u.Roles = make([]models.Role, len(roles))
	for i, r := range roles {
		u.Roles[i] = models.Role(r)
	}
	return &u, nil
}

func rolesToText(roles []models.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
