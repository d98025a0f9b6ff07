// Package session persists server-side sessions for stateful mode.
package session

import (
	"context"
	"time"

	"storefront/internal/auth/models"
	id "storefront/pkg/domain"
)

// Store is implemented by the in-memory and Redis session stores. Lookups of
// unknown or expired sessions return sentinel.ErrNotFound.
type Store interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Delete(ctx context.Context, sessionID id.SessionID) error
}

// Cleaner is implemented by stores that do not expire entries on their own.
type Cleaner interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}
