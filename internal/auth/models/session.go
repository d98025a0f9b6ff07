package models

import (
	"time"

	id "storefront/pkg/domain"
)

// Session binds a cookie-held session ID to an authenticated principal.
// Sessions only exist while the process runs in stateful mode.
type Session struct {
	ID          id.SessionID `json:"id"`
	Principal   Principal    `json:"principal"`
	Device      string       `json:"device"`
	Fingerprint string       `json:"fingerprint,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// IsExpiredAt reports whether the session is unusable at now.
func (s *Session) IsExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
