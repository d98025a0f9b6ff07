// Package domain holds typed identifiers shared across the auth packages.
package domain

import (
	"github.com/google/uuid"

	dErrors "storefront/pkg/domain-errors"
)

// UserID identifies a registered shopper or administrator.
type UserID uuid.UUID

// SessionID identifies a server-held session in stateful mode.
type SessionID uuid.UUID

// NewUserID returns a random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewSessionID returns a random SessionID.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be nil")
	}
	return parsed, nil
}

// ParseUserID validates s at a trust boundary.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

// ParseSessionID validates s at a trust boundary. Session cookies go through
// here before any store lookup.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s, "session id")
	return SessionID(u), err
}

func (u UserID) String() string { return uuid.UUID(u).String() }
func (u UserID) IsNil() bool    { return uuid.UUID(u) == uuid.Nil }

func (u UserID) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

func (u *UserID) UnmarshalText(b []byte) error {
	parsed, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*u = UserID(parsed)
	return nil
}

func (s SessionID) String() string { return uuid.UUID(s).String() }
func (s SessionID) IsNil() bool    { return uuid.UUID(s) == uuid.Nil }

func (s SessionID) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *SessionID) UnmarshalText(b []byte) error {
	parsed, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*s = SessionID(parsed)
	return nil
}
