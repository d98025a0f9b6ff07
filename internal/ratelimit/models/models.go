// Package models holds login lockout records.
package models

import (
	"strings"
	"time"
)

// AuthLockout tracks failed logins for one username and client IP pair.
type AuthLockout struct {
	Identifier    string
	FailureCount  int
	LastFailureAt time.Time
	LockedUntil   *time.Time
}

// IsLockedAt reports whether the record blocks logins at now.
func (a *AuthLockout) IsLockedAt(now time.Time) bool {
	return a != nil && a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// AuthLockoutKey identifies a lockout record.
type AuthLockoutKey struct {
	Username string
	IP       string
}

func NewAuthLockoutKey(username, ip string) AuthLockoutKey {
	return AuthLockoutKey{Username: username, IP: ip}
}

// String renders the key with ':' escaped in each segment so a username
// containing ':' cannot collide with another pair.
func (k AuthLockoutKey) String() string {
	return "auth:" + sanitizeKeySegment(k.Username) + ":" + sanitizeKeySegment(k.IP)
}

func sanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
