package models

import (
	"slices"
	"time"

	id "storefront/pkg/domain"
)

// Role is a coarse authorization grant.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Principal is the identity attached to an authenticated request. It is
// resolved from the user store (stateless) or the session (stateful) and is
// never mutated by the auth packages.
type Principal struct {
	ID       id.UserID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Roles    []Role    `json:"roles"`
}

// HasRole reports whether the principal holds role.
func (p *Principal) HasRole(role Role) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Roles, role)
}

// User is the stored account record.
type User struct {
	ID           id.UserID
	Username     string
	Email        string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
}

// Principal projects the account into the identity handed to requests.
func (u *User) Principal() *Principal {
	return &Principal{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Roles:    slices.Clone(u.Roles),
	}
}
