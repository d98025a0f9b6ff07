// Package user stores shopper and administrator accounts.
package user

import (
	"context"
	"slices"
	"strings"
	"sync"

	"storefront/internal/auth/models"
	id "storefront/pkg/domain"
	"storefront/pkg/platform/sentinel"
)

// InMemoryUserStore enforces the same uniqueness rules as the Postgres
// store: usernames are case-sensitive, emails are compared lower-cased.
type InMemoryUserStore struct {
	mu         sync.RWMutex
	byID       map[id.UserID]*models.User
	byUsername map[string]id.UserID
	byEmail    map[string]id.UserID
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		byID:       make(map[id.UserID]*models.User),
		byUsername: make(map[string]id.UserID),
		byEmail:    make(map[string]id.UserID),
	}
}

func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, ok := s.byUsername[user.Username]; ok {
		return &sentinel.ConflictError{Field: "username"}
	}
	if _, ok := s.byEmail[email]; ok {
		return &sentinel.ConflictError{Field: "email"}
	}
	stored := *user
	stored.Roles = slices.Clone(user.Roles)
	s.byID[user.ID] = &stored
	s.byUsername[user.Username] = user.ID
	s.byEmail[email] = user.ID
	return nil
}

func (s *InMemoryUserStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byUsername[username]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	found := *s.byID[userID]
	return &found, nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	found := *u
	return &found, nil
}

// List returns all users ordered by creation time.
func (s *InMemoryUserStore) List(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.byID))
	for _, u := range s.byID {
		c := *u
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *models.User) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Username, b.Username)
	})
	return out, nil
}
