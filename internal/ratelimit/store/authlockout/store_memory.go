// Package authlockout stores login failure counters.
package authlockout

import (
	"context"
	"sync"
	"time"

	"storefront/internal/ratelimit/models"
	"storefront/pkg/requestcontext"
)

// InMemoryAuthLockoutStore keeps records in a map. A failure after window
// has passed since the previous one starts a fresh count.
type InMemoryAuthLockoutStore struct {
	mu      sync.Mutex
	records map[string]models.AuthLockout
}

func New() *InMemoryAuthLockoutStore {
	return &InMemoryAuthLockoutStore{records: make(map[string]models.AuthLockout)}
}

func (s *InMemoryAuthLockoutStore) Get(_ context.Context, key string) (*models.AuthLockout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (s *InMemoryAuthLockoutStore) RecordFailure(ctx context.Context, key string, window time.Duration) (*models.AuthLockout, error) {
	now := requestcontext.Now(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok || now.Sub(record.LastFailureAt) >= window {
		record = models.AuthLockout{Identifier: key, LockedUntil: record.LockedUntil}
	}
	record.FailureCount++
	record.LastFailureAt = now
	s.records[key] = record
	return &record, nil
}

func (s *InMemoryAuthLockoutStore) Lock(_ context.Context, key string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := s.records[key]
	record.Identifier = key
	record.LockedUntil = &until
	s.records[key] = record
	return nil
}

func (s *InMemoryAuthLockoutStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}
