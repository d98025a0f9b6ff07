package session

import (
	"context"
	"sync"
	"time"

	"storefront/internal/auth/models"
	id "storefront/pkg/domain"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/requestcontext"
)

// InMemorySessionStore keeps sessions in a map. Expired entries are hidden
// from lookups and removed by DeleteExpiredSessions.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]models.Session
}

func New() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[id.SessionID]models.Session)}
}

func (s *InMemorySessionStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return sentinel.ErrConflict
	}
	s.sessions[session.ID] = *session
	return nil
}

func (s *InMemorySessionStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok || session.IsExpiredAt(requestcontext.Now(ctx)) {
		return nil, sentinel.ErrNotFound
	}
	return &session, nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, sessionID id.SessionID) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

func (s *InMemorySessionStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for key, session := range s.sessions {
		if session.IsExpiredAt(now) {
			delete(s.sessions, key)
			deleted++
		}
	}
	return deleted, nil
}
