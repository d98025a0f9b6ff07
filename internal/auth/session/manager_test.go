package session

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"storefront/internal/auth/device"
	"storefront/internal/auth/models"
	sessionstore "storefront/internal/auth/store/session"
	id "storefront/pkg/domain"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/requestcontext"
)

type ManagerSuite struct {
	suite.Suite
	store   *sessionstore.InMemorySessionStore
	manager *Manager
	now     time.Time
	alice   *models.Principal
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.store = sessionstore.New()
	s.manager = NewManager(s.store, device.NewService(true),
		CookieConfig{Name: "STOREFRONT_SESSION"}, 30*time.Minute,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	s.alice = &models.Principal{ID: id.NewUserID(), Username: "alice", Roles: []models.Role{models.RoleUser}}
}

func (s *ManagerSuite) request(cookie *http.Cookie) (*httptest.ResponseRecorder, *http.Request) {
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	if cookie != nil {
		r.AddCookie(cookie)
	}
	ctx := requestcontext.WithTime(r.Context(), s.now)
	ctx = requestcontext.WithClientMetadata(ctx, "192.0.2.1", "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")
	return httptest.NewRecorder(), r.WithContext(ctx)
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "STOREFRONT_SESSION" {
			return c
		}
	}
	return nil
}

func (s *ManagerSuite) TestPolicyNoneNeverTouchesSessions() {
	w, r := s.request(nil)
	handle := s.manager.Bind(w, r, PolicyNone)

	sess, err := handle.Establish(r.Context(), s.alice)
	s.ErrorIs(err, ErrSessionsDisabled)
	s.Nil(sess)
	s.Nil(sessionCookie(w))

	s.Run("existing cookie is not read", func() {
		w, r := s.request(nil)
		created, err := s.manager.Bind(w, r, PolicyIfPresentOrCreate).Establish(r.Context(), s.alice)
		s.Require().NoError(err)

		w2, r2 := s.request(sessionCookie(w))
		current, err := s.manager.Bind(w2, r2, PolicyNone).Current(r2.Context())
		s.NoError(err)
		s.Nil(current)
		s.NoError(s.manager.Bind(w2, r2, PolicyNone).Invalidate(r2.Context()))

		_, err = s.store.FindByID(r2.Context(), created.ID)
		s.NoError(err, "stateless logout must not delete sessions")
	})
}

func (s *ManagerSuite) TestEstablishSetsCookieAndStoresSession() {
	w, r := s.request(nil)
	sess, err := s.manager.Bind(w, r, PolicyIfPresentOrCreate).Establish(r.Context(), s.alice)
	s.Require().NoError(err)

	cookie := sessionCookie(w)
	s.Require().NotNil(cookie)
	s.Equal(sess.ID.String(), cookie.Value)
	s.True(cookie.HttpOnly)
	s.Equal(http.SameSiteLaxMode, cookie.SameSite)
	s.Equal(s.now.Add(30*time.Minute), sess.ExpiresAt)
	s.Contains(sess.Device, "Firefox")
	s.NotEmpty(sess.Fingerprint)

	w2, r2 := s.request(cookie)
	current, err := s.manager.Bind(w2, r2, PolicyIfPresentOrCreate).Current(r2.Context())
	s.Require().NoError(err)
	s.Require().NotNil(current)
	s.Equal("alice", current.Principal.Username)
}

func (s *ManagerSuite) TestEstablishRotatesExistingSession() {
	w, r := s.request(nil)
	first, err := s.manager.Bind(w, r, PolicyIfPresentOrCreate).Establish(r.Context(), s.alice)
	s.Require().NoError(err)

	w2, r2 := s.request(sessionCookie(w))
	second, err := s.manager.Bind(w2, r2, PolicyIfPresentOrCreate).Establish(r2.Context(), s.alice)
	s.Require().NoError(err)
	s.NotEqual(first.ID, second.ID)

	_, err = s.store.FindByID(r2.Context(), first.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ManagerSuite) TestCurrentIgnoresBadCookies() {
	cases := map[string]*http.Cookie{
		"no cookie":       nil,
		"malformed id":    {Name: "STOREFRONT_SESSION", Value: "not-a-uuid"},
		"unknown session": {Name: "STOREFRONT_SESSION", Value: id.NewSessionID().String()},
		"empty value":     {Name: "STOREFRONT_SESSION", Value: ""},
	}
	for name, cookie := range cases {
		s.Run(name, func() {
			w, r := s.request(cookie)
			current, err := s.manager.Bind(w, r, PolicyIfPresentOrCreate).Current(r.Context())
			s.NoError(err)
			s.Nil(current)
		})
	}
}

func (s *ManagerSuite) TestExpiredSessionIsAnonymous() {
	w, r := s.request(nil)
	_, err := s.manager.Bind(w, r, PolicyIfPresentOrCreate).Establish(r.Context(), s.alice)
	s.Require().NoError(err)

	s.now = s.now.Add(31 * time.Minute)
	w2, r2 := s.request(sessionCookie(w))
	current, err := s.manager.Bind(w2, r2, PolicyIfPresentOrCreate).Current(r2.Context())
	s.NoError(err)
	s.Nil(current)
}

func (s *ManagerSuite) TestInvalidate() {
	w, r := s.request(nil)
	sess, err := s.manager.Bind(w, r, PolicyIfPresentOrCreate).Establish(r.Context(), s.alice)
	s.Require().NoError(err)

	w2, r2 := s.request(sessionCookie(w))
	handle := s.manager.Bind(w2, r2, PolicyIfPresentOrCreate)
	s.Require().NoError(handle.Invalidate(r2.Context()))

	_, err = s.store.FindByID(r2.Context(), sess.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	cleared := sessionCookie(w2)
	s.Require().NotNil(cleared)
	s.Equal(-1, cleared.MaxAge)

	s.NoError(handle.Invalidate(r2.Context()), "second invalidate is a no-op")

	w3, r3 := s.request(nil)
	s.NoError(s.manager.Bind(w3, r3, PolicyIfPresentOrCreate).Invalidate(context.Background()))
}
