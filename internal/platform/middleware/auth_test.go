package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/auth/mode"
	"storefront/internal/auth/models"
	"storefront/internal/auth/security"
	"storefront/internal/auth/session"
	id "storefront/pkg/domain"
	"storefront/pkg/platform/sentinel"
)

type stubValidator struct {
	claims *TokenClaims
	err    error
	calls  int
}

func (s *stubValidator) ValidateAt(string, time.Time) (*TokenClaims, error) {
	s.calls++
	return s.claims, s.err
}

type stubUsers map[string]*models.Principal

func (s stubUsers) LoadPrincipal(_ context.Context, username string) (*models.Principal, error) {
	if p, ok := s[username]; ok {
		return p, nil
	}
	return nil, sentinel.ErrNotFound
}

type stubHandle struct {
	current *models.Session
	err     error
}

func (h *stubHandle) Current(context.Context) (*models.Session, error) { return h.current, h.err }
func (h *stubHandle) Establish(context.Context, *models.Principal) (*models.Session, error) {
	return nil, errors.New("not used")
}
func (h *stubHandle) Invalidate(context.Context) error { return nil }

type stubBinder struct {
	handle   *stubHandle
	policies []session.Policy
}

func (b *stubBinder) Bind(_ http.ResponseWriter, _ *http.Request, policy session.Policy) security.SessionHandle {
	b.policies = append(b.policies, policy)
	return b.handle
}

type countingRecorder struct {
	outcomes []string
}

func (c *countingRecorder) ObserveAuthResolution(_, outcome string) {
	c.outcomes = append(c.outcomes, outcome)
}

type resolverFixture struct {
	authority *mode.Authority
	validator *stubValidator
	binder    *stubBinder
	recorder  *countingRecorder
	alice     *models.Principal
}

func newResolverFixture(initial models.AuthMode) *resolverFixture {
	alice := &models.Principal{ID: id.NewUserID(), Username: "alice", Roles: []models.Role{models.RoleUser}}
	return &resolverFixture{
		authority: mode.New(initial),
		validator: &stubValidator{claims: &TokenClaims{Subject: "alice"}},
		binder:    &stubBinder{handle: &stubHandle{}},
		recorder:  &countingRecorder{},
		alice:     alice,
	}
}

func (f *resolverFixture) serve(t *testing.T, req *http.Request, opts ...AuthenticatorOption) *security.Scope {
	t.Helper()
	opts = append(opts, WithResolutionRecorder(f.recorder))
	a := NewAuthenticator(f.authority, f.validator, stubUsers{"alice": f.alice}, f.binder,
		slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)

	var scope *security.Scope
	a.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope = security.ScopeFrom(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, scope)
	return scope
}

func bearerRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAuthenticateStateless(t *testing.T) {
	t.Run("valid bearer token resolves the stored principal", func(t *testing.T) {
		f := newResolverFixture(models.ModeStateless)
		scope := f.serve(t, bearerRequest("good"))

		assert.Equal(t, models.ModeStateless, scope.Mode)
		assert.Same(t, f.alice, scope.Security.Principal())
		assert.Equal(t, []session.Policy{session.PolicyNone}, f.binder.policies)
		assert.Equal(t, []string{OutcomeToken}, f.recorder.outcomes)
	})

	t.Run("missing header is anonymous without validation", func(t *testing.T) {
		f := newResolverFixture(models.ModeStateless)
		scope := f.serve(t, bearerRequest(""))

		assert.Nil(t, scope.Security.Principal())
		assert.Zero(t, f.validator.calls)
	})

	t.Run("non bearer scheme is anonymous", func(t *testing.T) {
		f := newResolverFixture(models.ModeStateless)
		req := bearerRequest("")
		req.Header.Set("Authorization", "Basic YWxpY2U6cHc=")
		scope := f.serve(t, req)

		assert.Nil(t, scope.Security.Principal())
		assert.Zero(t, f.validator.calls)
	})

	t.Run("invalid token fails open to anonymous", func(t *testing.T) {
		f := newResolverFixture(models.ModeStateless)
		f.validator.claims, f.validator.err = nil, errors.New("token expired")
		scope := f.serve(t, bearerRequest("stale"))

		assert.Nil(t, scope.Security.Principal())
		assert.Equal(t, []string{OutcomeTokenRejected}, f.recorder.outcomes)
	})

	t.Run("unknown subject is anonymous", func(t *testing.T) {
		f := newResolverFixture(models.ModeStateless)
		f.validator.claims = &TokenClaims{Subject: "mallory"}
		scope := f.serve(t, bearerRequest("good"))

		assert.Nil(t, scope.Security.Principal())
		assert.Equal(t, []string{OutcomeUnknownUser}, f.recorder.outcomes)
	})

	t.Run("epoch binding rejects tokens from an earlier epoch", func(t *testing.T) {
		f := newResolverFixture(models.ModeStateless)
		f.authority.Switch(models.ModeStateful)
		f.authority.Switch(models.ModeStateless)

		scope := f.serve(t, bearerRequest("old"), WithModeEpochBinding(true))
		assert.Nil(t, scope.Security.Principal())
		assert.Equal(t, uint64(2), scope.Epoch)

		f.validator.claims = &TokenClaims{Subject: "alice", ModeEpoch: 2}
		scope = f.serve(t, bearerRequest("fresh"), WithModeEpochBinding(true))
		assert.Same(t, f.alice, scope.Security.Principal())
	})

	t.Run("without epoch binding older tokens still work", func(t *testing.T) {
		f := newResolverFixture(models.ModeStateless)
		f.authority.Switch(models.ModeStateful)
		f.authority.Switch(models.ModeStateless)

		scope := f.serve(t, bearerRequest("old"))
		assert.Same(t, f.alice, scope.Security.Principal())
	})
}

func TestAuthenticateStateful(t *testing.T) {
	t.Run("bearer token is ignored", func(t *testing.T) {
		f := newResolverFixture(models.ModeStateful)
		scope := f.serve(t, bearerRequest("good"))

		assert.Nil(t, scope.Security.Principal())
		assert.Zero(t, f.validator.calls)
		assert.Equal(t, []session.Policy{session.PolicyIfPresentOrCreate}, f.binder.policies)
	})

	t.Run("live session provides the principal", func(t *testing.T) {
		f := newResolverFixture(models.ModeStateful)
		f.binder.handle.current = &models.Session{ID: id.NewSessionID(), Principal: *f.alice}
		scope := f.serve(t, bearerRequest(""))

		require.NotNil(t, scope.Security.Principal())
		assert.Equal(t, "alice", scope.Security.Principal().Username)
		assert.Equal(t, []string{OutcomeSession}, f.recorder.outcomes)
	})

	t.Run("session store failure is anonymous", func(t *testing.T) {
		f := newResolverFixture(models.ModeStateful)
		f.binder.handle.err = errors.New("redis down")
		scope := f.serve(t, bearerRequest(""))

		assert.Nil(t, scope.Security.Principal())
		assert.Equal(t, []string{OutcomeSessionError}, f.recorder.outcomes)
	})
}

func TestAuthenticateSnapshotsModeOnce(t *testing.T) {
	f := newResolverFixture(models.ModeStateless)
	a := NewAuthenticator(f.authority, f.validator, stubUsers{"alice": f.alice}, f.binder,
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	var seen models.AuthMode
	h := a.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.authority.Switch(models.ModeStateful)
		seen = security.ScopeFrom(r.Context()).Mode
	}))
	h.ServeHTTP(httptest.NewRecorder(), bearerRequest("good"))

	assert.Equal(t, models.ModeStateless, seen, "a switch mid-request must not change the request's mode")
	assert.Equal(t, models.ModeStateful, f.authority.Mode())
}
