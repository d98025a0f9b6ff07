package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"storefront/internal/auth/mode"
	"storefront/internal/auth/models"
	"storefront/internal/auth/security"
	"storefront/internal/auth/session"
	"storefront/pkg/requestcontext"
)

// TokenClaims is what the resolver needs from a validated bearer token.
type TokenClaims struct {
	Subject   string
	ModeEpoch uint64
	JTI       string
}

// TokenValidator validates bearer tokens against the request clock.
type TokenValidator interface {
	ValidateAt(tokenString string, now time.Time) (*TokenClaims, error)
}

// PrincipalLoader re-resolves a token subject to a full principal.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, username string) (*models.Principal, error)
}

// ModeSource supplies the mode snapshot taken at request entry.
type ModeSource interface {
	Snapshot() mode.Snapshot
}

// SessionBinder binds a request to the session mechanism under a policy.
type SessionBinder interface {
	Bind(w http.ResponseWriter, r *http.Request, policy session.Policy) security.SessionHandle
}

// ResolutionRecorder counts how requests were authenticated.
type ResolutionRecorder interface {
	ObserveAuthResolution(mode, outcome string)
}

// Resolution outcomes reported to the ResolutionRecorder.
const (
	OutcomeAnonymous     = "anonymous"
	OutcomeToken         = "token"
	OutcomeSession       = "session"
	OutcomeTokenRejected = "token_rejected"
	OutcomeSessionError  = "session_error"
	OutcomeUnknownUser   = "unknown_user"
)

// Authenticator resolves the identity of each request. It never rejects a
// request: every failure leaves the request anonymous, and Authorize decides
// whether anonymity is acceptable for the route.
type Authenticator struct {
	modes         ModeSource
	tokens        TokenValidator
	users         PrincipalLoader
	sessions      SessionBinder
	logger        *slog.Logger
	bindModeEpoch bool
	recorder      ResolutionRecorder
}

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithModeEpochBinding rejects tokens minted under a different mode epoch.
func WithModeEpochBinding(enabled bool) AuthenticatorOption {
	return func(a *Authenticator) { a.bindModeEpoch = enabled }
}

// WithResolutionRecorder reports each resolution outcome.
func WithResolutionRecorder(r ResolutionRecorder) AuthenticatorOption {
	return func(a *Authenticator) { a.recorder = r }
}

func NewAuthenticator(modes ModeSource, tokens TokenValidator, users PrincipalLoader, sessions SessionBinder, logger *slog.Logger, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		modes:    modes,
		tokens:   tokens,
		users:    users,
		sessions: sessions,
		logger:   logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Authenticate snapshots the mode once, attaches the request scope and
// resolves the principal for the chosen credential channel.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := a.modes.Snapshot()
		scope := &security.Scope{
			Mode:     snap.Mode,
			Epoch:    snap.Epoch,
			Session:  a.sessions.Bind(w, r, session.Decide(snap.Mode)),
			Security: &security.Context{},
		}
		ctx := security.WithScope(r.Context(), scope)

		principal, outcome := a.resolve(ctx, r, scope)
		scope.Security.SetPrincipal(principal)
		if a.recorder != nil {
			a.recorder.ObserveAuthResolution(string(snap.Mode), outcome)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) resolve(ctx context.Context, r *http.Request, scope *security.Scope) (*models.Principal, string) {
	if scope.Mode == models.ModeStateful {
		return a.fromSession(ctx, scope)
	}
	return a.fromBearer(ctx, r, scope)
}

func (a *Authenticator) fromSession(ctx context.Context, scope *security.Scope) (*models.Principal, string) {
	sess, err := scope.Session.Current(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "session lookup failed, continuing anonymously",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, OutcomeSessionError
	}
	if sess == nil {
		return nil, OutcomeAnonymous
	}
	principal := sess.Principal
	return &principal, OutcomeSession
}

func (a *Authenticator) fromBearer(ctx context.Context, r *http.Request, scope *security.Scope) (*models.Principal, string) {
	token, ok := bearerToken(r)
	if !ok {
		return nil, OutcomeAnonymous
	}
	claims, err := a.tokens.ValidateAt(token, requestcontext.Now(ctx))
	if err != nil {
		a.logger.DebugContext(ctx, "bearer token rejected",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, OutcomeTokenRejected
	}
	if a.bindModeEpoch && claims.ModeEpoch != scope.Epoch {
		a.logger.DebugContext(ctx, "bearer token minted under another mode epoch",
			"token_epoch", claims.ModeEpoch,
			"current_epoch", scope.Epoch,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, OutcomeTokenRejected
	}
	principal, err := a.users.LoadPrincipal(ctx, claims.Subject)
	if err != nil {
		a.logger.WarnContext(ctx, "token subject could not be resolved",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, OutcomeUnknownUser
	}
	return principal, OutcomeToken
}

func bearerToken(r *http.Request) (string, bool) {
	const bearerPrefix = "Bearer "
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
