// Package service implements the authentication protocol: register, login,
// logout, reading the auth mode and switching it. Every operation runs
// against the scope the authentication middleware attached to the request,
// so token issuance, session creation and logout all follow one mode
// snapshot.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/auth/models"
	"storefront/internal/auth/mode"
	"storefront/internal/auth/security"
	id "storefront/pkg/domain"
	"storefront/pkg/platform/audit"
	"storefront/pkg/requestcontext"
)

// UserStore persists accounts. Errors follow pkg/platform/sentinel.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) error
}

// TokenIssuer mints bearer tokens.
type TokenIssuer interface {
	IssueAt(username string, modeEpoch uint64, now time.Time) (string, error)
}

// ModeAuthority owns the process-wide auth mode.
type ModeAuthority interface {
	Mode() models.AuthMode
	Snapshot() mode.Snapshot
	Transition(models.AuthMode) (from, to mode.Snapshot)
}

// LoginLimiter throttles repeated failed logins.
type LoginLimiter interface {
	Check(ctx context.Context, username, ip string) error
	RecordFailure(ctx context.Context, username, ip string) (bool, error)
	Clear(ctx context.Context, username, ip string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Metrics is satisfied by internal/platform/metrics.
type Metrics interface {
	IncrementUsersCreated()
	IncrementLogin(mode, result string)
	IncrementModeSwitch(mode string)
	IncrementTokensIssued()
}

type Service struct {
	users   UserStore
	hasher  PasswordHasher
	tokens  TokenIssuer
	modes   ModeAuthority
	limiter LoginLimiter
	audit   AuditPublisher
	metrics Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithLoginLimiter(limiter LoginLimiter) Option {
	return func(s *Service) {
		s.limiter = limiter
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(users UserStore, hasher PasswordHasher, tokens TokenIssuer, modes ModeAuthority, opts ...Option) (*Service, error) {
	if users == nil || hasher == nil || tokens == nil || modes == nil {
		return nil, errors.New("auth service requires a user store, hasher, token issuer and mode authority")
	}
	s := &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		modes:  modes,
		logger: slog.Default(),
		tracer: otel.Tracer("storefront/auth"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// scope returns the request scope, or a detached one built from a fresh
// snapshot when the caller is not an HTTP request (startup seeding, tests).
func (s *Service) scope(ctx context.Context) *security.Scope {
	if scope := security.ScopeFrom(ctx); scope != nil {
		if scope.Security == nil {
			scope.Security = &security.Context{}
		}
		return scope
	}
	snap := s.modes.Snapshot()
	return &security.Scope{Mode: snap.Mode, Epoch: snap.Epoch, Security: &security.Context{}}
}

func (s *Service) startSpan(ctx context.Context, name string, scope *security.Scope) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("auth.mode", string(scope.Mode)),
		attribute.Int64("auth.mode_epoch", int64(scope.Epoch)),
	))
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// emit publishes an audit event. Audit failures are logged and never fail
// the operation.
func (s *Service) emit(ctx context.Context, action audit.AuditEvent, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.Action = string(action)
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (s *Service) issueToken(ctx context.Context, scope *security.Scope, principal *models.Principal) (*string, error) {
	token, err := s.tokens.IssueAt(principal.Username, scope.Epoch, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementTokensIssued()
	}
	s.emit(ctx, audit.EventTokenIssued, audit.Event{
		UserID:  principal.ID,
		Subject: principal.Username,
		Mode:    string(scope.Mode),
	})
	return &token, nil
}
