// Package authlockout blocks repeated failed logins per username and client IP.
package authlockout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storefront/internal/ratelimit/models"
	dErrors "storefront/pkg/domain-errors"
	audit "storefront/pkg/platform/audit"
	"storefront/pkg/requestcontext"
)

// Store persists failure counters.
type Store interface {
	Get(ctx context.Context, key string) (*models.AuthLockout, error)
	RecordFailure(ctx context.Context, key string, window time.Duration) (*models.AuthLockout, error)
	Lock(ctx context.Context, key string, until time.Time) error
	Clear(ctx context.Context, key string) error
}

// AuditPublisher records lockout events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Config sets the lockout thresholds. MaxAttempts <= 0 disables lockout.
type Config struct {
	MaxAttempts  int
	Window       time.Duration
	LockDuration time.Duration
}

type Service struct {
	store          Store
	auditPublisher AuditPublisher
	logger         *slog.Logger
	config         Config
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func New(store Store, cfg Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth lockout store is required")
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = cfg.Window
	}
	svc := &Service{store: store, config: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

func (s *Service) enabled() bool {
	return s.config.MaxAttempts > 0
}

// Check returns a too_many_attempts error while the pair is locked.
func (s *Service) Check(ctx context.Context, username, ip string) error {
	if !s.enabled() {
		return nil
	}
	key := models.NewAuthLockoutKey(username, ip).String()
	record, err := s.store.Get(ctx, key)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to get auth lockout record")
	}
	now := requestcontext.Now(ctx)
	if record.IsLockedAt(now) {
		retryAfter := max(int(record.LockedUntil.Sub(now).Seconds()), 1)
		return dErrors.New(dErrors.CodeTooManyAttempts,
			fmt.Sprintf("too many failed login attempts, retry in %d seconds", retryAfter))
	}
	return nil
}

// RecordFailure counts a failed login and locks the pair once the threshold
// is reached. It reports whether this failure triggered the lock.
func (s *Service) RecordFailure(ctx context.Context, username, ip string) (bool, error) {
	if !s.enabled() {
		return false, nil
	}
	key := models.NewAuthLockoutKey(username, ip).String()
	record, err := s.store.RecordFailure(ctx, key, s.config.Window)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record auth failure")
	}
	if record.FailureCount < s.config.MaxAttempts {
		return false, nil
	}

	until := requestcontext.Now(ctx).Add(s.config.LockDuration)
	if err := s.store.Lock(ctx, key, until); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock auth identifier")
	}
	s.logger.WarnContext(ctx, "login locked after repeated failures",
		"username", username,
		"failures", record.FailureCount,
		"locked_until", until,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.auditPublisher != nil {
		if err := s.auditPublisher.Emit(ctx, audit.Event{
			Subject: username,
			Action:  string(audit.EventAuthLockoutTriggered),
			Reason:  fmt.Sprintf("%d failed attempts", record.FailureCount),
			IP:      ip,
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to emit lockout audit event", "error", err)
		}
	}
	return true, nil
}

// Clear resets the pair after a successful login.
func (s *Service) Clear(ctx context.Context, username, ip string) error {
	if !s.enabled() {
		return nil
	}
	key := models.NewAuthLockoutKey(username, ip).String()
	if err := s.store.Clear(ctx, key); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear auth failures")
	}
	return nil
}
