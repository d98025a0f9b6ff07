package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"storefront/internal/auth/device"
	"storefront/internal/auth/models"
	"storefront/internal/auth/security"
	sessionstore "storefront/internal/auth/store/session"
	id "storefront/pkg/domain"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/requestcontext"
)

// ErrSessionsDisabled is returned when a handle bound to PolicyNone is asked
// to create a session.
var ErrSessionsDisabled = errors.New("sessions are disabled for this request")

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// Manager builds per-request session handles over a session store.
type Manager struct {
	store   sessionstore.Store
	devices *device.Service
	cookie  CookieConfig
	ttl     time.Duration
	logger  *slog.Logger
}

func NewManager(store sessionstore.Store, devices *device.Service, cookie CookieConfig, ttl time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		store:   store,
		devices: devices,
		cookie:  cookie,
		ttl:     ttl,
		logger:  logger,
	}
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.cookie.Name
}

// Bind returns the session handle for one request. Handles are not shared
// across requests.
func (m *Manager) Bind(w http.ResponseWriter, r *http.Request, policy Policy) security.SessionHandle {
	return &Handle{manager: m, policy: policy, w: w, r: r}
}

// Handle is a request-scoped view of the session mechanism under one policy.
type Handle struct {
	manager *Manager
	policy  Policy
	w       http.ResponseWriter
	r       *http.Request

	mu      sync.Mutex
	loaded  bool
	current *models.Session
}

// Policy returns the policy the handle was bound to.
func (h *Handle) Policy() Policy {
	return h.policy
}

func (h *Handle) Current(ctx context.Context) (*models.Session, error) {
	if h.policy == PolicyNone {
		return nil, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loadLocked(ctx)
}

func (h *Handle) loadLocked(ctx context.Context) (*models.Session, error) {
	if h.loaded {
		return h.current, nil
	}
	h.loaded = true

	cookie, err := h.r.Cookie(h.manager.cookie.Name)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}
	sessionID, err := id.ParseSessionID(cookie.Value)
	if err != nil {
		h.manager.logger.DebugContext(ctx, "ignoring malformed session cookie", "request_id", requestcontext.RequestID(ctx))
		return nil, nil
	}
	sess, err := h.manager.store.FindByID(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	current := h.manager.devices.ComputeFingerprint(requestcontext.UserAgent(ctx))
	if _, drift := h.manager.devices.CompareFingerprints(sess.Fingerprint, current); drift {
		h.manager.logger.WarnContext(ctx, "session device fingerprint drift",
			"session_id", sess.ID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	h.current = sess
	return sess, nil
}

// Establish replaces any existing session with a fresh one for principal and
// sets the session cookie. The session ID always changes on login.
func (h *Handle) Establish(ctx context.Context, principal *models.Principal) (*models.Session, error) {
	if h.policy == PolicyNone {
		return nil, ErrSessionsDisabled
	}
	if principal == nil {
		return nil, errors.New("establish session: nil principal")
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	previous, err := h.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	if previous != nil {
		if err := h.manager.store.Delete(ctx, previous.ID); err != nil {
			return nil, fmt.Errorf("rotate session: %w", err)
		}
	}

	now := requestcontext.Now(ctx)
	userAgent := requestcontext.UserAgent(ctx)
	sess := &models.Session{
		ID:          id.NewSessionID(),
		Principal:   *principal,
		Device:      device.ParseUserAgent(userAgent),
		Fingerprint: h.manager.devices.ComputeFingerprint(userAgent),
		CreatedAt:   now,
		ExpiresAt:   now.Add(h.manager.ttl),
	}
	if err := h.manager.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	h.current = sess
	h.loaded = true

	http.SetCookie(h.w, &http.Cookie{
		Name:     h.manager.cookie.Name,
		Value:    sess.ID.String(),
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(h.manager.ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.manager.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, nil
}

// Invalidate deletes the request's session and expires the cookie. Calling it
// without a session is a no-op.
func (h *Handle) Invalidate(ctx context.Context) error {
	if h.policy == PolicyNone {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	sess, err := h.loadLocked(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	if err := h.manager.store.Delete(ctx, sess.ID); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	h.current = nil

	http.SetCookie(h.w, &http.Cookie{
		Name:     h.manager.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.manager.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
