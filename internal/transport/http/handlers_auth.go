package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/auth/models"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/httputil"
	"storefront/pkg/requestcontext"
)

// AuthService is the protocol surface the REST binding exposes.
type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error)
	Logout(ctx context.Context) error
	Mode(ctx context.Context) models.AuthMode
	SwitchMode(ctx context.Context, raw string) (models.AuthMode, error)
	CurrentUser(ctx context.Context) *models.Principal
	ListUsers(ctx context.Context) ([]*models.Principal, error)
}

type AuthHandler struct {
	auth   AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// Register mounts the auth, current-user and admin routes on r.
func (h *AuthHandler) Register(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)
		r.Get("/mode", h.handleGetMode)
		r.Post("/mode", h.handleSwitchMode)
	})
	r.Get("/api/users/me", h.handleCurrentUser)
	r.Get("/api/admin/users", h.handleListUsers)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.auth.Register(ctx, req)
	if err != nil {
		h.writeError(ctx, w, "register", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.auth.Login(ctx, req)
	if err != nil {
		h.writeError(ctx, w, "login", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.auth.Logout(ctx); err != nil {
		h.writeError(ctx, w, "logout", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) handleGetMode(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, models.AuthModeResponse{CurrentMode: h.auth.Mode(r.Context())})
}

// handleSwitchMode reads the target from ?mode=.
func (h *AuthHandler) handleSwitchMode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current, err := h.auth.SwitchMode(ctx, r.URL.Query().Get("mode"))
	if err != nil {
		h.writeError(ctx, w, "switch mode", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.AuthModeResponse{CurrentMode: current})
}

func (h *AuthHandler) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	principal := h.auth.CurrentUser(r.Context())
	if principal == nil {
		httputil.WriteErrorCode(w, dErrors.CodeUnauthorized, "authentication required")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, principal)
}

func (h *AuthHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.auth.ListUsers(ctx)
	if err != nil {
		h.writeError(ctx, w, "list users", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

// writeError logs internal failures at error level and client mistakes at
// warn level before writing the envelope.
func (h *AuthHandler) writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	attrs := []any{
		"op", op,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "request failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, "request rejected", attrs...)
	}
	httputil.WriteError(w, err)
}
