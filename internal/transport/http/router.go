// Package httptransport is the REST binding of the storefront backend.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront/internal/platform/middleware"
	"storefront/pkg/platform/httputil"
	"storefront/pkg/platform/middleware/metadata"
	"storefront/pkg/platform/middleware/requesttime"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker func(r *http.Request) error

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Logger         *slog.Logger
	Authenticator  *middleware.Authenticator
	Rules          *middleware.RouteRules
	Latency        middleware.LatencyObserver
	RequestTimeout time.Duration
	Auth           *AuthHandler
	// GraphQL is mounted at /graphql when set.
	GraphQL      http.Handler
	HealthChecks map[string]HealthChecker
}

// NewRouter builds the chi router. Every request passes request ID, panic
// recovery, request time, client metadata and logging, then authentication
// and authorization, before it reaches a handler.
func NewRouter(cfg RouterConfig) http.Handler {
	rules := cfg.Rules
	if rules == nil {
		rules = middleware.DefaultRouteRules()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.Logger(cfg.Logger, cfg.Latency))
	r.Use(chimw.Timeout(timeout))
	r.Use(cfg.Authenticator.Authenticate)
	r.Use(middleware.Authorize(rules, cfg.Logger))

	r.Get("/healthz", healthHandler(cfg.HealthChecks))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		cfg.Auth.Register(r)
	})
	if cfg.GraphQL != nil {
		r.Handle("/graphql", cfg.GraphQL)
	}
	return r
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(r); err != nil {
				results[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		body := map[string]any{"status": "ok", "checks": results}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		httputil.WriteJSON(w, status, body)
	}
}
