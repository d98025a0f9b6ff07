package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"storefront/internal/auth/models"
	"storefront/internal/auth/security"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/httputil"
	"storefront/pkg/requestcontext"
)

// Access is the requirement a route places on the request identity.
type Access int

const (
	AccessAuthenticated Access = iota
	AccessPublic
	AccessAdmin
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessAdmin:
		return "admin"
	default:
		return "authenticated"
	}
}

// Rule matches a request path, either exactly or by prefix, optionally
// restricted to one method.
type Rule struct {
	Method string
	Path   string
	Prefix bool
	Access Access
}

func (r Rule) matches(method, path string) bool {
	if r.Method != "" && r.Method != method {
		return false
	}
	if r.Prefix {
		return strings.HasPrefix(path, r.Path)
	}
	return path == r.Path
}

// RouteRules classifies requests. The first matching rule wins; requests
// matching nothing require authentication.
type RouteRules struct {
	rules []Rule
}

func NewRouteRules(rules ...Rule) *RouteRules {
	return &RouteRules{rules: rules}
}

// DefaultRouteRules returns the storefront classification.
func DefaultRouteRules() *RouteRules {
	return NewRouteRules(
		Rule{Path: "/", Access: AccessPublic},
		Rule{Path: "/favicon.ico", Access: AccessPublic},
		Rule{Path: "/static/", Prefix: true, Access: AccessPublic},
		Rule{Path: "/css/", Prefix: true, Access: AccessPublic},
		Rule{Path: "/js/", Prefix: true, Access: AccessPublic},
		Rule{Path: "/images/", Prefix: true, Access: AccessPublic},
		Rule{Path: "/api/auth/", Prefix: true, Access: AccessPublic},
		Rule{Path: "/graphql", Access: AccessPublic},
		Rule{Method: http.MethodGet, Path: "/api/products/", Prefix: true, Access: AccessPublic},
		Rule{Method: http.MethodGet, Path: "/api/categories/", Prefix: true, Access: AccessPublic},
		Rule{Path: "/healthz", Access: AccessPublic},
		Rule{Path: "/metrics", Access: AccessPublic},
		Rule{Path: "/api/admin/", Prefix: true, Access: AccessAdmin},
	)
}

func (rr *RouteRules) Classify(method, path string) Access {
	for _, rule := range rr.rules {
		if rule.matches(method, path) {
			return rule.Access
		}
	}
	return AccessAuthenticated
}

// Authorize turns an anonymous or under-privileged request on a protected
// route into 401 or 403. It must run after Authenticate.
func Authorize(rules *RouteRules, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access := rules.Classify(r.Method, r.URL.Path)
			if access == AccessPublic {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			principal := security.PrincipalFrom(ctx)
			if principal == nil {
				logger.InfoContext(ctx, "unauthorized access - no identity",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteErrorCode(w, dErrors.CodeUnauthorized, "authentication required")
				return
			}
			if access == AccessAdmin && !principal.HasRole(models.RoleAdmin) {
				logger.WarnContext(ctx, "forbidden - admin role required",
					"username", principal.Username,
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteErrorCode(w, dErrors.CodeForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
