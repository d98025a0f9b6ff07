package testutil

import (
	"context"

	"storefront/internal/auth/models"
	"storefront/internal/auth/security"
)

// WithPrincipal attaches a request scope in mode whose security context holds
// principal. A nil principal yields an anonymous scope. Handlers under test
// then see what the authentication middleware would have resolved.
func WithPrincipal(ctx context.Context, mode models.AuthMode, principal *models.Principal) (context.Context, *security.Scope) {
	sc := &security.Context{}
	sc.SetPrincipal(principal)
	scope := &security.Scope{Mode: mode, Security: sc}
	return security.WithScope(ctx, scope), scope
}
