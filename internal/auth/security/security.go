// Package security carries the per-request authentication scope: the mode
// snapshot taken at request entry, the session handle bound to that mode,
// and the mutable security context holding the resolved principal.
package security

import (
	"context"
	"sync"

	"storefront/internal/auth/models"
)

// SessionHandle is the request's view of the server-side session mechanism.
// A handle is bound to one session policy for its whole life.
type SessionHandle interface {
	// Current returns the live session attached to the request, or nil.
	Current(ctx context.Context) (*models.Session, error)
	// Establish binds principal to a session, creating one when needed.
	Establish(ctx context.Context, principal *models.Principal) (*models.Session, error)
	// Invalidate deletes the attached session, if any.
	Invalidate(ctx context.Context) error
}

// Context holds the principal for one request. GraphQL resolvers may touch
// it from several goroutines, so access is guarded.
type Context struct {
	mu        sync.RWMutex
	principal *models.Principal
}

func (c *Context) Principal() *models.Principal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.principal
}

func (c *Context) Authenticated() bool {
	return c.Principal() != nil
}

func (c *Context) SetPrincipal(p *models.Principal) {
	c.mu.Lock()
	c.principal = p
	c.mu.Unlock()
}

func (c *Context) Clear() {
	c.SetPrincipal(nil)
}

// Scope is everything the auth pipeline decided at request entry.
type Scope struct {
	Mode     models.AuthMode
	Epoch    uint64
	Session  SessionHandle
	Security *Context
}

type scopeKey struct{}

// WithScope attaches scope to ctx.
func WithScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFrom returns the scope attached by the authentication middleware, or
// nil outside a request.
func ScopeFrom(ctx context.Context) *Scope {
	scope, _ := ctx.Value(scopeKey{}).(*Scope)
	return scope
}

// PrincipalFrom returns the request's principal, or nil when anonymous.
func PrincipalFrom(ctx context.Context) *models.Principal {
	scope := ScopeFrom(ctx)
	if scope == nil || scope.Security == nil {
		return nil
	}
	return scope.Security.Principal()
}
