package graphql

import (
	"context"
	"errors"
	"log/slog"

	"github.com/graph-gophers/graphql-go"

	"storefront/internal/auth/models"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/requestcontext"
)

// AuthService is the protocol surface the GraphQL binding exposes.
type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error)
	Logout(ctx context.Context) error
	Mode(ctx context.Context) models.AuthMode
	SwitchMode(ctx context.Context, raw string) (models.AuthMode, error)
	CurrentUser(ctx context.Context) *models.Principal
}

// Resolver is the root resolver for Query and Mutation.
type Resolver struct {
	auth   AuthService
	logger *slog.Logger
}

func NewResolver(auth AuthService, logger *slog.Logger) *Resolver {
	return &Resolver{auth: auth, logger: logger}
}

type registerInput struct {
	Username string
	Email    string
	Password string
}

type loginInput struct {
	Username string
	Password string
}

func (r *Resolver) RegisterUser(ctx context.Context, args struct{ User registerInput }) (*authResponseResolver, error) {
	result, err := r.auth.Register(ctx, models.RegisterRequest{
		Username: args.User.Username,
		Email:    args.User.Email,
		Password: args.User.Password,
	})
	if err != nil {
		return nil, r.publicError(ctx, "registerUser", err)
	}
	return &authResponseResolver{result: result}, nil
}

func (r *Resolver) Login(ctx context.Context, args struct{ Login loginInput }) (*authResponseResolver, error) {
	result, err := r.auth.Login(ctx, models.LoginRequest{
		Username: args.Login.Username,
		Password: args.Login.Password,
	})
	if err != nil {
		return nil, r.publicError(ctx, "login", err)
	}
	return &authResponseResolver{result: result}, nil
}

func (r *Resolver) Logout(ctx context.Context) (bool, error) {
	if err := r.auth.Logout(ctx); err != nil {
		return false, r.publicError(ctx, "logout", err)
	}
	return true, nil
}

func (r *Resolver) SwitchAuthMode(ctx context.Context, args struct{ Mode string }) (*authModeResolver, error) {
	current, err := r.auth.SwitchMode(ctx, args.Mode)
	if err != nil {
		return nil, r.publicError(ctx, "switchAuthMode", err)
	}
	return &authModeResolver{mode: current}, nil
}

func (r *Resolver) GetCurrentAuthMode(ctx context.Context) *authModeResolver {
	return &authModeResolver{mode: r.auth.Mode(ctx)}
}

// GetCurrentUser returns null for anonymous requests.
func (r *Resolver) GetCurrentUser(ctx context.Context) *userResolver {
	principal := r.auth.CurrentUser(ctx)
	if principal == nil {
		return nil
	}
	return &userResolver{principal: principal}
}

type authResponseResolver struct {
	result *models.AuthResult
}

func (a *authResponseResolver) Token() *string {
	return a.result.Token
}

func (a *authResponseResolver) User() *userResolver {
	return &userResolver{principal: a.result.User}
}

type userResolver struct {
	principal *models.Principal
}

func (u *userResolver) ID() graphql.ID {
	return graphql.ID(u.principal.ID.String())
}

func (u *userResolver) Username() string {
	return u.principal.Username
}

func (u *userResolver) Email() string {
	return u.principal.Email
}

func (u *userResolver) Roles() []string {
	roles := make([]string, len(u.principal.Roles))
	for i, role := range u.principal.Roles {
		roles[i] = string(role)
	}
	return roles
}

type authModeResolver struct {
	mode models.AuthMode
}

func (m *authModeResolver) CurrentMode() string {
	return string(m.mode)
}

// gqlError is what clients see for a failed operation: the domain message
// and code, never the wrapped cause.
type gqlError struct {
	code    dErrors.Code
	message string
}

func (e *gqlError) Error() string {
	return e.message
}

func (e *gqlError) Extensions() map[string]any {
	return map[string]any{"code": string(e.code)}
}

func (r *Resolver) publicError(ctx context.Context, op string, err error) error {
	code := dErrors.CodeOf(err)
	attrs := []any{
		"op", op,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	}
	if code == dErrors.CodeInternal {
		r.logger.ErrorContext(ctx, "graphql operation failed", attrs...)
		return &gqlError{code: code, message: "internal error"}
	}
	r.logger.WarnContext(ctx, "graphql operation rejected", attrs...)

	message := string(code)
	var de *dErrors.Error
	if errors.As(err, &de) {
		message = de.Message
	}
	return &gqlError{code: code, message: message}
}
