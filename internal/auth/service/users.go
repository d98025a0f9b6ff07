package service

import (
	"context"

	"storefront/internal/auth/models"
	dErrors "storefront/pkg/domain-errors"
)

// CurrentUser returns the principal authenticated on this request, or nil.
func (s *Service) CurrentUser(ctx context.Context) *models.Principal {
	return s.scope(ctx).Security.Principal()
}

// LoadPrincipal resolves a token subject to its current roles. Unknown
// usernames return sentinel.ErrNotFound.
func (s *Service) LoadPrincipal(ctx context.Context, username string) (*models.Principal, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return user.Principal(), nil
}

// ListUsers returns every account as a principal.
func (s *Service) ListUsers(ctx context.Context) ([]*models.Principal, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	principals := make([]*models.Principal, 0, len(users))
	for _, u := range users {
		principals = append(principals, u.Principal())
	}
	return principals, nil
}
