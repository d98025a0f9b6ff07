package service

import (
	"context"
	"errors"

	"storefront/internal/auth/models"
	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/audit"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/requestcontext"
)

// Register creates a USER account. A token is returned only when the request
// snapshot is stateless; in stateful mode no session is created and the
// caller logs in separately.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (result *models.AuthResult, err error) {
	scope := s.scope(ctx)
	ctx, span := s.startSpan(ctx, "auth.Register", scope)
	defer func() { endSpan(span, err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.createUser(ctx, req, models.RoleUser)
	if err != nil {
		return nil, err
	}
	principal := user.Principal()

	s.emit(ctx, audit.EventUserRegistered, audit.Event{
		UserID:  user.ID,
		Subject: user.Username,
		Mode:    string(scope.Mode),
	})
	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID.String(),
		"mode", scope.Mode,
		"request_id", requestcontext.RequestID(ctx),
	)

	result = &models.AuthResult{User: principal, Mode: scope.Mode}
	if scope.Mode == models.ModeStateless {
		result.Token, err = s.issueToken(ctx, scope, principal)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
		}
	}
	return result, nil
}

// SeedAdmin creates an ADMIN account unless the username already exists.
// It reports whether a user was created.
func (s *Service) SeedAdmin(ctx context.Context, req models.RegisterRequest) (bool, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return false, err
	}
	if _, err := s.users.FindByUsername(ctx, req.Username); err == nil {
		return false, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up admin")
	}

	user, err := s.createUser(ctx, req, models.RoleUser, models.RoleAdmin)
	if err != nil {
		return false, err
	}
	s.emit(ctx, audit.EventAdminSeeded, audit.Event{UserID: user.ID, Subject: user.Username})
	s.logger.InfoContext(ctx, "admin user seeded", "username", user.Username)
	return true, nil
}

func (s *Service) createUser(ctx context.Context, req models.RegisterRequest, roles ...models.Role) (*models.User, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	user := &models.User{
		ID:           id.NewUserID(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, translateCreateError(err)
	}
	if s.metrics != nil {
		s.metrics.IncrementUsersCreated()
	}
	return user, nil
}

func translateCreateError(err error) error {
	var conflict *sentinel.ConflictError
	if errors.As(err, &conflict) {
		switch conflict.Field {
		case "username":
			return dErrors.New(dErrors.CodeUsernameTaken, "username is already taken")
		case "email":
			return dErrors.New(dErrors.CodeEmailTaken, "email is already in use")
		}
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Wrap(err, dErrors.CodeConflict, "account already exists")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
}
