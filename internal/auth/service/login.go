package service

import (
	"context"
	"errors"

	"storefront/internal/auth/credentials"
	"storefront/internal/auth/models"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/audit"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/requestcontext"
)

const invalidCredentialsMessage = "invalid username or password"

// Login verifies credentials and authenticates the current request. Under a
// stateless snapshot it returns a token; under a stateful one it binds the
// principal to a fresh session and the token is nil.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (result *models.AuthResult, err error) {
	scope := s.scope(ctx)
	ctx, span := s.startSpan(ctx, "auth.Login", scope)
	defer func() { endSpan(span, err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ip := requestcontext.ClientIP(ctx)

	if s.limiter != nil {
		if err := s.limiter.Check(ctx, req.Username, ip); err != nil {
			s.recordLogin(scope.Mode, "locked")
			return nil, err
		}
	}

	user, err := s.verify(ctx, req)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidCredentials) {
			s.loginFailed(ctx, scope.Mode, req.Username, ip)
		}
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Clear(ctx, req.Username, ip); err != nil {
			s.logger.WarnContext(ctx, "failed to clear login failures", "error", err)
		}
	}

	principal := user.Principal()
	scope.Security.SetPrincipal(principal)
	result = &models.AuthResult{User: principal, Mode: scope.Mode}

	switch scope.Mode {
	case models.ModeStateless:
		result.Token, err = s.issueToken(ctx, scope, principal)
		if err != nil {
			scope.Security.Clear()
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
		}
	case models.ModeStateful:
		if scope.Session == nil {
			scope.Security.Clear()
			return nil, dErrors.New(dErrors.CodeInternal, "no session mechanism bound to request")
		}
		session, err := scope.Session.Establish(ctx, principal)
		if err != nil {
			scope.Security.Clear()
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
		}
		s.emit(ctx, audit.EventSessionCreated, audit.Event{
			UserID:  principal.ID,
			Subject: principal.Username,
			Mode:    string(scope.Mode),
			Reason:  session.Device,
		})
	}

	s.recordLogin(scope.Mode, "success")
	s.emit(ctx, audit.EventLoginSucceeded, audit.Event{
		UserID:  principal.ID,
		Subject: principal.Username,
		Mode:    string(scope.Mode),
		IP:      ip,
	})
	s.logger.InfoContext(ctx, "login succeeded",
		"user_id", principal.ID.String(),
		"mode", scope.Mode,
		"request_id", requestcontext.RequestID(ctx),
	)
	return result, nil
}

// verify returns the user when the password matches. Unknown usernames and
// wrong passwords produce the same invalid_credentials error.
func (s *Service) verify(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
		}
		_ = s.hasher.Verify("", req.Password)
		return nil, dErrors.New(dErrors.CodeInvalidCredentials, invalidCredentialsMessage)
	}
	if err := s.hasher.Verify(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, credentials.ErrMismatch) {
			return nil, dErrors.New(dErrors.CodeInvalidCredentials, invalidCredentialsMessage)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}
	return user, nil
}

func (s *Service) loginFailed(ctx context.Context, mode models.AuthMode, username, ip string) {
	s.recordLogin(mode, "failure")
	s.emit(ctx, audit.EventLoginFailed, audit.Event{
		Subject: username,
		Mode:    string(mode),
		IP:      ip,
		Reason:  "invalid_credentials",
	})
	s.logger.WarnContext(ctx, "login failed",
		"username", username,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.limiter == nil {
		return
	}
	if _, err := s.limiter.RecordFailure(ctx, username, ip); err != nil {
		s.logger.WarnContext(ctx, "failed to record login failure", "error", err)
	}
}

func (s *Service) recordLogin(mode models.AuthMode, result string) {
	if s.metrics != nil {
		s.metrics.IncrementLogin(string(mode), result)
	}
}

// Logout deletes the request's session under a stateful snapshot and always
// clears the security context. Calling it when nothing is authenticated is
// not an error.
func (s *Service) Logout(ctx context.Context) (err error) {
	scope := s.scope(ctx)
	ctx, span := s.startSpan(ctx, "auth.Logout", scope)
	defer func() { endSpan(span, err) }()

	principal := scope.Security.Principal()
	defer scope.Security.Clear()

	if scope.Mode == models.ModeStateful && scope.Session != nil {
		if err := scope.Session.Invalidate(ctx); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to invalidate session")
		}
	}

	if principal != nil {
		s.emit(ctx, audit.EventLoggedOut, audit.Event{
			UserID:  principal.ID,
			Subject: principal.Username,
			Mode:    string(scope.Mode),
		})
	}
	return nil
}
