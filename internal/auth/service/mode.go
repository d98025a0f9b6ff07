package service

import (
	"context"

	"storefront/internal/auth/models"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/audit"
	"storefront/pkg/requestcontext"
)

// Mode returns the active auth mode.
func (s *Service) Mode(_ context.Context) models.AuthMode {
	return s.modes.Mode()
}

// SwitchMode parses raw and makes it the active mode. Requests already in
// flight keep the mode they started with.
func (s *Service) SwitchMode(ctx context.Context, raw string) (models.AuthMode, error) {
	target, err := models.ParseAuthMode(raw)
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvalidMode, "mode must be STATELESS or STATEFUL")
	}

	before, after := s.modes.Transition(target)
	current := after.Mode
	if before == after {
		return current, nil
	}

	if s.metrics != nil {
		s.metrics.IncrementModeSwitch(string(current))
	}
	event := audit.Event{
		Mode:   string(current),
		Reason: string(before.Mode) + " -> " + string(current),
	}
	if actor := s.scope(ctx).Security.Principal(); actor != nil {
		event.ActorID = actor.ID.String()
		event.Subject = actor.Username
	}
	s.emit(ctx, audit.EventAuthModeSwitched, event)
	s.logger.InfoContext(ctx, "auth mode switched",
		"from", before.Mode,
		"to", current,
		"request_id", requestcontext.RequestID(ctx),
	)
	return current, nil
}
