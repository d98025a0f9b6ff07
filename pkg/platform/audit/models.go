package audit

import (
	"context"
	"time"

	id "storefront/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers account lifecycle events.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers authentication outcomes and mode changes.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine activity such as token issuance.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from the auth service to record key actions. It is
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	Subject   string
	Action    string
	Reason    string
	Mode      string
	IP        string
	RequestID string
	// ActorID is set when someone other than the subject performed the action.
	ActorID string
}

type AuditEvent string

const (
	EventUserRegistered       AuditEvent = "user_registered"
	EventAdminSeeded          AuditEvent = "admin_seeded"
	EventLoginSucceeded       AuditEvent = "login_succeeded"
	EventLoginFailed          AuditEvent = "login_failed"
	EventLoggedOut            AuditEvent = "logged_out"
	EventAuthModeSwitched     AuditEvent = "auth_mode_switched"
	EventAuthLockoutTriggered AuditEvent = "auth_lockout_triggered"
	EventSessionCreated       AuditEvent = "session_created"
	EventTokenIssued          AuditEvent = "token_issued"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventUserRegistered: CategoryCompliance,
	EventAdminSeeded:    CategoryCompliance,

	EventLoginFailed:          CategorySecurity,
	EventLoginSucceeded:       CategorySecurity,
	EventAuthModeSwitched:     CategorySecurity,
	EventAuthLockoutTriggered: CategorySecurity,

	EventLoggedOut:      CategoryOperations,
	EventSessionCreated: CategoryOperations,
	EventTokenIssued:    CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists or forwards audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Fanout appends every event to each store in order and reports the first
// failure after trying all of them.
type Fanout []Store

func (f Fanout) Append(ctx context.Context, event Event) error {
	var firstErr error
	for _, s := range f {
		if err := s.Append(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
