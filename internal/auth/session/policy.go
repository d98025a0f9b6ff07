// Package session decides whether a request may use server-side sessions and
// binds each request to the session mechanism under that decision.
package session

import "storefront/internal/auth/models"

// Policy is the session-creation policy applied to one request.
type Policy int

const (
	// PolicyNone never reads, creates or deletes a session.
	PolicyNone Policy = iota
	// PolicyIfPresentOrCreate reuses the request's session and creates one on demand.
	PolicyIfPresentOrCreate
)

func (p Policy) String() string {
	switch p {
	case PolicyIfPresentOrCreate:
		return "IF_PRESENT_OR_CREATE"
	default:
		return "NONE"
	}
}

// Decide maps an auth mode to its session policy.
func Decide(mode models.AuthMode) Policy {
	if mode == models.ModeStateful {
		return PolicyIfPresentOrCreate
	}
	return PolicyNone
}
