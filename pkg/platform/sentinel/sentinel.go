package sentinel

import "errors"

// Sentinel errors for storage facts. User and session stores return these
// (optionally wrapped) and the auth service translates them into domain errors.
//
//   - ErrNotFound: no user or session under the key
//   - ErrConflict: a unique column (username, email) already holds the value
//   - ErrExpired: the session exists but is past its expiry
//   - ErrUnavailable: the backing store could not be reached
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
)

// ConflictError names the unique field that caused an ErrConflict.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return "conflict on " + e.Field
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
