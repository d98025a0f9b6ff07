package models

import (
	"strings"

	dErrors "storefront/pkg/domain-errors"
)

// AuthMode selects the credential channel the whole process honours.
type AuthMode string

const (
	// ModeStateless authenticates every request with a bearer token.
	ModeStateless AuthMode = "STATELESS"
	// ModeStateful authenticates through a server-held session cookie.
	ModeStateful AuthMode = "STATEFUL"
)

// ParseAuthMode maps user input to an AuthMode, ignoring case and
// surrounding whitespace.
func ParseAuthMode(raw string) (AuthMode, error) {
	mode := AuthMode(strings.ToUpper(strings.TrimSpace(raw)))
	if !mode.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidMode, "mode must be STATELESS or STATEFUL")
	}
	return mode, nil
}

func (m AuthMode) IsValid() bool {
	return m == ModeStateless || m == ModeStateful
}

func (m AuthMode) String() string {
	return string(m)
}

// AuthModeResponse is the body of both mode endpoints.
type AuthModeResponse struct {
	CurrentMode AuthMode `json:"currentMode"`
}
