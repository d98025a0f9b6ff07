package models

// AuthResult is returned by register and login. Token is nil whenever the
// request ran in stateful mode.
type AuthResult struct {
	Token *string    `json:"token"`
	User  *Principal `json:"user"`
	Mode  AuthMode   `json:"-"`
}
