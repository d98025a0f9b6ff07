package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "storefront/pkg/domain-errors"
)

// MaxPasswordBytes is bcrypt's input limit. validator's max counts runes, so
// the byte limit has its own tag.
const MaxPasswordBytes = 72

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxPasswordBytes
	}); err != nil {
		panic(err)
	}
	return v
}

// RegisterRequest is the body of POST /api/auth/register and the GraphQL
// registerUser input.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72,bcryptlen"`
}

// Normalize trims identifiers and lower-cases the email. Passwords are left
// untouched.
func (r *RegisterRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *RegisterRequest) Validate() error {
	return validationError(validate.Struct(r))
}

// LoginRequest is the body of POST /api/auth/login and the GraphQL login input.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=72,bcryptlen"`
}

func (r *LoginRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

func (r *LoginRequest) Validate() error {
	return validationError(validate.Struct(r))
}

// validationError reports the first failing field as an invalid_input error.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			return dErrors.New(dErrors.CodeInvalidInput, field+" is required")
		case "email":
			return dErrors.New(dErrors.CodeInvalidInput, "invalid email")
		case "min":
			return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "bcryptlen":
			return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s must be at most %d bytes", field, MaxPasswordBytes))
		case "max":
			return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		}
		return dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid request")
}
