package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches wrapped domain error", func(t *testing.T) {
		err := fmt.Errorf("login: %w", New(CodeInvalidCredentials, "bad password"))
		assert.True(t, HasCode(err, CodeInvalidCredentials))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestErrorsIsComparesCodes(t *testing.T) {
	err := Wrap(errors.New("duplicate key"), CodeUsernameTaken, "username is already taken")
	assert.ErrorIs(t, err, New(CodeUsernameTaken, ""))
	assert.NotErrorIs(t, err, New(CodeEmailTaken, ""))
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "failed to load user")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}
