package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storefront/internal/auth/models"
)

func TestDecide(t *testing.T) {
	assert.Equal(t, PolicyNone, Decide(models.ModeStateless))
	assert.Equal(t, PolicyIfPresentOrCreate, Decide(models.ModeStateful))
	assert.Equal(t, PolicyNone, Decide(models.AuthMode("bogus")))
	assert.Equal(t, "IF_PRESENT_OR_CREATE", PolicyIfPresentOrCreate.String())
	assert.Equal(t, "NONE", PolicyNone.String())
}
