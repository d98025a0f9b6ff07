package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/platform/config"
)

func TestNewWithoutURL(t *testing.T) {
	pool, err := New(context.Background(), config.DatabaseConfig{})
	require.NoError(t, err)
	assert.Nil(t, pool)
}

func TestNewRejectsMalformedURL(t *testing.T) {
	_, err := New(context.Background(), config.DatabaseConfig{URL: "postgres://%zz"})
	assert.Error(t, err)
}
