package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/auth/models"
)

func parseWith(t *testing.T, vars map[string]string) (Server, error) {
	t.Helper()
	return Parse(env.Options{Environment: vars})
}

func TestParseDefaults(t *testing.T) {
	cfg, err := parseWith(t, map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, models.ModeStateless, cfg.Auth.InitialMode)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Auth.BindModeEpoch)
	assert.Equal(t, devSigningKey, cfg.Auth.JWTSigningKey)
	assert.Equal(t, "STOREFRONT_SESSION", cfg.Session.CookieName)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 5, cfg.Lockout.MaxAttempts)
	assert.Equal(t, "storefront.audit", cfg.Audit.Topic)
	assert.Empty(t, cfg.Redis.URL)
}

func TestParseOverrides(t *testing.T) {
	cfg, err := parseWith(t, map[string]string{
		"AUTH_MODE":             "stateful",
		"TOKEN_TTL":             "1h",
		"TOKEN_BIND_MODE_EPOCH": "true",
		"SESSION_COOKIE_NAME":   "SID",
		"KAFKA_BROKERS":         "k1:9092,k2:9092",
		"ADMIN_USERNAME":        "admin",
		"ADMIN_PASSWORD":        "changeme123",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ModeStateful, cfg.Auth.InitialMode)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Auth.BindModeEpoch)
	assert.Equal(t, "SID", cfg.Session.CookieName)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Audit.KafkaBrokers)
	assert.Equal(t, "admin", cfg.Admin.Username)
}

func TestParseRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"unknown mode", map[string]string{"AUTH_MODE": "HYBRID"}},
		{"missing key in production", map[string]string{"ENVIRONMENT": "production"}},
		{"zero token ttl", map[string]string{"TOKEN_TTL": "0s"}},
		{"admin without password", map[string]string{"ADMIN_USERNAME": "admin"}},
		{"malformed duration", map[string]string{"SESSION_TTL": "soon"}},
		{"blank cookie name", map[string]string{"SESSION_COOKIE_NAME": " "}},
		{"zero session cleanup interval", map[string]string{"SESSION_CLEANUP_INTERVAL": "0s"}},
		{"negative session cleanup interval", map[string]string{"SESSION_CLEANUP_INTERVAL": "-1m"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseWith(t, tt.vars)
			assert.Error(t, err)
		})
	}
}
