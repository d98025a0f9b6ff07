package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.IncrementUsersCreated()
	m.IncrementLogin("STATEFUL", "success")
	m.IncrementLogin("STATEFUL", "success")
	m.IncrementModeSwitch("STATELESS")
	m.IncrementTokensIssued()
	m.ObserveAuthResolution("STATELESS", "token")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.UsersCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Logins.WithLabelValues("STATEFUL", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModeSwitches.WithLabelValues("STATELESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokensIssued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthResolutions.WithLabelValues("STATELESS", "token")))
}

func TestObserveRequestLatency(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())
	m.ObserveRequestLatency("GET", "/healthz", 200, 3*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestLatency))
}
