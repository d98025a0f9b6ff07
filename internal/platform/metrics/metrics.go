package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	UsersCreated    prometheus.Counter
	Logins          *prometheus.CounterVec
	ModeSwitches    *prometheus.CounterVec
	TokensIssued    prometheus.Counter
	AuthResolutions *prometheus.CounterVec
	RequestLatency  *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the metrics with reg, so tests can use a
// private registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UsersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_users_created_total",
			Help: "Total number of users created in the system",
		}),
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_logins_total",
			Help: "Login attempts by auth mode and result",
		}, []string{"mode", "result"}),
		ModeSwitches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_auth_mode_switches_total",
			Help: "Effective auth mode changes by target mode",
		}, []string{"mode"}),
		TokensIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_tokens_issued_total",
			Help: "Access tokens minted",
		}),
		AuthResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_auth_resolutions_total",
			Help: "Per-request authentication outcomes by auth mode",
		}, []string{"mode", "outcome"}),
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_ms",
			Help:    "HTTP request latency in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"method", "route", "status"}),
	}
}

// IncrementUsersCreated increments the users created counter by 1
func (m *Metrics) IncrementUsersCreated() {
	m.UsersCreated.Inc()
}

func (m *Metrics) IncrementLogin(mode, result string) {
	m.Logins.WithLabelValues(mode, result).Inc()
}

func (m *Metrics) IncrementModeSwitch(mode string) {
	m.ModeSwitches.WithLabelValues(mode).Inc()
}

func (m *Metrics) IncrementTokensIssued() {
	m.TokensIssued.Inc()
}

func (m *Metrics) ObserveAuthResolution(mode, outcome string) {
	m.AuthResolutions.WithLabelValues(mode, outcome).Inc()
}

func (m *Metrics) ObserveRequestLatency(method, route string, status int, d time.Duration) {
	m.RequestLatency.WithLabelValues(method, route, strconv.Itoa(status)).
		Observe(float64(d.Microseconds()) / 1000)
}
