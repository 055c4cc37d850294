// Package metrics exposes Prometheus counters for token issuance, token
// validation and password changes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultSuccess            = "success"
	ResultInvalidCredentials = "invalid_credentials"
	ResultMissing            = "missing"
	ResultMalformedHeader    = "malformed_header"
	ResultExpired            = "expired"
	ResultBadSignature       = "bad_signature"
	ResultMalformed          = "malformed"
	ResultSuperseded         = "superseded"
	ResultUserNotFound       = "user_not_found"
	ResultRejected           = "rejected"
	ResultError              = "error"
)

// Metrics is safe to use as a nil pointer; every recorder is then a no-op.
type Metrics struct {
	registry         *prometheus.Registry
	tokensIssued     *prometheus.CounterVec
	tokenValidations *prometheus.CounterVec
	passwordChanges  *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "token_auth_tokens_issued_total",
			Help: "Token issuance attempts by result",
		}, []string{"result"}),
		tokenValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "token_auth_token_validations_total",
			Help: "Token validations by source and result",
		}, []string{"source", "result"}),
		passwordChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "token_auth_password_changes_total",
			Help: "Password change attempts by result",
		}, []string{"result"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "token_auth_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}

	m.registry.MustRegister(
		m.tokensIssued,
		m.tokenValidations,
		m.passwordChanges,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) TokenIssued(result string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(result).Inc()
}

// TokenValidated records one validation. source is "gate" for the request
// gate and "verify" for the verify-token endpoint.
func (m *Metrics) TokenValidated(source string, result string) {
	if m == nil {
		return
	}
	m.tokenValidations.WithLabelValues(source, result).Inc()
}

func (m *Metrics) PasswordChanged(result string) {
	if m == nil {
		return
	}
	m.passwordChanges.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRequest(route string, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(route, status).Observe(elapsed.Seconds())
}
