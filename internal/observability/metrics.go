// Package observability exposes Prometheus metrics for the service.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains the service's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RegistrationRequests      *prometheus.CounterVec
	RegistrationVerifications *prometheus.CounterVec
	Logins                    *prometheus.CounterVec
}

// NewMetrics creates a dedicated registry with Go/process collectors and the
// service counters.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		RegistrationRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopdesk_registration_requests_total",
				Help: "Registration requests and code resends by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		RegistrationVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopdesk_registration_verifications_total",
				Help: "Registration verifications by outcome",
			},
			[]string{"outcome"},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopdesk_logins_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(m.RegistrationRequests)
	registry.MustRegister(m.RegistrationVerifications)
	registry.MustRegister(m.Logins)
	return m
}

// RecordRegistrationRequest counts a RequestRegistration or ResendCode outcome.
func (m *Metrics) RecordRegistrationRequest(operation, outcome string) {
	if m == nil {
		return
	}
	m.RegistrationRequests.WithLabelValues(operation, outcome).Inc()
}

// RecordVerification counts a VerifyRegistration outcome.
func (m *Metrics) RecordVerification(outcome string) {
	if m == nil {
		return
	}
	m.RegistrationVerifications.WithLabelValues(outcome).Inc()
}

// RecordLogin counts an Authenticate outcome.
func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
