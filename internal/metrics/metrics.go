// Package metrics holds the service's prometheus counters.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"carebridge/internal/apperr"
	"carebridge/internal/guard"
	"carebridge/internal/requests"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeConflict = "conflict"
	OutcomeRejected = "rejected"
	OutcomeDenied   = "denied"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	Registrations    *prometheus.CounterVec
	Logins           *prometheus.CounterVec
	RequestMutations *prometheus.CounterVec
	SessionsStarted  prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carebridge_registrations_total",
			Help: "Registration attempts by outcome.",
		}, []string{"outcome"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carebridge_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		RequestMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carebridge_request_mutations_total",
			Help: "Staff mutations of requests by operation and outcome.",
		}, []string{"op", "outcome"}),
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carebridge_sessions_started_total",
			Help: "Sessions issued at login.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Registrations,
		m.Logins,
		m.RequestMutations,
		m.SessionsStarted,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveMutation plugs into requests.WithObserver.
func (m *Metrics) ObserveMutation(op requests.Op, err error) {
	m.RequestMutations.WithLabelValues(string(op), Outcome(err)).Inc()
}

func (m *Metrics) ObserveRegistration(err error) {
	m.Registrations.WithLabelValues(Outcome(err)).Inc()
}

func (m *Metrics) ObserveLogin(err error) {
	m.Logins.WithLabelValues(Outcome(err)).Inc()
	if err == nil {
		m.SessionsStarted.Inc()
	}
}

// Outcome maps an error from the services to a label value.
func Outcome(err error) string {
	var verrs apperr.ValidationErrors
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &verrs):
		return OutcomeInvalid
	case errors.Is(err, apperr.ErrConflict):
		return OutcomeConflict
	case errors.Is(err, apperr.ErrInvalidCredentials):
		return OutcomeRejected
	case errors.Is(err, apperr.ErrNotFound):
		return OutcomeNotFound
	case guard.IsLoginRequired(err), guard.IsForbidden(err):
		return OutcomeDenied
	default:
		return OutcomeError
	}
}
