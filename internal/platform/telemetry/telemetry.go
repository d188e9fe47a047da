// Package telemetry exposes Prometheus metrics for HTTP traffic and the
// booking and payment flows. A nil *Metrics is valid and records nothing.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	activeRequests prometheus.Gauge

	appointmentsBooked *prometheus.CounterVec
	statusChanges      *prometheus.CounterVec
	checkouts          *prometheus.CounterVec
	payments           *prometheus.CounterVec
	authAttempts       *prometheus.CounterVec
	notifications      *prometheus.CounterVec
	auditEvents        *prometheus.CounterVec
}

// New builds a private registry with the Go and process collectors plus the
// application metrics under namespace.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_active_requests",
			Help:      "Number of in-flight HTTP requests",
		}),
		appointmentsBooked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointments_booked_total",
			Help:      "Appointments created by patients",
		}, []string{}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointment_status_changes_total",
			Help:      "Appointment status transitions by target status and actor",
		}, []string{"status", "actor"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_checkouts_total",
			Help:      "Hosted checkout sessions requested from the gateway",
		}, []string{"provider", "result"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_confirmations_total",
			Help:      "Payment confirmations, split into new payments and replays",
		}, []string{"outcome"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Login and registration attempts",
		}, []string{"action", "result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Outbound email notifications",
		}, []string{"kind", "result"}),
		auditEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_events_total",
			Help:      "Audited write requests by surface, action and status code",
		}, []string{"surface", "action", "status_code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.activeRequests,
		m.appointmentsBooked,
		m.statusChanges,
		m.checkouts,
		m.payments,
		m.authAttempts,
		m.notifications,
		m.auditEvents,
	)
	return m
}

// Registry is exposed for tests and for registering extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Middleware records request count and latency by route pattern, so ids in
// paths do not explode label cardinality.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			m.activeRequests.Inc()
			defer m.activeRequests.Dec()

			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if err != nil {
				status = 500
			}

			method := c.Request().Method
			m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func (m *Metrics) RecordBooking() {
	if m == nil {
		return
	}
	m.appointmentsBooked.WithLabelValues().Inc()
}

func (m *Metrics) RecordStatusChange(status, actor string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status, actor).Inc()
}

func (m *Metrics) RecordCheckout(provider string, err error) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(provider, result(err)).Inc()
}

// RecordPaymentConfirmation counts a confirmation; replayed is true when the
// appointment already had its payment.
func (m *Metrics) RecordPaymentConfirmation(replayed bool) {
	if m == nil {
		return
	}
	outcome := "created"
	if replayed {
		outcome = "replayed"
	}
	m.payments.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordAuthAttempt(action string, err error) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(action, result(err)).Inc()
}

func (m *Metrics) RecordNotification(kind string, err error) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, result(err)).Inc()
}

func (m *Metrics) RecordAuditEvent(surface, action string, status int) {
	if m == nil {
		return
	}
	m.auditEvents.WithLabelValues(surface, action, strconv.Itoa(status)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
