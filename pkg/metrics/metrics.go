// Package metrics holds the prometheus collectors for the service and the
// echo middleware that feeds the HTTP ones.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	AdmissionAllowed  = "allowed"
	AdmissionRejected = "rejected"

	OutcomeAccepted  = "accepted"
	OutcomeRefreshed = "refreshed"
	OutcomeRejected  = "rejected"
)

// Metrics is the set of collectors registered for one process.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	admissionTotal      *prometheus.CounterVec
	authDecisionsTotal  *prometheus.CounterVec
	authRejectionsTotal *prometheus.CounterVec
	tokensIssuedTotal   *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		admissionTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admission_requests_total",
				Help: "Requests seen by the admission gate, by result.",
			},
			[]string{"result"},
		),
		authDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_decisions_total",
				Help: "Verification decisions, by outcome.",
			},
			[]string{"outcome"},
		),
		authRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_rejections_total",
				Help: "Verification rejections, by reason.",
			},
			[]string{"reason"},
		),
		tokensIssuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokens_issued_total",
				Help: "Signed tokens issued, by kind.",
			},
			[]string{"kind"},
		),
	}

	m.registry.MustRegister(
		m.httpInFlight,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.admissionTotal,
		m.authDecisionsTotal,
		m.authRejectionsTotal,
		m.tokensIssuedTotal,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAdmission counts one admission decision. Nil receivers are no-ops so
// callers can run without metrics.
func (m *Metrics) ObserveAdmission(allowed bool) {
	if m == nil {
		return
	}
	result := AdmissionAllowed
	if !allowed {
		result = AdmissionRejected
	}
	m.admissionTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveDecision(outcome string) {
	if m == nil {
		return
	}
	m.authDecisionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRejection(reason string) {
	if m == nil {
		return
	}
	m.authDecisionsTotal.WithLabelValues(OutcomeRejected).Inc()
	m.authRejectionsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveTokenIssued(kind string) {
	if m == nil {
		return
	}
	m.tokensIssuedTotal.WithLabelValues(kind).Inc()
}

// Middleware tracks request count, latency and in-flight requests.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.httpInFlight.Inc()
			defer m.httpInFlight.Dec()

			start := time.Now()
			err := next(c)

			// the error handler has not run yet, so take the status from the error
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
			}

			// route template keeps label cardinality bounded
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			code := strconv.Itoa(status)

			m.httpRequestDuration.WithLabelValues(method, path, code).Observe(time.Since(start).Seconds())
			m.httpRequestsTotal.WithLabelValues(method, path, code).Inc()

			return err
		}
	}
}
