// Package metrics provides Prometheus metrics for the billing service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	InvoicesCreated  prometheus.Counter
	PaymentsRecorded prometheus.Counter
	PaymentConflicts prometheus.Counter
	ClaimsSubmitted  prometheus.Counter
}

// New creates and registers all metrics
func New() *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "path"}),
		InvoicesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invoices_created_total",
			Help: "Total invoices created",
		}),
		PaymentsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payments_recorded_total",
			Help: "Total payments recorded",
		}),
		PaymentConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payment_conflicts_total",
			Help: "Payments rejected after losing every concurrent update attempt",
		}),
		ClaimsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "claims_submitted_total",
			Help: "Total insurance claims submitted",
		}),
	}

	prometheus.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.InvoicesCreated,
		m.PaymentsRecorded,
		m.PaymentConflicts,
		m.ClaimsSubmitted,
	)

	return m
}

// Middleware returns echo middleware that observes every request. The route
// template (not the raw URL) is used as the path label to keep cardinality
// bounded.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}

			m.RequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			m.RequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
