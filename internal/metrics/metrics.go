// Package metrics defines the Prometheus collectors of the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "nusapalma"

// Metrics groups the lifecycle counters and the HTTP latency histogram.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	paymentsCreated        *prometheus.CounterVec
	paymentsVerified       *prometheus.CounterVec
	paymentsExpired        *prometheus.CounterVec
	subscriptionsActivated *prometheus.CounterVec
	httpDuration           *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		paymentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_created_total",
			Help:      "Payments created, by plan and method.",
		}, []string{"plan", "method"}),
		paymentsVerified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_verified_total",
			Help:      "Payments verified, by plan.",
		}, []string{"plan"}),
		paymentsExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_expired_total",
			Help:      "Payments found expired on verification, by plan.",
		}, []string{"plan"}),
		subscriptionsActivated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_activated_total",
			Help:      "Tier activations, by plan and source (payment or subscribe).",
		}, []string{"plan", "source"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route pattern, method and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
	reg.MustRegister(m.paymentsCreated, m.paymentsVerified, m.paymentsExpired, m.subscriptionsActivated, m.httpDuration)
	return m
}

// PaymentCreated counts a new payment.
func (m *Metrics) PaymentCreated(planKey, method string) {
	if m == nil {
		return
	}
	m.paymentsCreated.WithLabelValues(planKey, method).Inc()
}

// PaymentVerified counts a verified payment.
func (m *Metrics) PaymentVerified(planKey string) {
	if m == nil {
		return
	}
	m.paymentsVerified.WithLabelValues(planKey).Inc()
}

// PaymentExpired counts a payment moved to expired.
func (m *Metrics) PaymentExpired(planKey string) {
	if m == nil {
		return
	}
	m.paymentsExpired.WithLabelValues(planKey).Inc()
}

// SubscriptionActivated counts a tier activation.
func (m *Metrics) SubscriptionActivated(planKey, source string) {
	if m == nil {
		return
	}
	m.subscriptionsActivated.WithLabelValues(planKey, source).Inc()
}

// Middleware records request latency labelled with the chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpDuration.WithLabelValues(route, r.Method, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
