package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.PaymentCreated("premium", "qris")
	m.PaymentCreated("premium", "qris")
	m.PaymentVerified("premium")
	m.PaymentExpired("basic")
	m.SubscriptionActivated("free", "subscribe")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.paymentsCreated.WithLabelValues("premium", "qris")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paymentsVerified.WithLabelValues("premium")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paymentsExpired.WithLabelValues("basic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.subscriptionsActivated.WithLabelValues("free", "subscribe")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.PaymentCreated("basic", "bri")
		m.PaymentVerified("basic")
		m.PaymentExpired("basic")
		m.SubscriptionActivated("basic", "payment")
	})

	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	rr := httptest.NewRecorder()
	m.Middleware(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1/subscription/access/{plan}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/subscription/access/premium", nil))
	require.Equal(t, http.StatusForbidden, rr.Code)

	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() != "nusapalma_http_request_duration_seconds" {
			continue
		}
		for _, metric := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["route"] == "/api/v1/subscription/access/{plan}" && labels["status"] == "403" {
				found = true
			}
		}
	}
	assert.True(t, found)
}
