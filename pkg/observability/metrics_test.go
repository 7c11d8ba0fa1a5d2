package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHTTPMiddleware(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	router := mux.NewRouter()
	router.Use(m.HTTPMetricsMiddleware)
	router.HandleFunc("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	for _, path := range []string{"/users/1", "/users/2"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	// Both requests collapse onto the route template label
	count := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/users/{id}", "200"))
	assert.Equal(t, float64(2), count)
}

func TestMetricsBusinessCounters(t *testing.T) {
	m := NewMetrics(nil)

	m.RecordLogin("success")
	m.RecordLogin("success")
	m.RecordLogin("invalid_password")
	m.RecordSignup()
	m.RecordCodeIssued("password_reset")
	m.RecordCodeConsumed("password_reset", "mismatch")
	m.RecordRateLimitReject()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.loginsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.loginsTotal.WithLabelValues("invalid_password")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.signupsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.codesIssuedTotal.WithLabelValues("password_reset")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.codesConsumedTotal.WithLabelValues("password_reset", "mismatch")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.rateLimitRejectsTotal))
}

func TestMetricsEndpoint(t *testing.T) {
	m := NewMetrics(nil)
	m.RecordSignup()

	serveMux := http.NewServeMux()
	m.RegisterMetricsEndpoint(serveMux)

	w := httptest.NewRecorder()
	serveMux.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "keygate_signups_total 1"))
}

func TestMetricsCacheCounters(t *testing.T) {
	m := NewMetrics(nil)

	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.userCacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.userCacheMisses))
}
