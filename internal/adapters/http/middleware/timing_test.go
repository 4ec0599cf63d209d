package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"sponsorship/internal/adapters/metrics"
)

func okHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

// assertOnlySeries fails unless the request histogram holds exactly one series with the given labels.
// Touching a missing label set creates a second series, which the recount catches.
func assertOnlySeries(t *testing.T, m *metrics.Metrics, labels ...string) {
	t.Helper()
	if got := testutil.CollectAndCount(m.RequestDuration); got != 1 {
		t.Fatalf("series = %d, want 1", got)
	}
	if _, err := m.RequestDuration.GetMetricWithLabelValues(labels...); err != nil {
		t.Fatalf("labels %v: %v", labels, err)
	}
	if got := testutil.CollectAndCount(m.RequestDuration); got != 1 {
		t.Errorf("no series labelled %v", labels)
	}
}

// TestTimingMiddleware_RecordsRequest verifies that a request observation is recorded.
func TestTimingMiddleware_RecordsRequest(t *testing.T) {
	m := metrics.New()
	handler := Timing(m, time.Second)(okHandler(http.StatusOK))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/admin/sponsors/export", nil))

	if got := testutil.CollectAndCount(m.RequestDuration); got != 1 {
		t.Errorf("series = %d, want 1", got)
	}
}

// TestTimingMiddleware_SkipsMetricsEndpoint verifies scrapes are not timed.
func TestTimingMiddleware_SkipsMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	handler := Timing(m, time.Second)(okHandler(http.StatusOK))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	if got := testutil.CollectAndCount(m.RequestDuration); got != 0 {
		t.Errorf("series = %d, want 0 (metrics endpoint excluded)", got)
	}
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

// TestTimingMiddleware_CapturesStatusCode verifies the status code is passed through and labelled.
func TestTimingMiddleware_CapturesStatusCode(t *testing.T) {
	m := metrics.New()
	handler := Timing(m, time.Second)(okHandler(http.StatusTeapot))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/admin/sponsors/email", nil))

	if rr.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rr.Code)
	}
	assertOnlySeries(t, m, "POST", "/admin/sponsors/email", "418")
}

// TestTimingMiddleware_NotFoundCollapsed verifies 404 paths share one label.
func TestTimingMiddleware_NotFoundCollapsed(t *testing.T) {
	m := metrics.New()
	handler := Timing(m, time.Second)(okHandler(http.StatusNotFound))

	for _, p := range []string{"/wp-admin", "/.env", "/x/y/z"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", p, nil))
	}

	if got := testutil.CollectAndCount(m.RequestDuration); got != 1 {
		t.Errorf("series = %d, want 1", got)
	}
}

// TestTimingMiddleware_NilMetrics verifies middleware works without metrics.
func TestTimingMiddleware_NilMetrics(t *testing.T) {
	handler := Timing(nil, 0)(okHandler(http.StatusOK))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

// TestTimingMiddleware_ImplicitOK verifies a handler that never calls WriteHeader is recorded as 200.
func TestTimingMiddleware_ImplicitOK(t *testing.T) {
	m := metrics.New()
	handler := Timing(m, time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/healthz", nil))

	assertOnlySeries(t, m, "GET", "/healthz", "200")
}

// BenchmarkTimingMiddleware measures the per-request overhead.
func BenchmarkTimingMiddleware(b *testing.B) {
	m := metrics.New()
	handler := Timing(m, time.Second)(okHandler(http.StatusOK))
	req := httptest.NewRequest("GET", "/admin/sponsors/export", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
