package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestMetrics_RecordDispatch tests that sent and failed counts land on the provider label.
func TestMetrics_RecordDispatch(t *testing.T) {
	m := New()
	m.RecordDispatch("resend", 3, 1)
	m.RecordDispatch("resend", 2, 0)

	if got := testutil.ToFloat64(m.EmailsSent.WithLabelValues("resend")); got != 5 {
		t.Errorf("expected 5 sent, got %v", got)
	}
	if got := testutil.ToFloat64(m.EmailFailures.WithLabelValues("resend")); got != 1 {
		t.Errorf("expected 1 failure, got %v", got)
	}
}

// TestMetrics_RecordArchiveAndGate tests the archive and gate counters.
func TestMetrics_RecordArchiveAndGate(t *testing.T) {
	m := New()
	m.RecordArchive(4, 2)
	m.RecordGate("preview")
	m.RecordGate("preview")

	if got := testutil.ToFloat64(m.ArchiveEntries); got != 4 {
		t.Errorf("expected 4 entries, got %v", got)
	}
	if got := testutil.ToFloat64(m.ArchiveSkipped); got != 2 {
		t.Errorf("expected 2 skipped, got %v", got)
	}
	if got := testutil.ToFloat64(m.GateDecisions.WithLabelValues("preview")); got != 2 {
		t.Errorf("expected 2 preview decisions, got %v", got)
	}
}

// TestMetrics_NilIsNoop tests that a nil *Metrics can be used safely.
func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", "/", "200", 0.1)
	m.ObserveQuery("QueryContext", 0.1)
	m.RecordDispatch("noop", 1, 1)
	m.RecordGate("draft")
	m.RecordArchive(1, 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 from nil metrics handler, got %d", rec.Code)
	}
}

// TestMetrics_Handler tests that the exposition includes engine metrics.
func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordArchive(1, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "sponsors_archive_entries_total 1") {
		t.Errorf("expected archive counter in exposition:\n%s", rec.Body.String())
	}
}
