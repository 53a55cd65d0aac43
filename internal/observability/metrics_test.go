package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.IngestRows("concepts", "accepted", 3)
	m.IngestDropped("descriptions", "orphan", 1)
	m.IngestBatch("concepts", time.Millisecond)
	m.IndexRebuild(true)
	m.Lookup("match", time.Millisecond)
	m.WebhookCall("lookup_symptom", "ok")
	m.HTTPRequest("/webhook", "POST", "200", time.Millisecond)
}

func TestMetricsCountAndExpose(t *testing.T) {
	m := NewMetrics()
	m.IngestRows("concepts", "accepted", 5)
	m.IngestRows("concepts", "accepted", 0)
	m.IngestDropped("relationships", "unknown_type", 2)
	m.Lookup("degraded", 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`triage_ingest_rows_total{outcome="accepted",pass="concepts"} 5`,
		`triage_ingest_dropped_total{pass="relationships",reason="unknown_type"} 2`,
		`triage_lookup_total{outcome="degraded"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("exposition missing %q", want)
		}
	}
}
