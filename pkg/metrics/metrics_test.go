package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	return rec.Body.String()
}

func TestObserveRequest(t *testing.T) {
	ObserveRequest("GET /api/collections", http.StatusOK, 15*time.Millisecond)

	body := scrape(t)
	want := `chroma_viewer_http_requests_total{route="GET /api/collections",status="200"}`
	if !strings.Contains(body, want) {
		t.Errorf("metrics output missing %s", want)
	}
	if !strings.Contains(body, `chroma_viewer_http_request_duration_seconds_count{route="GET /api/collections"}`) {
		t.Error("metrics output missing duration histogram")
	}
}

func TestObserveRequest_Unmatched(t *testing.T) {
	ObserveRequest("", http.StatusNotFound, time.Millisecond)

	want := `chroma_viewer_http_requests_total{route="unmatched",status="404"}`
	if !strings.Contains(scrape(t), want) {
		t.Errorf("metrics output missing %s", want)
	}
}
