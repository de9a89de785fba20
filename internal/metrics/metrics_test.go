package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersRecord(t *testing.T) {
	m := New()
	m.CatalogRequest("latest", nil)
	m.CatalogRequest("latest", errors.New("boom"))
	m.CatalogRequest("latest", nil)
	m.PlayerAction("play")

	if got := testutil.ToFloat64(m.catalogRequests.WithLabelValues("latest", "ok")); got != 2 {
		t.Fatalf("expected 2 ok requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.catalogRequests.WithLabelValues("latest", "error")); got != 1 {
		t.Fatalf("expected 1 failed request, got %v", got)
	}
	if got := testutil.ToFloat64(m.playerActions.WithLabelValues("play")); got != 1 {
		t.Fatalf("expected 1 play action, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.PageRender("home", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `podcastr_page_renders_total{page="home",result="ok"} 1`) {
		t.Fatalf("page render counter missing from output")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.CatalogRequest("episode", nil)
	m.PlayerAction("next")
	m.PageRender("episode", nil)
	m.HTTPResponse("200")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from nil metrics handler, got %d", rec.Code)
	}
}
