package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d, want 200", rec.Code)
	}
	return rec.Body.String()
}

func TestMiddlewareCountsRequests(t *testing.T) {
	m := NewMetrics()

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = []string{"/admin/permissions"}
	req := httptest.NewRequest(http.MethodPost, "/admin/permissions", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := scrape(t, m)
	if !strings.Contains(body, `aegis_http_requests_total{code="201",route="/admin/permissions"} 1`) {
		t.Fatalf("request counter missing from scrape:\n%s", body)
	}
	if !strings.Contains(body, "aegis_http_request_duration_seconds") {
		t.Fatal("duration histogram missing from scrape")
	}
}

func TestRecordDecision(t *testing.T) {
	m := NewMetrics()
	m.RecordDecision("reports.view", "allow")
	m.RecordDecision("reports.view", "deny")
	m.RecordDecision("reports.view", "deny")

	body := scrape(t, m)
	if !strings.Contains(body, `aegis_authz_decisions_total{outcome="allow",permission="reports.view"} 1`) {
		t.Fatalf("allow counter missing from scrape:\n%s", body)
	}
	if !strings.Contains(body, `aegis_authz_decisions_total{outcome="deny",permission="reports.view"} 2`) {
		t.Fatalf("deny counter missing from scrape:\n%s", body)
	}
}

func TestPrimeDecisionExposesZeroSeries(t *testing.T) {
	m := NewMetrics()
	m.PrimeDecision("users.edit")

	body := scrape(t, m)
	if !strings.Contains(body, `aegis_authz_decisions_total{outcome="allow",permission="users.edit"} 0`) {
		t.Fatalf("primed allow series missing from scrape:\n%s", body)
	}
	if !strings.Contains(body, `aegis_authz_decisions_total{outcome="deny",permission="users.edit"} 0`) {
		t.Fatalf("primed deny series missing from scrape:\n%s", body)
	}
}

func TestNilMetricsAreInert(t *testing.T) {
	var m *Metrics

	m.RecordDecision("reports.view", "allow")
	m.PrimeDecision("reports.view")

	called := false
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatal("nil metrics middleware must pass through")
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("nil handler status = %d, want 503", rec.Code)
	}
}
