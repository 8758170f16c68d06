package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"movierockstar/utils"
)

type stubPinger struct{ err error }

func (s *stubPinger) Ping(context.Context) error { return s.err }

// newRouterFor registers the full route table with stub fallbacks for any
// handler a test does not care about.
func newRouterFor(pages *PagesHandler, api *APIHandler, health *HealthHandler) *mux.Router {
	if pages == nil {
		pages = NewPagesHandler(&stubCatalog{}, &stubLinker{})
	}
	if api == nil {
		api = NewAPIHandler(&stubCatalog{}, &stubLinker{})
	}
	if health == nil {
		health = NewHealthHandler(&stubPinger{})
	}
	r := utils.NewRouter()
	RegisterRoutes(r, pages, api, health, nil, nil)
	return r
}

func TestRoutesLiteralBeforeID(t *testing.T) {
	cat := &stubCatalog{tv: []any{movieItem(1399, "Game of Thrones")}}
	r := newRouterFor(nil, NewAPIHandler(cat, &stubLinker{}), nil)

	// /api/tv/popular must hit the list endpoint, not /api/tv/{id}.
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tv/popular", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); !containsJSONField(body, "results") {
		t.Fatalf("expected results field, got %s", body)
	}
}

func TestRoutesAssignRequestID(t *testing.T) {
	r := newRouterFor(nil, nil, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID on every response")
	}
}

func TestStaticRouteServesCSS(t *testing.T) {
	r := newRouterFor(nil, nil, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/css/style.css", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for embedded asset, got %d", rec.Code)
	}
	if rec.Header().Get("Cache-Control") == "" {
		t.Fatal("expected cache headers on static assets")
	}
}

func TestHealthDegradedWhenCatalogUnreachable(t *testing.T) {
	h := NewHealthHandler(&stubPinger{err: context.DeadlineExceeded})

	rec := get(t, h.Health, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	h = NewHealthHandler(&stubPinger{})
	rec = get(t, h.Health, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
