package query

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/rpattn/cvetrack/internal/repository/repositorytest"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	repo := repositorytest.NewFakeChangeRepository(seedChanges(3)...)
	return NewHTTPHandler(NewService(repo, 5000, zap.NewNop()))
}

func TestServeHTTPRoutesListOnlyAtMount(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cvechanges/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestServeHTTPUnknownSuffixIsNotFound(t *testing.T) {
	handler := newTestHandler(t)

	for _, path := range []string{"/api/cvechanges/bogus/", "/api/cvechanges/detail/"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("GET %s status = %d, want %d", path, rec.Code, http.StatusNotFound)
		}
	}
}

func TestServeHTTPUnknownMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/cvechanges/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
